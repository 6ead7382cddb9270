/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package mio

import (
	"errors"
	"fmt"
)

// Code is the numeric MIO error code
type Code int

const (
	Success Code = iota
	OpenError
	TimeoutError
	BadChannelNumber
	BadModeNumber
	BadRange
	CommandWriteFailure
	ReadDataFailure
	MissingIrq
	IllegalVoltage
	BadValue
	BadPolarity
	BadDevice
	BadChipNum
	BadSpan
	NullPointer
)

var codeNames = map[Code]string{
	Success:             "MIO_SUCCESS",
	OpenError:           "MIO_OPEN_ERROR",
	TimeoutError:        "MIO_TIMEOUT_ERROR",
	BadChannelNumber:    "MIO_BAD_CHANNEL_NUMBER",
	BadModeNumber:       "MIO_BAD_MODE_NUMBER",
	BadRange:            "MIO_BAD_RANGE",
	CommandWriteFailure: "MIO_COMMAND_WRITE_FAILURE",
	ReadDataFailure:     "MIO_READ_DATA_FAILURE",
	MissingIrq:          "MIO_MISSING_IRQ",
	IllegalVoltage:      "MIO_ILLEGAL_VOLTAGE",
	BadValue:            "MIO_BAD_VALUE",
	BadPolarity:         "MIO_BAD_POLARITY",
	BadDevice:           "MIO_BAD_DEVICE",
	BadChipNum:          "MIO_BAD_CHIP_NUM",
	BadSpan:             "MIO_BAD_SPAN",
	NullPointer:         "MIO_NULL_POINTER",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("MIO_ERROR(%d)", int(c))
}

// Error is returned by every library call that fails
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errorf(code Code, format string, args ...interface{}) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ErrorCode returns the MIO code of err, Success for nil
func ErrorCode(err error) Code {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CommandWriteFailure
}
