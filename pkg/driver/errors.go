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

package driver

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	// ErrNoDevice returned when the minor number has no reserved card
	ErrNoDevice = errors.New("no such device")
	// ErrInvalidArgument returned for unknown ioctl codes and bad parameters
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInterrupted returned when a wait was cancelled by its caller
	ErrInterrupted = errors.New("interrupted system call")
	// ErrIO returned when the register backend failed
	ErrIO = errors.New("input/output error")
)

// ErrUnknownDevice returned when a card is looked up by a name that was not loaded
type ErrUnknownDevice struct {
	Name string
}

func (e ErrUnknownDevice) Error() string {
	return fmt.Sprintf("device %s is not loaded", e.Name)
}

// Errno maps a driver error to the errno a kernel driver would return
func Errno(err error) unix.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNoDevice):
		return unix.ENODEV
	case errors.Is(err, ErrInvalidArgument):
		return unix.EINVAL
	case errors.Is(err, ErrInterrupted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return unix.EINTR
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return unix.EIO
}

// FromErrno is the inverse of Errno
func FromErrno(errno unix.Errno) error {
	switch errno {
	case 0:
		return nil
	case unix.ENODEV:
		return ErrNoDevice
	case unix.EINVAL:
		return ErrInvalidArgument
	case unix.EINTR:
		return ErrInterrupted
	case unix.EIO:
		return ErrIO
	}
	return errno
}
