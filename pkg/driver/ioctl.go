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
	"fmt"
)

// Linux ioctl number layout, see asm-generic/ioctl.h
const (
	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
	iocRead  = 2

	// IoctlType is the magic of the PCM-MIO-G commands
	IoctlType = 'i'
	intSize   = 4
)

// Cmd is an ioctl request code, _IOWR('i', n, int)
type Cmd uint32

const iowr Cmd = (iocRead|iocWrite)<<iocDirShift | intSize<<iocSizeShift | IoctlType<<iocTypeShift

const (
	AdcWriteCommand Cmd = iowr | 1
	AdcReadData     Cmd = iowr | 2
	AdcReadStatus   Cmd = iowr | 3
	Adc1WaitInt     Cmd = iowr | 4
	Adc2WaitInt     Cmd = iowr | 5
	DacWriteData    Cmd = iowr | 6
	DacReadStatus   Cmd = iowr | 7
	DacWriteCommand Cmd = iowr | 8
	Dac1WaitInt     Cmd = iowr | 9
	Dac2WaitInt     Cmd = iowr | 10
	DioWriteByte    Cmd = iowr | 11
	DioReadByte     Cmd = iowr | 12
	DioWaitInt      Cmd = iowr | 13
	DioGetInt       Cmd = iowr | 14
	ReadIrqAssigned Cmd = iowr | 15
	MioWriteReg     Cmd = iowr | 16
	MioReadReg      Cmd = iowr | 17
	DioEnabBitInt   Cmd = iowr | 18
	DioDisabBitInt  Cmd = iowr | 19
	DioClrBitInt    Cmd = iowr | 20
	DioReadPaged    Cmd = iowr | 21
)

var cmdNames = map[Cmd]string{
	AdcWriteCommand: "ADC_WRITE_COMMAND",
	AdcReadData:     "ADC_READ_DATA",
	AdcReadStatus:   "ADC_READ_STATUS",
	Adc1WaitInt:     "ADC1_WAIT_INT",
	Adc2WaitInt:     "ADC2_WAIT_INT",
	DacWriteData:    "DAC_WRITE_DATA",
	DacReadStatus:   "DAC_READ_STATUS",
	DacWriteCommand: "DAC_WRITE_COMMAND",
	Dac1WaitInt:     "DAC1_WAIT_INT",
	Dac2WaitInt:     "DAC2_WAIT_INT",
	DioWriteByte:    "DIO_WRITE_BYTE",
	DioReadByte:     "DIO_READ_BYTE",
	DioWaitInt:      "DIO_WAIT_INT",
	DioGetInt:       "DIO_GET_INT",
	ReadIrqAssigned: "READ_IRQ_ASSIGNED",
	MioWriteReg:     "MIO_WRITE_REG",
	MioReadReg:      "MIO_READ_REG",
	DioEnabBitInt:   "DIO_ENAB_BIT_INT",
	DioDisabBitInt:  "DIO_DISAB_BIT_INT",
	DioClrBitInt:    "DIO_CLR_BIT_INT",
	DioReadPaged:    "DIO_READ_PAGED",
}

// Nr is the command number without direction, size and type
func (c Cmd) Nr() int {
	return int(c>>iocNrShift) & (1<<iocNrBits - 1)
}

func (c Cmd) String() string {
	if name, ok := cmdNames[c]; ok {
		return name
	}
	return fmt.Sprintf("IOCTL(0x%08x)", uint32(c))
}

// CmdByName looks a command up by its name, e.g. DIO_READ_BYTE
func CmdByName(name string) (Cmd, bool) {
	for c, n := range cmdNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}
