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

	"github.com/winsystems/go-pcmmio/pkg/device"
	"github.com/winsystems/go-pcmmio/pkg/log"
)

// File is an open handle on one card
type File struct {
	dev *Device
}

func (f *File) Device() *Device {
	return f.dev
}

// Release closes the handle. No per-open state is kept.
func (f *File) Release() error {
	log.Debug("[%s] device_release", f.dev.Name)
	return nil
}

// Ioctl runs one command. The low byte of param selects the sub-unit
// (ADC/DAC chip, DIO port, register offset or bit), the upper bytes carry
// the value.
func (f *File) Ioctl(ctx context.Context, cmd Cmd, param uint32) (int, error) {
	d := f.dev
	log.Debug("[%s] IOCTL CODE %08X %s param %08X", d.Name, uint32(cmd), cmd, param)

	var chip uint8
	if param&0xff != 0 {
		chip = device.ChipStride
	}
	low := uint8(param)
	value := uint8(param >> 8)

	switch cmd {
	case AdcWriteCommand:
		return 0, d.write(device.RegAdc1Command+chip, value)

	case AdcReadData:
		v, err := d.readWord(device.RegAdc1DataLo + chip)
		return int(v), err

	case AdcReadStatus:
		v, err := d.read(device.RegAdc1Status + chip)
		return int(v), err

	case Adc1WaitInt:
		return 0, d.WaitReady(ctx, SourceAdc1)

	case Adc2WaitInt:
		return 0, d.WaitReady(ctx, SourceAdc2)

	case DacWriteData:
		return 0, d.writeWord(device.RegDac1DataLo+chip, uint16(param>>8))

	case DacReadStatus:
		v, err := d.read(device.RegDac1Status + chip)
		return int(v), err

	case DacWriteCommand:
		return 0, d.write(device.RegDac1Command+chip, value)

	case Dac1WaitInt:
		return 0, d.WaitReady(ctx, SourceDac1)

	case Dac2WaitInt:
		return 0, d.WaitReady(ctx, SourceDac2)

	case DioWriteByte:
		if low >= device.DioPorts {
			return 0, ErrInvalidArgument
		}
		return 0, d.write(device.RegDioPort0+low, value)

	case DioReadByte:
		if low >= device.DioPorts {
			return 0, ErrInvalidArgument
		}
		v, err := d.read(device.RegDioPort0 + low)
		return int(v), err

	case DioWaitInt:
		return d.WaitDIOEvent(ctx)

	case DioGetInt:
		bit, err := d.GetDIOEvent()
		return bit & 0xff, err

	case ReadIrqAssigned:
		return int(d.IRQ & 0xff), nil

	case MioWriteReg:
		if low >= device.RegionSize {
			return 0, ErrInvalidArgument
		}
		return 0, d.write(low, value)

	case MioReadReg:
		if low >= device.RegionSize {
			return 0, ErrInvalidArgument
		}
		v, err := d.read(low)
		return int(v), err

	case DioEnabBitInt:
		if value > 1 {
			return 0, ErrInvalidArgument
		}
		return 0, d.EnableBitInt(int(low), value == 1)

	case DioDisabBitInt:
		return 0, d.DisableBitInt(int(low))

	case DioClrBitInt:
		return 0, d.ClrInt(int(low))

	case DioReadPaged:
		v, err := d.readPaged(value, low)
		return int(v), err
	}
	return 0, ErrInvalidArgument
}
