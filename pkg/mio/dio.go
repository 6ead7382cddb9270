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
	"context"
	"errors"

	"github.com/winsystems/go-pcmmio/pkg/device"
	"github.com/winsystems/go-pcmmio/pkg/driver"
)

// Edge polarity of a DIO interrupt
const (
	Rising  byte = 0
	Falling byte = 1
)

func checkBit(bit int) error {
	if bit < 1 || bit > device.DioBits {
		return errorf(BadChannelNumber, "MIO (DIO) : Bad bit number %d", bit)
	}
	return nil
}

func checkIntBit(bit int) error {
	if bit < 1 || bit > device.DioIntBits {
		return errorf(BadChannelNumber, "MIO (DIO) : Bad bit number %d", bit)
	}
	return nil
}

func checkPort(port int) error {
	if port < 0 || port >= device.DioPorts {
		return errorf(BadChannelNumber, "MIO (DIO) : Bad port number %d", port)
	}
	return nil
}

// DioResetDevice disables every bit interrupt and drives all 48 lines low
func (d *Device) DioResetDevice(ctx context.Context) error {
	for bit := 1; bit <= device.DioIntBits; bit++ {
		if err := d.DioDisabBitInt(ctx, bit); err != nil {
			return err
		}
	}
	for p := 0; p < device.DioPorts; p++ {
		if err := d.DioWriteByte(ctx, p, 0); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) DioReadBit(ctx context.Context, bit int) (byte, error) {
	if err := checkBit(bit); err != nil {
		return 0, err
	}
	v, err := d.DioReadByte(ctx, (bit-1)/8)
	if err != nil {
		return 0, err
	}
	return (v >> uint((bit-1)%8)) & 1, nil
}

// DioWriteBit changes one line using the port image, leaving the other
// seven lines of the port as last written
func (d *Device) DioWriteBit(ctx context.Context, bit int, value byte) error {
	if err := checkBit(bit); err != nil {
		return err
	}
	if value > 1 {
		return errorf(BadValue, "MIO (DIO) : Bad value %d", value)
	}
	port := (bit - 1) / 8
	mask := byte(1) << uint((bit-1)%8)

	d.seq.Lock()
	defer d.seq.Unlock()
	d.mu.Lock()
	v := d.dioImages[port]
	d.mu.Unlock()
	if value == 1 {
		v |= mask
	} else {
		v &^= mask
	}
	return d.writeByte(ctx, port, v)
}

func (d *Device) DioSetBit(ctx context.Context, bit int) error {
	return d.DioWriteBit(ctx, bit, 1)
}

func (d *Device) DioClrBit(ctx context.Context, bit int) error {
	return d.DioWriteBit(ctx, bit, 0)
}

func (d *Device) DioReadByte(ctx context.Context, port int) (byte, error) {
	if err := checkPort(port); err != nil {
		return 0, err
	}
	v, err := d.read(ctx, "DIO", driver.DioReadByte, uint32(port))
	return byte(v), err
}

func (d *Device) DioWriteByte(ctx context.Context, port int, value byte) error {
	if err := checkPort(port); err != nil {
		return err
	}
	d.seq.Lock()
	defer d.seq.Unlock()
	return d.writeByte(ctx, port, value)
}

// writeByte drives a port and updates its image. The caller holds seq.
func (d *Device) writeByte(ctx context.Context, port int, value byte) error {
	if err := d.command(ctx, "DIO", driver.DioWriteByte, uint32(value)<<8|uint32(port)); err != nil {
		return err
	}
	d.mu.Lock()
	d.dioImages[port] = value
	d.mu.Unlock()
	return nil
}

// DioEnabBitInt arms the edge interrupt of bit (1..24)
func (d *Device) DioEnabBitInt(ctx context.Context, bit int, polarity byte) error {
	if err := checkIntBit(bit); err != nil {
		return err
	}
	if polarity != Rising && polarity != Falling {
		return errorf(BadPolarity, "MIO (DIO) : Bad interrupt polarity %d", polarity)
	}
	port, mask := intBitMask(bit)
	_, err := d.pagedCall(ctx, CommandWriteFailure, driver.DioEnabBitInt, uint32(polarity)<<8|uint32(bit),
		func() (byte, error) {
			err := d.updatePaged(ctx, device.PageEnable, device.RegDioEnable+port, func(v byte) []byte {
				return []byte{v | mask}
			})
			if err != nil {
				return 0, err
			}
			return 0, d.updatePaged(ctx, device.PagePolarity, device.RegDioPolarity+port, func(v byte) []byte {
				if polarity == Falling {
					return []byte{v | mask}
				}
				return []byte{v &^ mask}
			})
		})
	return err
}

func (d *Device) DioDisabBitInt(ctx context.Context, bit int) error {
	if err := checkIntBit(bit); err != nil {
		return err
	}
	port, mask := intBitMask(bit)
	_, err := d.pagedCall(ctx, CommandWriteFailure, driver.DioDisabBitInt, uint32(bit),
		func() (byte, error) {
			return 0, d.updatePaged(ctx, device.PageEnable, device.RegDioEnable+port, func(v byte) []byte {
				return []byte{v &^ mask}
			})
		})
	return err
}

// DioClrInt clears a latched edge on bit and re-arms it. The bit ends up
// enabled whatever its state before.
func (d *Device) DioClrInt(ctx context.Context, bit int) error {
	if err := checkIntBit(bit); err != nil {
		return err
	}
	port, mask := intBitMask(bit)
	_, err := d.pagedCall(ctx, CommandWriteFailure, driver.DioClrBitInt, uint32(bit),
		func() (byte, error) {
			return 0, d.updatePaged(ctx, device.PageEnable, device.RegDioEnable+port, func(v byte) []byte {
				return []byte{v &^ mask, v | mask}
			})
		})
	return err
}

func intBitMask(bit int) (uint8, byte) {
	return uint8((bit - 1) / 8), byte(1) << uint((bit-1)%8)
}

// pagedCall issues one of the DIO page commands. Handles that do not know
// the command (kernel drivers answer EINVAL) get the same register work
// done by regs through MIO_WRITE_REG and MIO_READ_REG, and keep that path
// from then on.
func (d *Device) pagedCall(ctx context.Context, code Code, cmd driver.Cmd, param uint32,
	regs func() (byte, error)) (byte, error) {
	d.seq.Lock()
	defer d.seq.Unlock()
	if !d.pagedRegs {
		v, err := d.call(ctx, code, "DIO", cmd, param)
		if err == nil || !errors.Is(err, driver.ErrInvalidArgument) {
			return byte(v), err
		}
		d.pagedRegs = true
	}
	return regs()
}

// selectPage runs body with page selected and selects the default page
// again afterwards. The caller holds seq.
func (d *Device) selectPage(ctx context.Context, page byte, body func() error) error {
	if err := d.WriteReg(ctx, device.RegDioPageLock, page); err != nil {
		return err
	}
	err := body()
	if rerr := d.WriteReg(ctx, device.RegDioPageLock, device.PageDefault); err == nil {
		err = rerr
	}
	return err
}

// updatePaged reads a banked register and writes the values returned by
// update in order
func (d *Device) updatePaged(ctx context.Context, page byte, offset uint8, update func(byte) []byte) error {
	return d.selectPage(ctx, page, func() error {
		v, err := d.ReadReg(ctx, offset)
		if err != nil {
			return err
		}
		for _, w := range update(v) {
			if err := d.WriteReg(ctx, offset, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// readPaged reads a banked DIO register
func (d *Device) readPaged(ctx context.Context, page byte, offset uint8) (byte, error) {
	return d.pagedCall(ctx, ReadDataFailure, driver.DioReadPaged, uint32(page)<<8|uint32(offset),
		func() (byte, error) {
			var v byte
			err := d.selectPage(ctx, page, func() error {
				var err error
				v, err = d.ReadReg(ctx, offset)
				return err
			})
			return v, err
		})
}

// DioGetInt returns the next delivered bit number, 0 when there is none
func (d *Device) DioGetInt(ctx context.Context) (int, error) {
	return d.read(ctx, "DIO", driver.DioGetInt, 0)
}

// DioWaitInt blocks until a bit interrupt is delivered and returns its number
func (d *Device) DioWaitInt(ctx context.Context) (int, error) {
	return d.read(ctx, "DIO", driver.DioWaitInt, 0)
}
