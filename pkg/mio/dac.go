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

// DAC output spans
const (
	DacSpanUni5  byte = 0
	DacSpanUni10 byte = 1
	DacSpanBi5   byte = 2
	DacSpanBi10  byte = 3
	DacSpanBi2   byte = 4
	DacSpanBi7   byte = 5
)

// DAC command codes, ORed with the channel select
const (
	DacCmdSetSpan   byte = 0x60
	DacCmdSetOutput byte = 0x70
	// DacCmdEnd terminates a buffered output list
	DacCmdEnd byte = 0xff
)

const DacChannels = 8

func checkDacChannel(channel int) error {
	if channel < 0 || channel >= DacChannels {
		return errorf(BadChannelNumber, "MIO (DAC) : Bad Channel Number %d", channel)
	}
	return nil
}

func checkDacChip(dacNum int) error {
	if dacNum < 0 || dacNum > 1 {
		return errorf(BadChipNum, "MIO (DAC) : Bad DAC Number %d", dacNum)
	}
	return nil
}

func dacSelect(channel int) byte {
	return byte(channel%4) << 1
}

func (d *Device) DacWriteData(ctx context.Context, dacNum int, value uint16) error {
	if err := checkDacChip(dacNum); err != nil {
		return err
	}
	return d.command(ctx, "DAC", driver.DacWriteData, uint32(value)<<8|chipParam(dacNum))
}

func (d *Device) DacWriteCommand(ctx context.Context, dacNum int, value byte) error {
	if err := checkDacChip(dacNum); err != nil {
		return err
	}
	return d.command(ctx, "DAC", driver.DacWriteCommand, uint32(value)<<8|chipParam(dacNum))
}

func (d *Device) DacReadStatus(ctx context.Context, dacNum int) (byte, error) {
	if err := checkDacChip(dacNum); err != nil {
		return 0, err
	}
	v, err := d.read(ctx, "DAC", driver.DacReadStatus, chipParam(dacNum))
	return byte(v), err
}

// DacWaitReady waits until the chip driving channel is idle
func (d *Device) DacWaitReady(ctx context.Context, channel int) error {
	if err := checkDacChannel(channel); err != nil {
		return err
	}
	err := waitReady(ctx, func() (byte, error) {
		return d.DacReadStatus(ctx, channel/4)
	}, device.DacReady)
	if errors.Is(err, errNotReady) {
		return errorf(TimeoutError, "MIO (DAC) : Wait ready - Device timeout error")
	}
	return err
}

// DacSetSpan loads span into the data register and latches it for channel
func (d *Device) DacSetSpan(ctx context.Context, channel int, span byte) error {
	if err := checkDacChannel(channel); err != nil {
		return err
	}
	if span > DacSpanBi7 {
		return errorf(BadSpan, "MIO (DAC) : Bad Span Value %d", span)
	}
	return d.dacLatch(ctx, channel, uint16(span), DacCmdSetSpan)
}

// DacSetOutput loads value and updates the output of channel
func (d *Device) DacSetOutput(ctx context.Context, channel int, value uint16) error {
	if err := checkDacChannel(channel); err != nil {
		return err
	}
	return d.dacLatch(ctx, channel, value, DacCmdSetOutput)
}

func (d *Device) dacLatch(ctx context.Context, channel int, data uint16, cmd byte) error {
	chip := channel / 4
	if err := d.DacWriteData(ctx, chip, data); err != nil {
		return err
	}
	if err := d.DacWriteCommand(ctx, chip, cmd|dacSelect(channel)); err != nil {
		return err
	}
	return d.DacWaitReady(ctx, channel)
}

// DacOutput is one entry of a buffered output list
type DacOutput struct {
	Command byte
	Value   uint16
}

// DacBufferedOutput writes the list to chip dacNum until a DacCmdEnd
// entry, waiting for the chip after every entry. It returns the number of
// entries written.
func (d *Device) DacBufferedOutput(ctx context.Context, dacNum int, list []DacOutput) (int, error) {
	if err := checkDacChip(dacNum); err != nil {
		return 0, err
	}
	if list == nil {
		return 0, errorf(NullPointer, "MIO (DAC) : Null output list")
	}
	n := 0
	for _, e := range list {
		if e.Command == DacCmdEnd {
			break
		}
		if err := d.DacWriteData(ctx, dacNum, e.Value); err != nil {
			return n, err
		}
		if err := d.DacWriteCommand(ctx, dacNum, e.Command); err != nil {
			return n, err
		}
		if err := d.DacWaitReady(ctx, dacNum*4); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (d *Device) dacSetInterrupt(ctx context.Context, dacNum int, enable bool) error {
	if err := checkDacChip(dacNum); err != nil {
		return err
	}
	on, off := device.Dac1IrqEnable, device.Dac1IrqDisable
	if dacNum == 1 {
		on, off = device.Dac2IrqEnable, device.Dac2IrqDisable
	}
	value := off
	if enable {
		value = on
	}
	d.mu.Lock()
	d.dacImages[dacNum] = value
	d.mu.Unlock()
	return d.WriteReg(ctx, device.RegDac1Enable+uint8(dacNum*device.ChipStride), value)
}

func (d *Device) DacEnableInterrupt(ctx context.Context, dacNum int) error {
	return d.dacSetInterrupt(ctx, dacNum, true)
}

func (d *Device) DacDisableInterrupt(ctx context.Context, dacNum int) error {
	return d.dacSetInterrupt(ctx, dacNum, false)
}

// DacWaitInt blocks until the next interrupt of chip dacNum
func (d *Device) DacWaitInt(ctx context.Context, dacNum int) error {
	if err := checkDacChip(dacNum); err != nil {
		return err
	}
	cmd := driver.Dac1WaitInt
	if dacNum == 1 {
		cmd = driver.Dac2WaitInt
	}
	return d.command(ctx, "DAC", cmd, 0)
}
