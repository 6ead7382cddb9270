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

	"github.com/cenkalti/backoff"

	"github.com/winsystems/go-pcmmio/pkg/device"
	"github.com/winsystems/go-pcmmio/pkg/driver"
)

// ADC command byte fields
const (
	AdcSingleEnded  byte = 0x80
	AdcDifferential byte = 0x00

	AdcUnipolar byte = 0x08
	AdcBipolar  byte = 0x00

	AdcTop5V  byte = 0x00
	AdcTop10V byte = 0x04

	AdcCh0Select byte = 0x00
	AdcCh1Select byte = 0x40
	AdcCh2Select byte = 0x10
	AdcCh3Select byte = 0x50
	AdcCh4Select byte = 0x20
	AdcCh5Select byte = 0x60
	AdcCh6Select byte = 0x30
	AdcCh7Select byte = 0x70
)

// AdcChannels is the number of ADC inputs, eight per chip
const AdcChannels = 16

// WaitReadyRetries is how many times a ready bit is polled before giving up
const WaitReadyRetries = 100000

var adcChannelSelect = [8]byte{
	AdcCh0Select, AdcCh1Select, AdcCh2Select, AdcCh3Select,
	AdcCh4Select, AdcCh5Select, AdcCh6Select, AdcCh7Select,
}

var errNotReady = errors.New("not ready")

// AdcCommandChannel decodes the channel selected by a command byte sent to chip adcNum
func AdcCommandChannel(adcNum int, command byte) int {
	return adcNum*8 + int(((command>>3)&0x6)|((command>>6)&0x1))
}

func checkAdcChannel(channel int) error {
	if channel < 0 || channel >= AdcChannels {
		return errorf(BadChannelNumber, "MIO (ADC) : Bad Channel Number %d", channel)
	}
	return nil
}

func checkAdcChip(adcNum int) error {
	if adcNum < 0 || adcNum > 1 {
		return errorf(BadChipNum, "MIO (ADC) : Bad ADC Number %d", adcNum)
	}
	return nil
}

func chipParam(chip int) uint32 {
	return uint32(chip) & 0xff
}

// AdcSetChannelMode sets the command byte used by later conversions of channel
func (d *Device) AdcSetChannelMode(channel int, inputMode, duplex, rng byte) error {
	if err := checkAdcChannel(channel); err != nil {
		return err
	}
	if inputMode != AdcSingleEnded && inputMode != AdcDifferential {
		return errorf(BadModeNumber, "MIO (ADC) : Bad Mode Number")
	}
	if duplex != AdcUnipolar && duplex != AdcBipolar {
		return errorf(BadModeNumber, "MIO (ADC) : Bad Mode Number")
	}
	if rng != AdcTop5V && rng != AdcTop10V {
		return errorf(BadRange, "MIO (ADC) : Bad Range Value")
	}
	d.mu.Lock()
	d.channelMode[channel] = adcChannelSelect[channel%8] | inputMode | duplex | rng
	d.mu.Unlock()
	return nil
}

// AdcChannelMode returns the command byte of channel
func (d *Device) AdcChannelMode(channel int) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channelMode[channel]
}

// AdcStartConversion starts a conversion of channel. The result is read
// after the next conversion on the same chip has been started.
func (d *Device) AdcStartConversion(ctx context.Context, channel int) error {
	if err := checkAdcChannel(channel); err != nil {
		return err
	}
	d.mu.Lock()
	d.lastChannel = d.curChannel
	d.curChannel = channel
	command := d.channelMode[channel]
	d.mu.Unlock()
	return d.AdcWriteCommand(ctx, channel/8, command)
}

func (d *Device) AdcWriteCommand(ctx context.Context, adcNum int, value byte) error {
	if err := checkAdcChip(adcNum); err != nil {
		return err
	}
	if err := d.command(ctx, "ADC", driver.AdcWriteCommand, uint32(value)<<8|chipParam(adcNum)); err != nil {
		return err
	}
	d.mu.Lock()
	d.channelMode[AdcCommandChannel(adcNum, value)] = value
	d.mu.Unlock()
	return nil
}

func (d *Device) AdcReadStatus(ctx context.Context, adcNum int) (byte, error) {
	if err := checkAdcChip(adcNum); err != nil {
		return 0, err
	}
	v, err := d.read(ctx, "ADC", driver.AdcReadStatus, chipParam(adcNum))
	return byte(v), err
}

func (d *Device) AdcReadConversionData(ctx context.Context, channel int) (uint16, error) {
	if err := checkAdcChannel(channel); err != nil {
		return 0, err
	}
	v, err := d.read(ctx, "ADC", driver.AdcReadData, chipParam(channel/8))
	return uint16(v), err
}

// waitReady polls a status register until mask is set, WaitReadyRetries times at most
func waitReady(ctx context.Context, status func() (byte, error), mask byte) error {
	op := func() error {
		v, err := status()
		if err != nil {
			return backoff.Permanent(err)
		}
		if v&mask == 0 {
			return errNotReady
		}
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, WaitReadyRetries), ctx)
	return backoff.Retry(op, b)
}

// AdcWaitReady waits for the chip converting channel to report ready
func (d *Device) AdcWaitReady(ctx context.Context, channel int) error {
	if err := checkAdcChannel(channel); err != nil {
		return err
	}
	err := waitReady(ctx, func() (byte, error) {
		return d.AdcReadStatus(ctx, channel/8)
	}, device.AdcReady)
	if errors.Is(err, errNotReady) {
		return errorf(TimeoutError, "MIO (ADC) : Wait ready - Device timeout error")
	}
	return err
}

// convert starts a conversion of channel and returns the result of the
// previous conversion on the chip
func (d *Device) convert(ctx context.Context, channel int) (uint16, error) {
	if err := d.AdcStartConversion(ctx, channel); err != nil {
		return 0, err
	}
	if err := d.AdcWaitReady(ctx, channel); err != nil {
		return 0, err
	}
	return d.AdcReadConversionData(ctx, channel)
}

// AdcConvertAllChannels converts the sixteen inputs in order
func (d *Device) AdcConvertAllChannels(ctx context.Context) ([]uint16, error) {
	out := make([]uint16, 0, AdcChannels)
	for chip := 0; chip < 2; chip++ {
		first := chip * 8
		// the data register still holds an older conversion
		if _, err := d.convert(ctx, first); err != nil {
			return nil, err
		}
		for ch := first + 1; ch < first+8; ch++ {
			v, err := d.convert(ctx, ch)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		// one more conversion pushes the last channel out
		v, err := d.convert(ctx, first+7)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// AdcConvertSingleRepeated converts channel count+1 times. The first
// conversion started is returned first.
func (d *Device) AdcConvertSingleRepeated(ctx context.Context, channel int, count int) ([]uint16, error) {
	if err := checkAdcChannel(channel); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, errorf(BadValue, "MIO (ADC) : Bad count %d", count)
	}
	if _, err := d.convert(ctx, channel); err != nil {
		return nil, err
	}
	out := make([]uint16, 0, count+1)
	for i := 0; i <= count; i++ {
		v, err := d.convert(ctx, channel)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (d *Device) adcSetInterrupt(ctx context.Context, adcNum int, value byte) error {
	if err := checkAdcChip(adcNum); err != nil {
		return err
	}
	d.mu.Lock()
	d.adcImages[adcNum] = value
	d.mu.Unlock()
	return d.WriteReg(ctx, device.RegAdc1Enable+uint8(adcNum*device.ChipStride), value)
}

func (d *Device) AdcEnableInterrupt(ctx context.Context, adcNum int) error {
	return d.adcSetInterrupt(ctx, adcNum, device.AdcIrqEnable)
}

func (d *Device) AdcDisableInterrupt(ctx context.Context, adcNum int) error {
	return d.adcSetInterrupt(ctx, adcNum, device.AdcIrqDisable)
}

// AdcWaitInt blocks until the next interrupt of chip adcNum
func (d *Device) AdcWaitInt(ctx context.Context, adcNum int) error {
	if err := checkAdcChip(adcNum); err != nil {
		return err
	}
	cmd := driver.Adc1WaitInt
	if adcNum == 1 {
		cmd = driver.Adc2WaitInt
	}
	return d.command(ctx, "ADC", cmd, 0)
}
