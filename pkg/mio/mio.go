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

// Package mio is the PCM-MIO-G userspace library. It talks to a card only
// through ioctl calls on a Handle, so the same code runs against the
// in-process driver, a kernel device node or the control daemon.
package mio

import (
	"context"
	"sync"

	"github.com/winsystems/go-pcmmio/pkg/device"
	"github.com/winsystems/go-pcmmio/pkg/driver"
)

// Handle is an open card. *driver.File implements it.
type Handle interface {
	Ioctl(ctx context.Context, cmd driver.Cmd, param uint32) (int, error)
}

// Device keeps the register images a card cannot read back
type Device struct {
	h Handle

	// seq is held across multi-call sequences: port image updates and DIO
	// page sequences. It is taken before mu.
	seq sync.Mutex
	// pagedRegs is set when the handle lacks the DIO interrupt commands and
	// the pages are driven with MIO_WRITE_REG and MIO_READ_REG instead.
	// Guarded by seq.
	pagedRegs bool

	mu          sync.Mutex
	dioImages   [device.DioPorts]byte
	adcImages   [2]byte
	dacImages   [2]byte
	channelMode [16]byte
	lastChannel int
	curChannel  int
}

func New(h Handle) *Device {
	d := &Device{h: h}
	if _, ok := h.(*KernelHandle); ok {
		d.pagedRegs = true
	}
	for ch := range d.channelMode {
		d.channelMode[ch] = adcChannelSelect[ch%8]
	}
	d.dacImages[0] = device.Dac1IrqDisable
	d.dacImages[1] = device.Dac2IrqDisable
	return d
}

// Open wraps h and loads the DIO port images from the card
func Open(ctx context.Context, h Handle) (*Device, error) {
	d := New(h)
	if err := d.SyncImages(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// SyncImages reads the six DIO ports back into the images used for bit writes
func (d *Device) SyncImages(ctx context.Context) error {
	d.seq.Lock()
	defer d.seq.Unlock()
	for p := 0; p < device.DioPorts; p++ {
		v, err := d.DioReadByte(ctx, p)
		if err != nil {
			return err
		}
		d.mu.Lock()
		d.dioImages[p] = v
		d.mu.Unlock()
	}
	return nil
}

func (d *Device) Handle() Handle {
	return d.h
}

func (d *Device) call(ctx context.Context, code Code, unit string, cmd driver.Cmd, param uint32) (int, error) {
	v, err := d.h.Ioctl(ctx, cmd, param)
	if err != nil {
		return 0, &Error{
			Code: code,
			Msg:  "MIO (" + unit + ") : " + cmd.String() + " failed",
			Err:  err,
		}
	}
	return v, nil
}

// command issues an ioctl that changes the card
func (d *Device) command(ctx context.Context, unit string, cmd driver.Cmd, param uint32) error {
	_, err := d.call(ctx, CommandWriteFailure, unit, cmd, param)
	return err
}

// read issues an ioctl that returns a value
func (d *Device) read(ctx context.Context, unit string, cmd driver.Cmd, param uint32) (int, error) {
	return d.call(ctx, ReadDataFailure, unit, cmd, param)
}
