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
	"sync"

	"golang.org/x/time/rate"

	"github.com/winsystems/go-pcmmio/pkg/device"
	"github.com/winsystems/go-pcmmio/pkg/port"
)

// Mode tells how a card delivers its events
type Mode int

const (
	// Interrupt cards have an IRQ line and buffer DIO events in the ISR
	Interrupt Mode = iota
	// Polled cards have no IRQ line; waits poll the registers
	Polled
)

func (m Mode) String() string {
	if m == Polled {
		return "polled"
	}
	return "interrupt"
}

// Device is one PCM-MIO-G card. mu serializes every register access,
// including the ISR's.
type Device struct {
	Index int
	Name  string
	IO    uint16
	IRQ   uint16
	Mode  Mode

	mu      sync.Mutex
	win     *port.Window
	dac2    byte
	images  [device.DioPorts]byte
	events  *events
	region  *port.Region
	limiter *rate.Limiter
}

// Info is a snapshot of a card's state
type Info struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	IO      uint16 `json:"io"`
	IRQ     uint16 `json:"irq"`
	Mode    string `json:"mode"`
	Pending int    `json:"pending"`
	// Dropped counts events lost to a full ring
	Dropped uint64 `json:"dropped"`

	// RelayDropped counts events a full Notify channel did not take
	RelayDropped uint64 `json:"relayDropped"`
}

func newDevice(index int, name string, io, irqNum uint16, bus port.Bus, pollRate int) *Device {
	d := &Device{
		Index:  index,
		Name:   name,
		IO:     io,
		IRQ:    irqNum,
		win:    port.NewWindow(bus, io),
		events: newEvents(),
	}
	if irqNum == 0 {
		d.Mode = Polled
	}
	if pollRate <= 0 {
		pollRate = 1000
	}
	d.limiter = rate.NewLimiter(rate.Limit(pollRate), 1)
	return d
}

func (d *Device) Info() Info {
	pending, dropped, relayDropped := d.events.stats()
	return Info{
		Index:   d.Index,
		Name:    d.Name,
		IO:      d.IO,
		IRQ:     d.IRQ,
		Mode:    d.Mode.String(),
		Pending: pending,
		Dropped: dropped,

		RelayDropped: relayDropped,
	}
}

// Notify relays every buffered DIO event to ch without blocking. Events are
// still buffered for the waiters. A nil ch stops the relay.
func (d *Device) Notify(ch chan<- int) {
	d.events.setTap(ch)
}

// withPage runs body with the DIO page register set to page and the device
// locked. The default page is selected again on every exit path.
func (d *Device) withPage(page byte, body func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pageLocked(page, body)
	return d.win.Err()
}

func (d *Device) pageLocked(page byte, body func()) {
	d.win.WriteRegister(device.RegDioPageLock, page)
	defer d.win.WriteRegister(device.RegDioPageLock, device.PageDefault)
	body()
}

func (d *Device) read(offset uint8) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.win.ReadRegister(offset)
	return v, d.win.Err()
}

func (d *Device) readWord(offset uint8) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.win.ReadWord(offset)
	return v, d.win.Err()
}

func (d *Device) write(offset uint8, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeLocked(offset, value)
	return d.win.Err()
}

func (d *Device) writeLocked(offset uint8, value byte) {
	switch {
	case offset == device.RegDac2Enable:
		// the IRQ register access bit belongs to the ISR
		d.dac2 = value &^ device.Dac2IrqAccess
		value = d.dac2
	case offset >= device.RegDioPort0 && offset <= device.RegDioPort5:
		d.images[offset-device.RegDioPort0] = value
	}
	d.win.WriteRegister(offset, value)
}

func (d *Device) writeWord(offset uint8, value uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.win.WriteWord(offset, value)
	return d.win.Err()
}

// initIO clears the DIO ports and disables every DIO interrupt
func (d *Device) initIO() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for x := uint8(0); x <= device.RegDioPending-device.RegDioPort0; x++ {
		d.win.WriteRegister(device.RegDioPort0+x, 0)
	}
	for x := range d.images {
		d.images[x] = 0
	}
	d.pageLocked(device.PageEnable, func() {
		for t := uint8(0); t < device.DioIntPorts; t++ {
			d.win.WriteRegister(device.RegDioEnable+t, 0)
		}
	})
	return d.win.Err()
}

func bitMask(bit int) (uint8, byte) {
	bit--
	return uint8(bit / 8), byte(1) << uint(bit%8)
}

// getIntLocked resolves the lowest latched DIO interrupt to a bit number
// 1..24, or 0 when none is pending
func (d *Device) getIntLocked() int {
	if d.win.ReadRegister(device.RegDioPending)&0x07 == 0 {
		return 0
	}
	bit := 0
	d.pageLocked(device.PageIntId, func() {
		for t := 0; t < device.DioIntPorts; t++ {
			id := d.win.ReadRegister(device.RegDioIntId + uint8(t))
			for x := 0; x < 8; x++ {
				if id&(1<<uint(x)) != 0 {
					bit = t*8 + x + 1
					return
				}
			}
		}
	})
	return bit
}

// clrIntLocked re-arms bit by clearing and setting its enable, which drops
// the latched interrupt
func (d *Device) clrIntLocked(bit int) {
	port, mask := bitMask(bit)
	d.pageLocked(device.PageEnable, func() {
		v := d.win.ReadRegister(device.RegDioEnable + port)
		v &^= mask
		d.win.WriteRegister(device.RegDioEnable+port, v)
		v |= mask
		d.win.WriteRegister(device.RegDioEnable+port, v)
	})
}

func validIntBit(bit int) bool {
	return bit >= 1 && bit <= device.DioIntBits
}

// EnableBitInt enables the edge interrupt of bit. falling selects the
// falling edge.
func (d *Device) EnableBitInt(bit int, falling bool) error {
	if !validIntBit(bit) {
		return ErrInvalidArgument
	}
	port, mask := bitMask(bit)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pageLocked(device.PageEnable, func() {
		v := d.win.ReadRegister(device.RegDioEnable + port)
		d.win.WriteRegister(device.RegDioEnable+port, v|mask)
	})
	d.pageLocked(device.PagePolarity, func() {
		v := d.win.ReadRegister(device.RegDioPolarity + port)
		if falling {
			v |= mask
		} else {
			v &^= mask
		}
		d.win.WriteRegister(device.RegDioPolarity+port, v)
	})
	return d.win.Err()
}

func (d *Device) DisableBitInt(bit int) error {
	if !validIntBit(bit) {
		return ErrInvalidArgument
	}
	port, mask := bitMask(bit)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pageLocked(device.PageEnable, func() {
		v := d.win.ReadRegister(device.RegDioEnable + port)
		d.win.WriteRegister(device.RegDioEnable+port, v&^mask)
	})
	return d.win.Err()
}

func (d *Device) ClrInt(bit int) error {
	if !validIntBit(bit) {
		return ErrInvalidArgument
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clrIntLocked(bit)
	return d.win.Err()
}

// readPaged reads one of the page banked registers 24..26
func (d *Device) readPaged(page byte, offset uint8) (byte, error) {
	if page&^device.PageMask != 0 || offset < device.RegDioIntId || offset >= device.RegDioIntId+device.DioIntPorts {
		return 0, ErrInvalidArgument
	}
	var v byte
	err := d.withPage(page, func() {
		v = d.win.ReadRegister(offset)
	})
	return v, err
}

// pollInt resolves and re-arms one latched DIO interrupt straight from the
// registers, the path of cards without an IRQ line
func (d *Device) pollInt() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bit := d.getIntLocked()
	if bit != 0 {
		d.clrIntLocked(bit)
	}
	return bit, d.win.Err()
}

// GetDIOEvent returns the next DIO event or 0 without blocking
func (d *Device) GetDIOEvent() (int, error) {
	if d.Mode == Polled {
		bit, err := d.pollInt()
		if bit != 0 {
			d.events.relay(bit)
		}
		return bit, err
	}
	bit, _ := d.events.PopDIOEvent()
	return bit, nil
}

// WaitDIOEvent blocks until a DIO event is available or ctx is done
func (d *Device) WaitDIOEvent(ctx context.Context) (int, error) {
	if d.Mode == Interrupt {
		return d.events.WaitDIOEvent(ctx)
	}
	for {
		bit, err := d.GetDIOEvent()
		if err != nil || bit != 0 {
			return bit, err
		}
		if err := d.pace(ctx); err != nil {
			return 0, err
		}
	}
}

// pace waits for the next poll slot. The limiter gives up early when the
// deadline falls before the slot, so the deadline is waited out here.
func (d *Device) pace(ctx context.Context) error {
	if err := d.limiter.Wait(ctx); err != nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

var statusRegisters = [sourceCount]uint8{
	SourceAdc1: device.RegAdc1Status,
	SourceAdc2: device.RegAdc2Status,
	SourceDac1: device.RegDac1Status,
	SourceDac2: device.RegDac2Status,
}

// WaitReady blocks until the next interrupt of source. Polled cards watch
// the ready bit of the converter instead.
func (d *Device) WaitReady(ctx context.Context, s Source) error {
	if d.Mode == Interrupt {
		return d.events.WaitReady(ctx, s)
	}
	if s == SourceDio {
		_, err := d.WaitDIOEvent(ctx)
		return err
	}
	for {
		v, err := d.read(statusRegisters[s])
		if err != nil {
			return err
		}
		if v&device.AdcReady != 0 {
			return nil
		}
		if err := d.pace(ctx); err != nil {
			return err
		}
	}
}
