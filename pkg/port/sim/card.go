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

// Package sim is a register level model of the PCM-MIO-G card used when no
// hardware is present. It models the DIO edge detection with its page banked
// polarity, enable and interrupt id registers, the composite interrupt status
// register, ADC conversions with their one conversion latency and DAC
// command decoding.
package sim

import (
	"sync"

	"github.com/winsystems/go-pcmmio/pkg/device"
)

type Card struct {
	IO  uint16
	IRQ uint16

	mu    sync.Mutex
	regs  [device.RegionSize]byte
	raise func()

	pins     [device.DioPorts]byte
	page     byte
	polarity [device.DioIntPorts]byte
	enable   [device.DioIntPorts]byte
	intId    [device.DioIntPorts]byte

	irqStatus byte
	adcEnable [2]byte
	dacEnable [2]byte

	adcInputs  [16]uint16
	adcPending [2]uint16
	adcData    [2]uint16

	dacOutputs [8]uint16
	dacSpans   [8]byte
}

func NewCard(io, irq uint16) *Card {
	return &Card{
		IO:   io,
		IRQ:  irq,
		page: device.Page0,
	}
}

// ReadAt reads registers relative to the card base
func (c *Card) ReadAt(p []byte, off int64) (int, error) {
	for i := range p {
		p[i] = c.read(uint8(off + int64(i)))
	}
	return len(p), nil
}

// WriteAt writes registers relative to the card base
func (c *Card) WriteAt(p []byte, off int64) (int, error) {
	for i := range p {
		c.write(uint8(off+int64(i)), p[i])
	}
	return len(p), nil
}

func (c *Card) pendingSummary() byte {
	var summary byte
	for t := 0; t < device.DioIntPorts; t++ {
		if c.intId[t] != 0 {
			summary |= 1 << t
		}
	}
	return summary
}

func (c *Card) status() byte {
	s := c.irqStatus
	if c.pendingSummary() != 0 {
		s |= device.IrqDio
	}
	return s
}

func (c *Card) read(offset uint8) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch offset {
	case device.RegAdc1DataLo, device.RegAdc2DataLo:
		return byte(c.adcData[offset/device.ChipStride])
	case device.RegAdc1DataHi, device.RegAdc2DataHi:
		chip := offset / device.ChipStride
		c.irqStatus &^= device.IrqAdc1 << chip
		return byte(c.adcData[chip] >> 8)
	case device.RegAdc1Status, device.RegAdc2Status:
		return device.AdcReady
	case device.RegDac1DataHi:
		c.irqStatus &^= device.IrqDac1
		return c.regs[offset]
	case device.RegDac2DataHi:
		c.irqStatus &^= device.IrqDac2
		return c.regs[offset]
	case device.RegDac1Status:
		return device.DacReady
	case device.RegDac2Status:
		if c.dacEnable[1]&device.Dac2IrqAccess != 0 {
			return c.status()
		}
		return device.DacReady
	case device.RegDioPending:
		return c.pendingSummary()
	case device.RegDioPageLock:
		return c.page
	}
	if offset >= device.RegDioPort0 && offset <= device.RegDioPort5 {
		return c.pins[offset-device.RegDioPort0]
	}
	if offset >= device.RegDioIntId && offset < device.RegDioIntId+device.DioIntPorts {
		t := offset - device.RegDioIntId
		switch c.page {
		case device.PagePolarity:
			return c.polarity[t]
		case device.PageEnable:
			return c.enable[t]
		case device.PageIntId:
			return c.intId[t]
		}
	}
	return c.regs[offset%device.RegionSize]
}

func (c *Card) write(offset uint8, value byte) {
	c.mu.Lock()
	raise := c.writeLocked(offset, value)
	fire := c.raise
	c.mu.Unlock()
	if raise && fire != nil {
		fire()
	}
}

// writeLocked applies a register write and reports whether the card
// asserts its interrupt line as a result
func (c *Card) writeLocked(offset uint8, value byte) bool {
	switch offset {
	case device.RegAdc1Command, device.RegAdc2Command:
		return c.convert(offset/device.ChipStride, value)
	case device.RegAdc1Enable, device.RegAdc2Enable:
		c.adcEnable[offset/device.ChipStride] = value
		return false
	case device.RegDac1Command, device.RegDac2Command:
		return c.dacCommand((offset-device.RegDac1DataLo)/device.ChipStride, value)
	case device.RegDac1Enable:
		c.dacEnable[0] = value
		return false
	case device.RegDac2Enable:
		c.dacEnable[1] = value
		// the line stays asserted while any source is latched, so the end
		// of an interrupt with sources left re-triggers the controller
		return value&device.Dac2IrqAccess == 0 && c.status() != 0
	case device.RegDioPending:
		return false
	case device.RegDioPageLock:
		c.page = value & device.PageMask
		return false
	}
	if offset >= device.RegDioPort0 && offset <= device.RegDioPort5 {
		return c.drive(int(offset-device.RegDioPort0), value)
	}
	if offset >= device.RegDioIntId && offset < device.RegDioIntId+device.DioIntPorts {
		t := offset - device.RegDioIntId
		switch c.page {
		case device.PagePolarity:
			c.polarity[t] = value
			return false
		case device.PageEnable:
			// disabling a bit drops its latched interrupt
			c.intId[t] &= value
			c.enable[t] = value
			return false
		case device.PageIntId:
			return false
		}
	}
	c.regs[offset%device.RegionSize] = value
	return false
}

// drive changes the level of a DIO port and latches the enabled edges
func (c *Card) drive(port int, value byte) bool {
	old := c.pins[port]
	c.pins[port] = value
	if port >= device.DioIntPorts {
		return false
	}
	changed := old ^ value
	latched := false
	for x := uint(0); x < 8; x++ {
		mask := byte(1) << x
		if changed&mask == 0 || c.enable[port]&mask == 0 {
			continue
		}
		rising := value&mask != 0
		falling := c.polarity[port]&mask != 0
		if rising != falling {
			c.intId[port] |= mask
			latched = true
		}
	}
	return latched
}

// convert starts an ADC conversion. The data register holds the result of
// the previous conversion on the chip.
func (c *Card) convert(chip uint8, command byte) bool {
	channel := int(chip)*8 + int(((command>>3)&0x6)|((command>>6)&0x1))
	c.adcData[chip] = c.adcPending[chip]
	c.adcPending[chip] = c.adcInputs[channel]
	if c.adcEnable[chip]&device.AdcIrqEnable != 0 {
		c.irqStatus |= device.IrqAdc1 << chip
		return true
	}
	return false
}

func (c *Card) dacCommand(chip uint8, command byte) bool {
	base := device.RegDac1DataLo + chip*device.ChipStride
	data := uint16(c.regs[base]) | uint16(c.regs[base+1])<<8
	channel := int(chip)*4 + int((command>>1)&0x3)
	switch command & 0xf0 {
	case 0x60:
		c.dacSpans[channel] = byte(data & 0x7)
	case 0x70:
		c.dacOutputs[channel] = data
	}
	if c.dacEnable[chip]&0x01 != 0 {
		if chip == 0 {
			c.irqStatus |= device.IrqDac1
		} else {
			c.irqStatus |= device.IrqDac2
		}
		return true
	}
	return false
}

// SetPin drives DIO bit 1..48 from the outside
func (c *Card) SetPin(bit int, level bool) {
	bit--
	port := bit / 8
	mask := byte(1) << uint(bit%8)
	c.mu.Lock()
	value := c.pins[port] &^ mask
	if level {
		value |= mask
	}
	raise := c.drive(port, value)
	fire := c.raise
	c.mu.Unlock()
	if raise && fire != nil {
		fire()
	}
}

func (c *Card) Port(port int) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pins[port]
}

// Page returns the raw value of the page lock register
func (c *Card) Page() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

func (c *Card) SetAnalogInput(channel int, value uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adcInputs[channel] = value
}

func (c *Card) DacOutput(channel int) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dacOutputs[channel]
}

func (c *Card) DacSpan(channel int) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dacSpans[channel]
}

// Assert latches raw interrupt status bits and raises the line, as a
// converter finishing work would
func (c *Card) Assert(bits byte) {
	c.mu.Lock()
	c.irqStatus |= bits &^ device.IrqDio
	fire := c.raise
	c.mu.Unlock()
	if fire != nil {
		fire()
	}
}

func (c *Card) connect(raise func()) {
	c.mu.Lock()
	c.raise = raise
	c.mu.Unlock()
}
