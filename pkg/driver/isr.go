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
	"github.com/winsystems/go-pcmmio/pkg/device"
	"github.com/winsystems/go-pcmmio/pkg/irq"
	"github.com/winsystems/go-pcmmio/pkg/log"
)

// acknowledge lists, per status bit, the register read that acknowledges
// the source and the flag it raises
var acknowledge = []struct {
	status byte
	offset uint8
	source Source
}{
	{device.IrqAdc1, device.RegAdc1DataHi, SourceAdc1},
	{device.IrqAdc2, device.RegAdc2DataHi, SourceAdc2},
	{device.IrqDac1, device.RegDac1DataHi, SourceDac1},
	{device.IrqDac2, device.RegDac2DataHi, SourceDac2},
}

// isr services one assertion of the card's interrupt line. The line may be
// shared, so a card with nothing latched still claims it.
func (d *Device) isr() irq.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dac2 |= device.Dac2IrqAccess
	d.win.WriteRegister(device.RegDac2Enable, d.dac2)
	status := d.win.ReadRegister(device.RegIrqStatus)
	log.Debug("[%s] interrupt register %02x", d.Name, status)

	var sources []Source
	var bits []int
	for _, a := range acknowledge {
		if status&a.status == 0 {
			continue
		}
		d.win.ReadRegister(a.offset)
		sources = append(sources, a.source)
	}
	if status&device.IrqDio != 0 {
		if bit := d.getIntLocked(); bit != 0 {
			log.Debug("[%s] buffering DIO interrupt on bit %d", d.Name, bit)
			bits = append(bits, bit)
			d.clrIntLocked(bit)
		}
		sources = append(sources, SourceDio)
	}

	d.events.deliver(sources, bits)

	if status&device.IrqAll == 0 {
		log.Debug("[%s] unknown interrupt", d.Name)
	}

	d.dac2 &^= device.Dac2IrqAccess
	d.win.WriteRegister(device.RegDac2Enable, d.dac2)

	if err := d.win.Err(); err != nil {
		log.Error("[%s] %s", d.Name, err)
	}
	return irq.Handled
}
