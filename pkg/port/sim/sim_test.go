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

package sim

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winsystems/go-pcmmio/pkg/device"
	"github.com/winsystems/go-pcmmio/pkg/irq"
	"github.com/winsystems/go-pcmmio/pkg/port"
)

func newWindow(t *testing.T) (*Card, *port.Window) {
	bus := NewBus()
	card := NewCard(0x300, 10)
	require.NoError(t, bus.Attach(card))
	return card, port.NewWindow(bus, 0x300)
}

func TestAttachOverlap(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Attach(NewCard(0x300, 10)))
	assert.Error(t, bus.Attach(NewCard(0x310, 10)))
	require.NoError(t, bus.Attach(NewCard(0x320, 10)))

	buf := make([]byte, 2)
	_, err := bus.ReadAt(buf, 0x200)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff}, buf)
}

func TestDioPageWindow(t *testing.T) {
	card, w := newWindow(t)

	w.WriteRegister(device.RegDioPageLock, device.PageEnable)
	w.WriteRegister(device.RegDioEnable, 0x0f)
	w.WriteRegister(device.RegDioPageLock, device.PagePolarity)
	w.WriteRegister(device.RegDioPolarity, 0x03)
	assert.Equal(t, byte(0x03), w.ReadRegister(device.RegDioPolarity))
	w.WriteRegister(device.RegDioPageLock, device.PageEnable)
	assert.Equal(t, byte(0x0f), w.ReadRegister(device.RegDioEnable))
	assert.Equal(t, device.PageEnable, card.Page())
}

func TestEdgeLatch(t *testing.T) {
	card, w := newWindow(t)
	w.WriteRegister(device.RegDioPageLock, device.PageEnable)
	w.WriteRegister(device.RegDioEnable, 0x03)
	w.WriteRegister(device.RegDioPageLock, device.PagePolarity)
	// bit 2 triggers on the falling edge
	w.WriteRegister(device.RegDioPolarity, 0x02)
	w.WriteRegister(device.RegDioPageLock, device.PageIntId)

	card.SetPin(1, true)
	card.SetPin(2, true)
	assert.Equal(t, byte(0x01), w.ReadRegister(device.RegDioIntId))
	assert.Equal(t, byte(0x01), w.ReadRegister(device.RegDioPending))

	card.SetPin(2, false)
	assert.Equal(t, byte(0x03), w.ReadRegister(device.RegDioIntId))

	// a transition on a disabled bit latches nothing
	card.SetPin(9, true)
	assert.Equal(t, byte(0x00), w.ReadRegister(device.RegDioIntId+1))

	w.WriteRegister(device.RegDioPageLock, device.PageEnable)
	w.WriteRegister(device.RegDioEnable, 0x02)
	w.WriteRegister(device.RegDioPageLock, device.PageIntId)
	assert.Equal(t, byte(0x02), w.ReadRegister(device.RegDioIntId))
}

func TestIrqStatusAccess(t *testing.T) {
	card, w := newWindow(t)
	card.Assert(device.IrqAdc2 | device.IrqDac1)

	assert.Equal(t, device.DacReady, w.ReadRegister(device.RegDac2Status))
	w.WriteRegister(device.RegDac2Enable, device.Dac2IrqAccess)
	assert.Equal(t, device.IrqAdc2|device.IrqDac1, w.ReadRegister(device.RegIrqStatus))

	w.ReadRegister(device.RegAdc2DataHi)
	w.ReadRegister(device.RegDac1DataHi)
	assert.Equal(t, byte(0), w.ReadRegister(device.RegIrqStatus))
}

func TestAdcLatency(t *testing.T) {
	card, w := newWindow(t)
	card.SetAnalogInput(0, 0x1111)
	card.SetAnalogInput(3, 0x3333)
	card.SetAnalogInput(12, 0xcccc)

	w.WriteRegister(device.RegAdc1Command, 0x80)
	w.ReadWord(device.RegAdc1DataLo)
	// channel 3 select code
	w.WriteRegister(device.RegAdc1Command, 0x80|0x50)
	assert.Equal(t, uint16(0x1111), w.ReadWord(device.RegAdc1DataLo))
	w.WriteRegister(device.RegAdc1Command, 0x80|0x50)
	assert.Equal(t, uint16(0x3333), w.ReadWord(device.RegAdc1DataLo))

	// chip 2 channel 4 is input 12
	w.WriteRegister(device.RegAdc2Command, 0x80|0x20)
	w.WriteRegister(device.RegAdc2Command, 0x80|0x20)
	assert.Equal(t, uint16(0xcccc), w.ReadWord(device.RegAdc2DataLo))
	assert.Equal(t, device.AdcReady, w.ReadRegister(device.RegAdc2Status)&device.AdcReady)
}

func TestDacCommands(t *testing.T) {
	card, w := newWindow(t)
	w.WriteWord(device.RegDac2DataLo, 0x0003)
	w.WriteRegister(device.RegDac2Command, 0x60|(1<<1))
	w.WriteWord(device.RegDac2DataLo, 0xabcd)
	w.WriteRegister(device.RegDac2Command, 0x70|(1<<1))
	assert.Equal(t, byte(3), card.DacSpan(5))
	assert.Equal(t, uint16(0xabcd), card.DacOutput(5))
}

func TestConnectorRaisesLine(t *testing.T) {
	bus := NewBus()
	card := NewCard(0x300, 11)
	require.NoError(t, bus.Attach(card))
	w := port.NewWindow(bus, 0x300)

	table := irq.NewTable(bus.Connector())
	var hits int32
	require.NoError(t, table.Request(11, "t", func() irq.Result {
		atomic.AddInt32(&hits, 1)
		return irq.Handled
	}))
	defer table.Free(11, "t")

	assert.Error(t, irq.NewTable(bus.Connector()).Request(3, "x", func() irq.Result { return irq.None }))

	w.WriteRegister(device.RegAdc1Enable, device.AdcIrqEnable)
	w.WriteRegister(device.RegAdc1Command, 0x80)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&hits) >= 1 }, time.Second, time.Millisecond)
}
