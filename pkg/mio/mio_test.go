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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winsystems/go-pcmmio/pkg/config"
	"github.com/winsystems/go-pcmmio/pkg/device"
	"github.com/winsystems/go-pcmmio/pkg/driver"
	"github.com/winsystems/go-pcmmio/pkg/irq"
	"github.com/winsystems/go-pcmmio/pkg/port/sim"
)

func loadCard(t *testing.T, irqNum uint16) (*sim.Card, *driver.File) {
	t.Helper()
	card := sim.NewCard(0x300, irqNum)
	bus := sim.NewBus()
	require.NoError(t, bus.Attach(card))
	cfg := config.NewDefaultConfig()
	cfg.Backend = config.BackendSim
	cfg.Devices = []*config.Device{{Name: device.NodeName(0), IO: card.IO, IRQ: irqNum}}
	drv, err := driver.Load(cfg, bus, irq.NewTable(bus.Connector()))
	require.NoError(t, err)
	t.Cleanup(drv.Unload)
	f, err := drv.Open(0)
	require.NoError(t, err)
	return card, f
}

func openCard(t *testing.T, irqNum uint16) (*sim.Card, *Device) {
	t.Helper()
	card, f := loadCard(t, irqNum)
	d, err := Open(context.Background(), f)
	require.NoError(t, err)
	return card, d
}

func TestDioBitRoundtrip(t *testing.T) {
	ctx := context.Background()
	card, d := openCard(t, 0)

	for bit := 1; bit <= device.DioBits; bit++ {
		require.NoError(t, d.DioSetBit(ctx, bit))
		v, err := d.DioReadBit(ctx, bit)
		require.NoError(t, err)
		assert.Equal(t, byte(1), v, "bit %d", bit)
	}
	for p := 0; p < device.DioPorts; p++ {
		assert.Equal(t, byte(0xff), card.Port(p))
	}
	for bit := 1; bit <= device.DioBits; bit += 2 {
		require.NoError(t, d.DioClrBit(ctx, bit))
	}
	for bit := 1; bit <= device.DioBits; bit++ {
		v, err := d.DioReadBit(ctx, bit)
		require.NoError(t, err)
		assert.Equal(t, byte(bit%2^1), v, "bit %d", bit)
	}
	assert.Equal(t, byte(0xaa), card.Port(3))
}

func TestDioByteSequence(t *testing.T) {
	ctx := context.Background()
	card, d := openCard(t, 0)

	steps := []struct {
		op   func() error
		want byte
	}{
		{func() error { return d.DioWriteByte(ctx, 0, 0xa5) }, 0xa5},
		{func() error { return d.DioClrBit(ctx, 1) }, 0xa4},
		{func() error { return d.DioSetBit(ctx, 7) }, 0xe4},
		{func() error { return d.DioWriteByte(ctx, 0, 0xc3) }, 0xc3},
	}
	for _, s := range steps {
		require.NoError(t, s.op())
		assert.Equal(t, s.want, card.Port(0))
		v, err := d.DioReadByte(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, s.want, v)
	}
}

func TestOpenLoadsImages(t *testing.T) {
	ctx := context.Background()
	card, f := loadCard(t, 0)
	card.SetPin(9, true)

	d, err := Open(ctx, f)
	require.NoError(t, err)
	require.NoError(t, d.DioSetBit(ctx, 10))
	assert.Equal(t, byte(0x03), card.Port(1))
}

func TestAdcConvertAllChannels(t *testing.T) {
	ctx := context.Background()
	card, d := openCard(t, 0)
	want := make([]uint16, AdcChannels)
	for ch := range want {
		want[ch] = uint16(ch*100 + 1)
		card.SetAnalogInput(ch, want[ch])
	}

	got, err := d.AdcConvertAllChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAdcConvertSingleRepeated(t *testing.T) {
	ctx := context.Background()
	card, d := openCard(t, 0)
	card.SetAnalogInput(11, 0x7ff0)

	got, err := d.AdcConvertSingleRepeated(ctx, 11, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x7ff0, 0x7ff0, 0x7ff0, 0x7ff0, 0x7ff0}, got)
}

func TestAdcChannelModes(t *testing.T) {
	ctx := context.Background()
	_, d := openCard(t, 0)

	assert.Equal(t, AdcCh3Select, d.AdcChannelMode(3))
	assert.Equal(t, AdcCh5Select, d.AdcChannelMode(13))

	require.NoError(t, d.AdcSetChannelMode(13, AdcSingleEnded, AdcUnipolar, AdcTop10V))
	assert.Equal(t, AdcCh5Select|AdcSingleEnded|AdcUnipolar|AdcTop10V, d.AdcChannelMode(13))

	for ch := 0; ch < 8; ch++ {
		assert.Equal(t, ch, AdcCommandChannel(0, adcChannelSelect[ch]))
		assert.Equal(t, ch+8, AdcCommandChannel(1, adcChannelSelect[ch]|AdcSingleEnded))
	}

	require.NoError(t, d.AdcWriteCommand(ctx, 1, AdcCh2Select|AdcTop10V))
	assert.Equal(t, AdcCh2Select|AdcTop10V, d.AdcChannelMode(10))
}

func TestDacSpanAndOutput(t *testing.T) {
	ctx := context.Background()
	card, d := openCard(t, 0)

	require.NoError(t, d.DacSetSpan(ctx, 5, DacSpanBi10))
	require.NoError(t, d.DacSetOutput(ctx, 5, 0x1234))
	require.NoError(t, d.DacSetOutput(ctx, 0, 0xffff))
	assert.Equal(t, DacSpanBi10, card.DacSpan(5))
	assert.Equal(t, uint16(0x1234), card.DacOutput(5))
	assert.Equal(t, uint16(0xffff), card.DacOutput(0))
	assert.Equal(t, uint16(0), card.DacOutput(4))
}

func TestDacBufferedOutput(t *testing.T) {
	ctx := context.Background()
	card, d := openCard(t, 0)

	n, err := d.DacBufferedOutput(ctx, 0, []DacOutput{
		{Command: DacCmdSetOutput, Value: 100},
		{Command: DacCmdSetOutput | 0x02, Value: 200},
		{Command: DacCmdEnd},
		{Command: DacCmdSetOutput | 0x04, Value: 300},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, uint16(100), card.DacOutput(0))
	assert.Equal(t, uint16(200), card.DacOutput(1))
	assert.Equal(t, uint16(0), card.DacOutput(2))
}

func TestErrorCodes(t *testing.T) {
	ctx := context.Background()
	_, d := openCard(t, 0)

	tests := []struct {
		name string
		err  error
		code Code
		msg  string
	}{
		{"bit 0", func() error { _, err := d.DioReadBit(ctx, 0); return err }(), BadChannelNumber, "MIO (DIO) : Bad bit number 0"},
		{"bit 49", d.DioSetBit(ctx, 49), BadChannelNumber, "MIO (DIO) : Bad bit number 49"},
		{"bit value", d.DioWriteBit(ctx, 1, 2), BadValue, "MIO (DIO) : Bad value 2"},
		{"port", d.DioWriteByte(ctx, 6, 0), BadChannelNumber, "MIO (DIO) : Bad port number 6"},
		{"int bit", d.DioEnabBitInt(ctx, 25, Rising), BadChannelNumber, "MIO (DIO) : Bad bit number 25"},
		{"polarity", d.DioEnabBitInt(ctx, 1, 2), BadPolarity, "MIO (DIO) : Bad interrupt polarity 2"},
		{"span", d.DacSetSpan(ctx, 0, 6), BadSpan, "MIO (DAC) : Bad Span Value 6"},
		{"dac channel", d.DacSetOutput(ctx, 8, 0), BadChannelNumber, "MIO (DAC) : Bad Channel Number 8"},
		{"adc channel", d.AdcSetChannelMode(16, AdcSingleEnded, AdcBipolar, AdcTop5V), BadChannelNumber, "MIO (ADC) : Bad Channel Number 16"},
		{"adc mode", d.AdcSetChannelMode(0, 0x01, AdcBipolar, AdcTop5V), BadModeNumber, "MIO (ADC) : Bad Mode Number"},
		{"adc range", d.AdcSetChannelMode(0, AdcSingleEnded, AdcBipolar, 0x02), BadRange, "MIO (ADC) : Bad Range Value"},
		{"adc chip", d.AdcEnableInterrupt(ctx, 2), BadChipNum, "MIO (ADC) : Bad ADC Number 2"},
		{"null list", func() error { _, err := d.DacBufferedOutput(ctx, 0, nil); return err }(), NullPointer, "MIO (DAC) : Null output list"},
		{"register", d.WriteReg(ctx, 0x20, 0), BadValue, "MIO (REG) : Bad register offset 0x20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.Equal(t, tt.code, ErrorCode(tt.err))
			assert.Equal(t, tt.msg, tt.err.Error())
		})
	}

	assert.Equal(t, Success, ErrorCode(nil))
	assert.Equal(t, CommandWriteFailure, ErrorCode(errors.New("other")))
	assert.Equal(t, "MIO_BAD_SPAN", BadSpan.String())
}

func TestDriverErrorsAreWrapped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, d := openCard(t, 0)

	_, err := d.DioWaitInt(ctx)
	require.Error(t, err)
	assert.Equal(t, ReadDataFailure, ErrorCode(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "MIO (DIO) : DIO_WAIT_INT failed")
}

func TestWaitReadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := waitReady(ctx, func() (byte, error) { return 0, nil }, device.AdcReady)
	assert.ErrorIs(t, err, context.Canceled)

	err = waitReady(context.Background(), func() (byte, error) { return 0, driver.ErrIO }, device.AdcReady)
	assert.ErrorIs(t, err, driver.ErrIO)
}

func TestAdcWaitInt(t *testing.T) {
	ctx := context.Background()
	_, d := openCard(t, 10)
	require.NoError(t, d.AdcEnableInterrupt(ctx, 1))

	done := make(chan error, 1)
	go func() { done <- d.AdcWaitInt(ctx, 1) }()

	// the wait forgets interrupts raised before it started, so keep converting
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			return
		case <-tick.C:
			require.NoError(t, d.AdcStartConversion(ctx, 9))
		case <-deadline:
			t.Fatal("no ADC2 interrupt")
		}
	}
}

func TestDioInterrupts(t *testing.T) {
	ctx := context.Background()
	card, d := openCard(t, 10)

	irqNum, err := d.ReadIrqAssigned(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, irqNum)

	require.NoError(t, d.DioEnabBitInt(ctx, 3, Rising))
	require.NoError(t, d.DioEnabBitInt(ctx, 20, Falling))
	card.SetPin(3, true)

	bit, err := d.DioWaitInt(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, bit)

	card.SetPin(20, true)
	card.SetPin(20, false)
	bit, err = d.DioWaitInt(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, bit)

	bit, err = d.DioGetInt(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, bit)

	require.NoError(t, d.DioDisabBitInt(ctx, 3))
	card.SetPin(3, false)
	card.SetPin(3, true)
	bit, err = d.DioGetInt(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, bit)
	assert.Equal(t, device.PageDefault, card.Page())
}

func TestDumpConfig(t *testing.T) {
	ctx := context.Background()
	card, d := openCard(t, 0)
	require.NoError(t, d.DioEnabBitInt(ctx, 1, Falling))
	require.NoError(t, d.DioEnabBitInt(ctx, 10, Rising))

	regs, err := d.DumpConfig(ctx)
	require.NoError(t, err)
	require.Len(t, regs, 18)

	values := map[string]byte{}
	for _, r := range regs {
		values[r.Name] = r.Value
	}
	assert.Equal(t, byte(0x01), values["DIO_ENABLE0"])
	assert.Equal(t, byte(0x02), values["DIO_ENABLE1"])
	assert.Equal(t, byte(0x00), values["DIO_ENABLE2"])
	assert.Equal(t, byte(0x01), values["DIO_POLARITY0"])
	assert.Equal(t, byte(0x00), values["DIO_POLARITY1"])
	assert.Equal(t, byte(0x00), values["DIO_INT_ID0"])
	assert.Equal(t, device.AdcReady, values["ADC1_STATUS"])
	assert.Equal(t, device.DacReady, values["DAC2_STATUS"])
	assert.Equal(t, "DIO_RESOURCE", regs[1].Name)
	assert.Equal(t, device.PageDefault, card.Page())
}

func TestResetDevice(t *testing.T) {
	ctx := context.Background()
	card, d := openCard(t, 0)
	require.NoError(t, d.DioWriteByte(ctx, 2, 0x5a))
	require.NoError(t, d.DioWriteByte(ctx, 5, 0xff))
	require.NoError(t, d.DioEnabBitInt(ctx, 17, Rising))

	require.NoError(t, d.DioResetDevice(ctx))
	for p := 0; p < device.DioPorts; p++ {
		assert.Equal(t, byte(0), card.Port(p))
	}
	regs, err := d.DumpConfig(ctx)
	require.NoError(t, err)
	for _, r := range regs[9:12] {
		assert.Equal(t, byte(0), r.Value, r.Name)
	}
}

// slowHandle stretches every ioctl so that unserialized bit writes interleave
type slowHandle struct {
	h Handle
}

func (s slowHandle) Ioctl(ctx context.Context, cmd driver.Cmd, param uint32) (int, error) {
	time.Sleep(time.Millisecond)
	return s.h.Ioctl(ctx, cmd, param)
}

func TestDioWriteBitConcurrent(t *testing.T) {
	ctx := context.Background()
	card, f := loadCard(t, 0)
	d, err := Open(ctx, slowHandle{f})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for bit := 1; bit <= 8; bit++ {
		wg.Add(1)
		go func(bit int) {
			defer wg.Done()
			assert.NoError(t, d.DioSetBit(ctx, bit))
		}(bit)
	}
	wg.Wait()
	assert.Equal(t, byte(0xff), card.Port(0))
}

// legacyHandle answers EINVAL to the commands past MIO_READ_REG, the way
// the kernel module does
type legacyHandle struct {
	h Handle

	mu       sync.Mutex
	rejected int
}

func (l *legacyHandle) Ioctl(ctx context.Context, cmd driver.Cmd, param uint32) (int, error) {
	if cmd.Nr() > driver.MioReadReg.Nr() {
		l.mu.Lock()
		l.rejected++
		l.mu.Unlock()
		return 0, driver.ErrInvalidArgument
	}
	return l.h.Ioctl(ctx, cmd, param)
}

func TestDioInterruptsOverRegisters(t *testing.T) {
	ctx := context.Background()
	card, f := loadCard(t, 10)
	h := &legacyHandle{h: f}
	d, err := Open(ctx, h)
	require.NoError(t, err)

	require.NoError(t, d.DioEnabBitInt(ctx, 3, Rising))
	require.NoError(t, d.DioEnabBitInt(ctx, 10, Falling))
	assert.Equal(t, device.PageDefault, card.Page())
	assert.Equal(t, 1, h.rejected)

	card.SetPin(3, true)
	bit, err := d.DioWaitInt(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, bit)

	regs, err := d.DumpConfig(ctx)
	require.NoError(t, err)
	require.Len(t, regs, 18)
	values := map[string]byte{}
	for _, r := range regs {
		values[r.Name] = r.Value
	}
	assert.Equal(t, byte(0x04), values["DIO_ENABLE0"])
	assert.Equal(t, byte(0x02), values["DIO_ENABLE1"])
	assert.Equal(t, byte(0x00), values["DIO_POLARITY0"])
	assert.Equal(t, byte(0x02), values["DIO_POLARITY1"])

	require.NoError(t, d.DioClrInt(ctx, 3))
	require.NoError(t, d.DioDisabBitInt(ctx, 10))
	regs, err = d.DumpConfig(ctx)
	require.NoError(t, err)
	for _, r := range regs {
		values[r.Name] = r.Value
	}
	assert.Equal(t, byte(0x04), values["DIO_ENABLE0"])
	assert.Equal(t, byte(0x00), values["DIO_ENABLE1"])
	assert.Equal(t, device.PageDefault, card.Page())
	assert.Equal(t, 1, h.rejected)
}

func TestKernelHandleUsesRegisters(t *testing.T) {
	d := New(&KernelHandle{})
	assert.True(t, d.pagedRegs)
}
