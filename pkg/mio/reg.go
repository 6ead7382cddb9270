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
	"fmt"

	"github.com/winsystems/go-pcmmio/pkg/device"
	"github.com/winsystems/go-pcmmio/pkg/driver"
)

func checkReg(offset uint8) error {
	if offset >= device.RegionSize {
		return errorf(BadValue, "MIO (REG) : Bad register offset 0x%02x", offset)
	}
	return nil
}

func (d *Device) ReadReg(ctx context.Context, offset uint8) (byte, error) {
	if err := checkReg(offset); err != nil {
		return 0, err
	}
	v, err := d.read(ctx, "REG", driver.MioReadReg, uint32(offset))
	return byte(v), err
}

func (d *Device) WriteReg(ctx context.Context, offset uint8, value byte) error {
	if err := checkReg(offset); err != nil {
		return err
	}
	return d.command(ctx, "REG", driver.MioWriteReg, uint32(value)<<8|uint32(offset))
}

// ReadIrqAssigned returns the interrupt line of the card, 0 when polled
func (d *Device) ReadIrqAssigned(ctx context.Context) (int, error) {
	return d.read(ctx, "IRQ", driver.ReadIrqAssigned, 0)
}

// RegValue is one named entry of a configuration dump
type RegValue struct {
	Name  string `json:"name"`
	Value byte   `json:"value"`
}

func (r RegValue) String() string {
	return fmt.Sprintf("%-16s 0x%02x", r.Name, r.Value)
}

type resource struct {
	enable  uint8
	rsrc    uint8
	image   func(d *Device) byte
	selects []byte
	names   []string
	status  string
}

var dumpResources = []resource{
	{
		enable:  device.RegAdc1Enable,
		rsrc:    device.RegAdc1Rsrc,
		image:   func(d *Device) byte { return d.adcImages[0] },
		selects: []byte{device.AdcRsrcSelect, device.DioRsrcSelect},
		names:   []string{"ADC1_RESOURCE", "DIO_RESOURCE"},
		status:  "ADC1_STATUS",
	},
	{
		enable:  device.RegAdc2Enable,
		rsrc:    device.RegAdc2Rsrc,
		image:   func(d *Device) byte { return d.adcImages[1] },
		selects: []byte{device.AdcRsrcSelect},
		names:   []string{"ADC2_RESOURCE"},
		status:  "ADC2_STATUS",
	},
	{
		enable:  device.RegDac1Enable,
		rsrc:    device.RegDac1Rsrc,
		image:   func(d *Device) byte { return d.dacImages[0] },
		selects: []byte{device.DacRsrcSelect},
		names:   []string{"DAC1_RESOURCE"},
		status:  "DAC1_STATUS",
	},
	{
		enable:  device.RegDac2Enable,
		rsrc:    device.RegDac2Rsrc,
		image:   func(d *Device) byte { return d.dacImages[1] },
		selects: []byte{device.DacRsrcSelect},
		names:   []string{"DAC2_RESOURCE"},
		status:  "DAC2_STATUS",
	},
}

var dumpPages = []struct {
	page byte
	name string
}{
	{device.PageEnable, "DIO_ENABLE"},
	{device.PagePolarity, "DIO_POLARITY"},
	{device.PageIntId, "DIO_INT_ID"},
}

// DumpConfig reads the resource registers behind each converter enable
// byte, the converter status bytes and the three DIO interrupt pages
func (d *Device) DumpConfig(ctx context.Context) ([]RegValue, error) {
	var out []RegValue
	for _, r := range dumpResources {
		d.mu.Lock()
		image := r.image(d)
		d.mu.Unlock()
		for i, sel := range r.selects {
			if err := d.WriteReg(ctx, r.enable, image|sel); err != nil {
				return nil, err
			}
			v, err := d.ReadReg(ctx, r.rsrc)
			if err != nil {
				return nil, err
			}
			out = append(out, RegValue{Name: r.names[i], Value: v})
		}
		if err := d.WriteReg(ctx, r.enable, image); err != nil {
			return nil, err
		}
		v, err := d.ReadReg(ctx, r.enable)
		if err != nil {
			return nil, err
		}
		out = append(out, RegValue{Name: r.status, Value: v})
	}

	for _, p := range dumpPages {
		for i := 0; i < device.DioIntPorts; i++ {
			offset := device.RegDioIntId + uint8(i)
			v, err := d.readPaged(ctx, p.page, offset)
			if err != nil {
				return nil, err
			}
			out = append(out, RegValue{Name: fmt.Sprintf("%s%d", p.name, i), Value: v})
		}
	}
	return out, nil
}
