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

package control

import (
	"context"

	"github.com/winsystems/go-pcmmio/pkg/device"
	deviceifc "github.com/winsystems/go-pcmmio/pkg/device/ifc"
	"github.com/winsystems/go-pcmmio/pkg/driver"
	"github.com/winsystems/go-pcmmio/pkg/layers"
	"github.com/winsystems/go-pcmmio/pkg/log"
	"github.com/winsystems/go-pcmmio/pkg/mio"
)

// Device serves one loaded card through an open driver file
type Device struct {
	file *driver.File
	mio  *mio.Device
}

var _ deviceifc.Device = &Device{}

func NewDevice(file *driver.File) *Device {
	return &Device{
		file: file,
		mio:  mio.New(file),
	}
}

func (d *Device) Ioctl(ctx context.Context, cmd driver.Cmd, param uint32) (int, error) {
	return d.file.Ioctl(ctx, cmd, param)
}

func (d *Device) RegRead(ctx context.Context, addr uint8) (*layers.Reg, error) {
	value, err := d.mio.ReadReg(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &layers.Reg{Addr: addr, Value: value}, nil
}

// RegReadAll reads the registers that can be read without side effects
func (d *Device) RegReadAll(ctx context.Context) ([]*layers.Reg, error) {
	var regs []*layers.Reg
	for alias := device.RegAlias(0); alias < device.RegAliasLimit; alias++ {
		reg, err := d.RegRead(ctx, device.RegMap[alias])
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

func (d *Device) RegWrite(ctx context.Context, reg *layers.Reg) error {
	log.Debug("[%s] Writing register: Addr: %x Value: %x", d.GetName(), reg.Addr, reg.Value)
	return d.mio.WriteReg(ctx, reg.Addr, reg.Value)
}

func (d *Device) DumpConfig(ctx context.Context) ([]mio.RegValue, error) {
	return d.mio.DumpConfig(ctx)
}

func (d *Device) Info() driver.Info {
	return d.file.Device().Info()
}

func (d *Device) GetName() string {
	return d.file.Device().Name
}
