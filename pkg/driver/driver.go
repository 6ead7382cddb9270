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

// Package driver is the PCM-MIO-G driver core: register access under a
// per card lock, the page banked DIO interrupt registers, the interrupt
// service routine, the per card event state and the ioctl dispatcher.
package driver

import (
	"sync"

	"github.com/winsystems/go-pcmmio/pkg/config"
	"github.com/winsystems/go-pcmmio/pkg/device"
	"github.com/winsystems/go-pcmmio/pkg/irq"
	"github.com/winsystems/go-pcmmio/pkg/log"
	"github.com/winsystems/go-pcmmio/pkg/port"
)

type Driver struct {
	mu      sync.Mutex
	devices [config.MaxDevices]*Device
	table   *irq.Table
}

// Load brings up every configured card. A card whose I/O region or IRQ
// cannot be taken is skipped; Load fails only when no card is usable.
func Load(cfg *config.Config, bus port.Bus, table *irq.Table) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lockDir := ""
	if cfg.Backend == config.BackendDevPort {
		lockDir = cfg.LockDir
	}

	drv := &Driver{table: table}
	loaded := 0
	for x, c := range cfg.Devices {
		if c.IO == 0 {
			continue
		}
		name := c.Name

		region, err := port.RequestRegion(c.IO, device.RegionSize, lockDir)
		if err != nil {
			log.Error("Unable to use I/O Address %04X: %s", c.IO, err)
			continue
		}

		d := newDevice(x, name, c.IO, c.IRQ, bus, cfg.PollRate)
		d.region = region
		if err := d.initIO(); err != nil {
			log.Error("[%s] could not initialize: %s", name, err)
			region.Release()
			continue
		}

		if c.IRQ != 0 {
			if table == nil {
				log.Error("[%s] no interrupt source for IRQ %d", name, c.IRQ)
				region.Release()
				continue
			}
			if err := table.Request(c.IRQ, name, d.isr); err != nil {
				log.Error("Unable to register IRQ %d: %s", c.IRQ, err)
				region.Release()
				continue
			}
		}

		drv.devices[x] = d
		loaded++
		log.Info("[%s] Added new device at 0x%04x irq %d (%s)", name, c.IO, c.IRQ, d.Mode)
	}

	if loaded == 0 {
		log.Warning("No resources available, driver terminating")
		return nil, ErrNoDevice
	}
	return drv, nil
}

// Unload removes the interrupt handlers and gives back the I/O regions
func (drv *Driver) Unload() {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	for x, d := range drv.devices {
		if d == nil {
			continue
		}
		if d.IRQ != 0 && drv.table != nil {
			drv.table.Free(d.IRQ, d.Name)
		}
		d.region.Release()
		drv.devices[x] = nil
		log.Info("[%s] removed", d.Name)
	}
}

// Open returns a handle on the card with the given minor number
func (drv *Driver) Open(minor int) (*File, error) {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	if minor < 0 || minor >= len(drv.devices) || drv.devices[minor] == nil {
		return nil, ErrNoDevice
	}
	d := drv.devices[minor]
	log.Debug("[%s] device_open", d.Name)
	return &File{dev: d}, nil
}

// OpenByName opens a card by its configured name
func (drv *Driver) OpenByName(name string) (*File, error) {
	d, err := drv.Device(name)
	if err != nil {
		return nil, err
	}
	return drv.Open(d.Index)
}

func (drv *Driver) Device(name string) (*Device, error) {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	for _, d := range drv.devices {
		if d != nil && d.Name == name {
			return d, nil
		}
	}
	return nil, ErrUnknownDevice{Name: name}
}

// Devices lists the loaded cards in minor order
func (drv *Driver) Devices() []*Device {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	var out []*Device
	for _, d := range drv.devices {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}
