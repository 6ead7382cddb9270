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
	"sync"
	"time"

	"github.com/winsystems/go-pcmmio/pkg/config"
	deviceifc "github.com/winsystems/go-pcmmio/pkg/device/ifc"
	"github.com/winsystems/go-pcmmio/pkg/driver"
	"github.com/winsystems/go-pcmmio/pkg/irq"
	"github.com/winsystems/go-pcmmio/pkg/log"
	"github.com/winsystems/go-pcmmio/pkg/port"
	"github.com/winsystems/go-pcmmio/pkg/port/sim"
	"github.com/winsystems/go-pcmmio/pkg/srv/control/ifc"
)

type ControlServer struct {
	context.Context
	*config.Config
	drv     *driver.Driver
	devices map[string]*Device
	state   *EventState
	api     ifc.ApiServer
	simBus  *sim.Bus
	closers []func()
	once    sync.Once
}

var _ ifc.ControlServer = &ControlServer{}

// openBackend returns the register bus and the interrupt table of the
// configured backend. The simulated bus gets one card per configured device.
func openBackend(cfg *config.Config) (port.Bus, *irq.Table, *sim.Bus, func(), error) {
	switch cfg.Backend {
	case config.BackendSim:
		bus := sim.NewBus()
		for _, d := range cfg.Devices {
			if d.IO == 0 {
				continue
			}
			if err := bus.Attach(sim.NewCard(d.IO, d.IRQ)); err != nil {
				return nil, nil, nil, nil, err
			}
		}
		return bus, irq.NewTable(bus.Connector()), bus, func() {}, nil
	default:
		dp, err := port.OpenDevPort()
		if err != nil {
			return nil, nil, nil, nil, err
		}
		paths := map[uint16]string{}
		for _, d := range cfg.Devices {
			if d.IRQ != 0 && d.UIO != "" {
				paths[d.IRQ] = d.UIO
			}
		}
		return dp, irq.NewTable(irq.UIOConnector(paths)), nil, func() { dp.Close() }, nil
	}
}

// NewControlServer loads the driver for the configured cards
func NewControlServer(ctx context.Context, cfg *config.Config) (ifc.ControlServer, error) {
	log.Debug("Initializing control server with backend: %s", cfg.Backend)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bus, table, simBus, closeBus, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	drv, err := driver.Load(cfg, bus, table)
	if err != nil {
		closeBus()
		return nil, err
	}

	s := &ControlServer{
		Context: ctx,
		Config:  cfg,
		drv:     drv,
		devices: map[string]*Device{},
		simBus:  simBus,
		closers: []func(){drv.Unload, closeBus},
	}
	for _, d := range drv.Devices() {
		f, err := drv.Open(d.Index)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.devices[d.Name] = NewDevice(f)
	}

	if cfg.Journal {
		state, err := NewEventState(ctx, cfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.state = state
		s.closers = append(s.closers, state.Close)
	}

	apiServer, err := NewApiServer(ctx, cfg, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.api = apiServer

	return s, nil
}

func (s *ControlServer) Run() error {
	defer s.Close()

	ctx, cancel := context.WithCancel(s.Context)
	defer cancel()
	s.startJournal(ctx)

	errChan := make(chan error, 1)
	go func() {
		if err := s.api.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Close detaches the journal, unloads the driver and closes the database
func (s *ControlServer) Close() {
	s.once.Do(func() {
		for _, d := range s.devices {
			d.file.Device().Notify(nil)
		}
		for _, c := range s.closers {
			c()
		}
	})
}

// startJournal starts one goroutine per card writing its delivered DIO
// events to the journal
func (s *ControlServer) startJournal(ctx context.Context) {
	if s.state == nil {
		return
	}
	for name, d := range s.devices {
		ch := make(chan int, driver.RingSize)
		d.file.Device().Notify(ch)
		go s.journal(ctx, name, ch)
	}
}

func (s *ControlServer) journal(ctx context.Context, deviceName string, ch <-chan int) {
	for {
		select {
		case <-ctx.Done():
			return
		case bit := <-ch:
			if _, err := s.state.Record(deviceName, bit, time.Now()); err != nil {
				log.Error("[%s] Could not journal DIO event %d: %s", deviceName, bit, err)
			}
		}
	}
}

func (s *ControlServer) GetDeviceByName(deviceName string) (deviceifc.Device, error) {
	d, ok := s.devices[deviceName]
	if !ok {
		return nil, driver.ErrUnknownDevice{Name: deviceName}
	}
	return d, nil
}

func (s *ControlServer) GetAllDevices() map[string]deviceifc.Device {
	result := make(map[string]deviceifc.Device, len(s.devices))
	for name, d := range s.devices {
		result[name] = d
	}
	return result
}

func (s *ControlServer) DioEvents(deviceName string, limit int) ([]*ifc.DioEvent, error) {
	if _, ok := s.devices[deviceName]; !ok {
		return nil, driver.ErrUnknownDevice{Name: deviceName}
	}
	if s.state == nil {
		return nil, ErrJournalDisabled
	}
	return s.state.Events(deviceName, limit)
}
