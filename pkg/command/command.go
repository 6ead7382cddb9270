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

package command

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/winsystems/go-pcmmio/pkg/config"
	"github.com/winsystems/go-pcmmio/pkg/mio"
)

// Target selects how a command reaches a card
type Target struct {
	Device string
	// Kernel opens the /dev node of the card instead of going through the
	// control server
	Kernel bool
}

// OpenDevice returns a library handle on the target card with its port
// images loaded. The returned func releases the underlying handle.
func OpenDevice(ctx context.Context, cfg *config.Config, target Target) (*mio.Device, func(), error) {
	if !target.Kernel {
		client := NewApiClient(cfg)
		d, err := mio.Open(ctx, client.Handle(target.Device))
		if err != nil {
			return nil, nil, err
		}
		return d, func() {}, nil
	}

	index := -1
	for x, d := range cfg.Devices {
		if d.Name == target.Device {
			index = x
			break
		}
	}
	if index < 0 {
		return nil, nil, fmt.Errorf("device %s is not configured", target.Device)
	}
	h, err := mio.OpenKernel(index)
	if err != nil {
		return nil, nil, err
	}
	d, err := mio.Open(ctx, h)
	if err != nil {
		h.Close()
		return nil, nil, err
	}
	return d, func() { h.Close() }, nil
}

// Summary of a series of conversions
type Summary struct {
	Mean   float64
	StdDev float64
	Min    uint16
	Max    uint16
}

func Summarize(values []uint16) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	xs := make([]float64, len(values))
	s := Summary{Min: values[0], Max: values[0]}
	for x, v := range values {
		xs[x] = float64(v)
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
	return s
}
