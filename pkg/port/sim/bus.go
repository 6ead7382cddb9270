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
	"fmt"
	"sync"

	"github.com/winsystems/go-pcmmio/pkg/device"
	"github.com/winsystems/go-pcmmio/pkg/irq"
)

// Bus is a port address space populated with simulated cards. Ports no
// card decodes float high.
type Bus struct {
	mu    sync.RWMutex
	cards []*Card
}

func NewBus() *Bus {
	return &Bus{}
}

// Attach plugs a card into the bus at its I/O base
func (b *Bus) Attach(card *Card) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.cards {
		if card.IO < c.IO+device.RegionSize && c.IO < card.IO+device.RegionSize {
			return fmt.Errorf("card at 0x%04x overlaps card at 0x%04x", card.IO, c.IO)
		}
	}
	b.cards = append(b.cards, card)
	return nil
}

// Card returns the card decoding the given I/O base
func (b *Bus) Card(io uint16) (*Card, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.cards {
		if c.IO == io {
			return c, true
		}
	}
	return nil, false
}

func (b *Bus) decode(port int64) (*Card, uint8) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.cards {
		if port >= int64(c.IO) && port < int64(c.IO)+device.RegionSize {
			return c, uint8(port - int64(c.IO))
		}
	}
	return nil, 0
}

func (b *Bus) ReadAt(p []byte, off int64) (int, error) {
	for i := range p {
		c, offset := b.decode(off + int64(i))
		if c == nil {
			p[i] = 0xff
			continue
		}
		p[i] = c.read(offset)
	}
	return len(p), nil
}

func (b *Bus) WriteAt(p []byte, off int64) (int, error) {
	for i := range p {
		c, offset := b.decode(off + int64(i))
		if c == nil {
			continue
		}
		c.write(offset, p[i])
	}
	return len(p), nil
}

// Connector wires the interrupt outputs of the attached cards to lines
func (b *Bus) Connector() irq.Connector {
	return func(l *irq.Line) (func(), error) {
		b.mu.RLock()
		var wired []*Card
		for _, c := range b.cards {
			if c.IRQ == l.Num {
				c.connect(l.Raise)
				wired = append(wired, c)
			}
		}
		b.mu.RUnlock()
		if len(wired) == 0 {
			return nil, fmt.Errorf("no simulated card drives irq %d", l.Num)
		}
		return func() {
			for _, c := range wired {
				c.connect(nil)
			}
		}, nil
	}
}
