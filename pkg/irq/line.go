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

// Package irq delivers hardware interrupt lines to service routines running
// in userspace. One Line may be shared by several devices.
package irq

import (
	"fmt"
	"sync"

	"github.com/winsystems/go-pcmmio/pkg/log"
)

// Handler is an interrupt service routine. It must not block.
type Handler func() Result

type Result int

const (
	None Result = iota
	Handled
)

type entry struct {
	name    string
	handler Handler
}

// Line is one interrupt line. Raise is safe to call from any goroutine and
// never blocks; assertions made while the handlers run are coalesced into
// one more dispatch.
type Line struct {
	Num uint16

	mu       sync.Mutex
	handlers []entry
	pending  chan struct{}
	stop     chan struct{}
	done     chan struct{}
	onClose  func()
	spurious uint64
}

func NewLine(num uint16) *Line {
	l := &Line{
		Num:     num,
		pending: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.dispatch()
	return l
}

// Request adds a shared handler for the line. name identifies it for Free.
func (l *Line) Request(name string, handler Handler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.handlers {
		if e.name == name {
			return fmt.Errorf("irq %d: handler %s already registered", l.Num, name)
		}
	}
	l.handlers = append(l.handlers, entry{name: name, handler: handler})
	log.Debug("irq %d: registered handler %s", l.Num, name)
	return nil
}

// Free removes the handler registered with name and returns the number of
// handlers left on the line
func (l *Line) Free(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.handlers {
		if e.name == name {
			l.handlers = append(l.handlers[:i], l.handlers[i+1:]...)
			break
		}
	}
	return len(l.handlers)
}

// Raise asserts the line
func (l *Line) Raise() {
	select {
	case l.pending <- struct{}{}:
	default:
	}
}

func (l *Line) dispatch() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		case <-l.pending:
			l.mu.Lock()
			handlers := make([]entry, len(l.handlers))
			copy(handlers, l.handlers)
			l.mu.Unlock()

			handled := false
			for _, e := range handlers {
				if e.handler() == Handled {
					handled = true
				}
			}
			if !handled {
				l.mu.Lock()
				l.spurious++
				l.mu.Unlock()
				log.Debug("irq %d: nobody cared", l.Num)
			}
		}
	}
}

// Spurious returns the number of dispatches no handler claimed
func (l *Line) Spurious() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spurious
}

// Close stops dispatching and waits for a running handler to return
func (l *Line) Close() {
	l.mu.Lock()
	select {
	case <-l.stop:
		l.mu.Unlock()
		return
	default:
	}
	close(l.stop)
	onClose := l.onClose
	l.mu.Unlock()
	<-l.done
	if onClose != nil {
		onClose()
	}
}
