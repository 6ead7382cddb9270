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
	"context"
	"sync"
)

// Source is an interrupt source of the card
type Source int

const (
	SourceAdc1 Source = iota
	SourceAdc2
	SourceDac1
	SourceDac2
	SourceDio
	sourceCount
)

var sourceNames = [sourceCount]string{"adc1", "adc2", "dac1", "dac2", "dio"}

func (s Source) String() string {
	if s < 0 || s >= sourceCount {
		return "unknown"
	}
	return sourceNames[s]
}

// RingSize is the number of slots of the DIO event ring. One slot stays
// free to tell a full ring from an empty one.
const RingSize = 1024

// events is the synchronization state shared by the ISR and the ioctl
// waiters of one card. Every wake closes the current wake channel and
// replaces it, so all waiters blocked at that moment run.
type events struct {
	mu      sync.Mutex
	ready   [sourceCount]bool
	ring    [RingSize]int
	head    int
	tail    int
	dropped uint64

	// relayDropped counts events the tap channel had no room for
	relayDropped uint64
	waiters      int
	wake         chan struct{}
	tap          chan<- int
}

func newEvents() *events {
	return &events{wake: make(chan struct{})}
}

func (e *events) wakeLocked() {
	close(e.wake)
	e.wake = make(chan struct{})
}

// SetReady raises the flag of a source and wakes all waiters
func (e *events) SetReady(s Source) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready[s] = true
	e.wakeLocked()
}

// block releases the lock until the next wake or until ctx is done. It
// returns with the lock held unless ctx was cancelled.
func (e *events) block(ctx context.Context) error {
	wake := e.wake
	e.waiters++
	e.mu.Unlock()
	select {
	case <-wake:
		e.mu.Lock()
		e.waiters--
		return nil
	case <-ctx.Done():
		e.mu.Lock()
		e.waiters--
		e.mu.Unlock()
		return ctx.Err()
	}
}

// WaitReady clears the flag of a source and blocks until an interrupt sets
// it again. Interrupts arriving before the call are forgotten; several
// arriving while the caller sleeps make one wakeup.
func (e *events) WaitReady(ctx context.Context, s Source) error {
	e.mu.Lock()
	e.ready[s] = false
	for !e.ready[s] {
		if err := e.block(ctx); err != nil {
			return err
		}
	}
	e.mu.Unlock()
	return nil
}

func (e *events) pushLocked(bit int) {
	e.ring[e.head] = bit
	e.head = (e.head + 1) % RingSize
	if e.head == e.tail {
		// full: the oldest event goes
		e.tail = (e.tail + 1) % RingSize
		e.dropped++
	}
	e.relayLocked(bit)
}

func (e *events) relayLocked(bit int) {
	if e.tap != nil {
		select {
		case e.tap <- bit:
		default:
			e.relayDropped++
		}
	}
}

func (e *events) relay(bit int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.relayLocked(bit)
}

// PushDIOEvent appends a resolved DIO bit to the ring
func (e *events) PushDIOEvent(bit int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pushLocked(bit)
}

func (e *events) popLocked() (int, bool) {
	if e.head == e.tail {
		return 0, false
	}
	bit := e.ring[e.tail]
	e.tail = (e.tail + 1) % RingSize
	return bit, true
}

// PopDIOEvent takes the oldest event without blocking
func (e *events) PopDIOEvent() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.popLocked()
}

// WaitDIOEvent pops the oldest event, blocking until one is buffered. The
// check and the sleep happen under the event lock so a push cannot slip
// between them.
func (e *events) WaitDIOEvent(ctx context.Context) (int, error) {
	e.mu.Lock()
	for {
		if bit, ok := e.popLocked(); ok {
			e.mu.Unlock()
			return bit, nil
		}
		e.ready[SourceDio] = false
		if err := e.block(ctx); err != nil {
			return 0, err
		}
	}
}

// deliver records the outcome of one interrupt and wakes every waiter
func (e *events) deliver(sources []Source, bits []int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, bit := range bits {
		e.pushLocked(bit)
	}
	for _, s := range sources {
		e.ready[s] = true
	}
	e.wakeLocked()
}

func (e *events) setTap(ch chan<- int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tap = ch
}

func (e *events) stats() (pending int, dropped, relayDropped uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return (e.head - e.tail + RingSize) % RingSize, e.dropped, e.relayDropped
}

// Waiters is the number of goroutines blocked in a wait
func (e *events) Waiters() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waiters
}
