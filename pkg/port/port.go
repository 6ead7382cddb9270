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

// Package port gives byte level access to the x86 I/O port space.
package port

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Bus is the I/O port address space. Offsets are absolute port numbers.
type Bus interface {
	io.ReaderAt
	io.WriterAt
}

// Window is the register window of one card: a base port on a bus.
// Window does no locking. Callers serialize multi-register sequences.
// Bus errors are sticky: the first one is kept and reported by Err.
type Window struct {
	bus  Bus
	base int64

	mu  sync.Mutex
	err error
}

func NewWindow(bus Bus, base uint16) *Window {
	return &Window{
		bus:  bus,
		base: int64(base),
	}
}

func (w *Window) Base() uint16 {
	return uint16(w.base)
}

func (w *Window) setErr(err error) {
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}

// Err returns and clears the first bus error seen since the last call
func (w *Window) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.err
	w.err = nil
	return err
}

// ReadRegister is inb(base+offset)
func (w *Window) ReadRegister(offset uint8) byte {
	buf := make([]byte, 1)
	n, err := w.bus.ReadAt(buf, w.base+int64(offset))
	if n < 1 || err != nil {
		w.setErr(fmt.Errorf("could not read port 0x%04x: %v", w.base+int64(offset), err))
		return 0
	}
	return buf[0]
}

// WriteRegister is outb(value, base+offset)
func (w *Window) WriteRegister(offset uint8, value byte) {
	n, err := w.bus.WriteAt([]byte{value}, w.base+int64(offset))
	if n < 1 || err != nil {
		w.setErr(fmt.Errorf("could not write port 0x%04x value 0x%02x: %v", w.base+int64(offset), value, err))
	}
}

// ReadWord is inw(base+offset), little endian
func (w *Window) ReadWord(offset uint8) uint16 {
	buf := make([]byte, 2)
	n, err := w.bus.ReadAt(buf, w.base+int64(offset))
	if n < 2 || err != nil {
		w.setErr(fmt.Errorf("could not read word at port 0x%04x: %v", w.base+int64(offset), err))
		return 0
	}
	return binary.LittleEndian.Uint16(buf)
}

// WriteWord is outw(value, base+offset), little endian
func (w *Window) WriteWord(offset uint8, value uint16) {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, value)
	n, err := w.bus.WriteAt(buf, w.base+int64(offset))
	if n < 2 || err != nil {
		w.setErr(fmt.Errorf("could not write word at port 0x%04x value 0x%04x: %v", w.base+int64(offset), value, err))
	}
}
