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

package irq

import (
	"sync"
)

// Connector attaches a freshly created line to its interrupt source. The
// returned function detaches it.
type Connector func(l *Line) (func(), error)

// Table is the set of lines in use, the userspace request_irq/free_irq
type Table struct {
	mu      sync.Mutex
	lines   map[uint16]*Line
	connect Connector
}

func NewTable(connect Connector) *Table {
	return &Table{
		lines:   map[uint16]*Line{},
		connect: connect,
	}
}

// Request registers handler on line num, connecting the line on first use
func (t *Table) Request(num uint16, name string, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.lines[num]
	if !ok {
		l = NewLine(num)
		if t.connect != nil {
			detach, err := t.connect(l)
			if err != nil {
				l.Close()
				return err
			}
			l.onClose = detach
		}
		t.lines[num] = l
	}
	return l.Request(name, handler)
}

// Free removes a handler; the line is closed with its last handler
func (t *Table) Free(num uint16, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.lines[num]
	if !ok {
		return
	}
	if l.Free(name) == 0 {
		delete(t.lines, num)
		l.Close()
	}
}

// Line returns the line num if it is in use
func (t *Table) Line(num uint16) (*Line, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.lines[num]
	return l, ok
}
