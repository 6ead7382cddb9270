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
	"encoding/binary"
	"fmt"
	"os"

	"github.com/winsystems/go-pcmmio/pkg/log"
)

// UIO is a uio device node (uio_pdrv_genirq and friends). A blocking read
// returns the 32 bit interrupt count; writing 1 unmasks the interrupt.
type UIO struct {
	file *os.File
	line *Line
}

func OpenUIO(path string, l *Line) (*UIO, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0660)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	u := &UIO{file: f, line: l}
	if err := u.unmask(); err != nil {
		f.Close()
		return nil, err
	}
	go u.reader()
	return u, nil
}

func (u *UIO) unmask() error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, 1)
	_, err := u.file.Write(b)
	return err
}

// reader blocks on the device and raises the line for every interrupt
func (u *UIO) reader() {
	b := make([]byte, 4)
	for {
		n, err := u.file.Read(b)
		if err != nil {
			log.Debug("irq %d: uio reader stopped: %s", u.line.Num, err)
			return
		}
		if n == 4 {
			u.line.Raise()
		}
		if err := u.unmask(); err != nil {
			log.Error("irq %d: could not unmask: %s", u.line.Num, err)
			return
		}
	}
}

func (u *UIO) Close() error {
	return u.file.Close()
}

// UIOConnector connects lines to the uio nodes listed per IRQ number
func UIOConnector(paths map[uint16]string) Connector {
	return func(l *Line) (func(), error) {
		path, ok := paths[l.Num]
		if !ok {
			return nil, fmt.Errorf("no uio device configured for irq %d", l.Num)
		}
		u, err := OpenUIO(path, l)
		if err != nil {
			return nil, err
		}
		return func() { u.Close() }, nil
	}
}
