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

package port

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBus is a flat port space backed by a byte slice
type memBus []byte

func (m memBus) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, m[off:]), nil
}

func (m memBus) WriteAt(p []byte, off int64) (int, error) {
	return copy(m[off:], p), nil
}

type brokenBus struct{}

func (brokenBus) ReadAt(p []byte, off int64) (int, error)  { return 0, errors.New("bus fault") }
func (brokenBus) WriteAt(p []byte, off int64) (int, error) { return 0, errors.New("bus fault") }

func TestWindowByteAndWord(t *testing.T) {
	bus := make(memBus, 0x400)
	w := NewWindow(bus, 0x300)

	w.WriteRegister(0x10, 0xa5)
	assert.Equal(t, byte(0xa5), bus[0x310])
	assert.Equal(t, byte(0xa5), w.ReadRegister(0x10))

	w.WriteWord(0x08, 0x1234)
	assert.Equal(t, byte(0x34), bus[0x308])
	assert.Equal(t, byte(0x12), bus[0x309])
	assert.Equal(t, uint16(0x1234), w.ReadWord(0x08))
	assert.NoError(t, w.Err())
	assert.Equal(t, uint16(0x300), w.Base())
}

func TestWindowStickyError(t *testing.T) {
	w := NewWindow(brokenBus{}, 0x300)
	assert.Equal(t, byte(0), w.ReadRegister(3))
	w.WriteRegister(4, 1)
	err := w.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0x0303")
	assert.NoError(t, w.Err())
}

func TestRequestRegion(t *testing.T) {
	dir := t.TempDir()
	r, err := RequestRegion(0x300, 0x20, dir)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "pcmmio-0300.lock"))
	assert.NoError(t, err)

	_, err = RequestRegion(0x310, 0x20, "")
	assert.IsType(t, ErrRegionBusy{}, err)

	other, err := RequestRegion(0x320, 0x20, "")
	require.NoError(t, err)
	other.Release()

	r.Release()
	r, err = RequestRegion(0x300, 0x20, dir)
	require.NoError(t, err)
	r.Release()
}

func TestOpenDevPortMissing(t *testing.T) {
	_, err := openDevPort(filepath.Join(t.TempDir(), "port"))
	assert.Error(t, err)
}
