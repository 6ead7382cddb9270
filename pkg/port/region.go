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
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrRegionBusy returned when an I/O range overlaps one that is already reserved
type ErrRegionBusy struct {
	Start uint16
	Size  uint16
}

func (e ErrRegionBusy) Error() string {
	return fmt.Sprintf("I/O region 0x%04x-0x%04x is busy", e.Start, e.Start+e.Size-1)
}

// Region is a reserved range of ports, the userspace request_region
type Region struct {
	Start uint16
	Size  uint16
	lock  *os.File
}

var (
	regionsMu sync.Mutex
	regions   = map[uint16]*Region{}
)

func overlaps(a, asize, b, bsize uint16) bool {
	return uint32(a) < uint32(b)+uint32(bsize) && uint32(b) < uint32(a)+uint32(asize)
}

// RequestRegion reserves [start, start+size) in this process. When lockDir is
// not empty the reservation is also taken across processes with an exclusive
// flock on lockDir/pcmmio-XXXX.lock.
func RequestRegion(start, size uint16, lockDir string) (*Region, error) {
	regionsMu.Lock()
	defer regionsMu.Unlock()

	for _, r := range regions {
		if overlaps(r.Start, r.Size, start, size) {
			return nil, ErrRegionBusy{Start: start, Size: size}
		}
	}

	region := &Region{Start: start, Size: size}
	if lockDir != "" {
		path := filepath.Join(lockDir, fmt.Sprintf("pcmmio-%04x.lock", start))
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return nil, err
		}
		if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			f.Close()
			if err == unix.EWOULDBLOCK {
				return nil, ErrRegionBusy{Start: start, Size: size}
			}
			return nil, err
		}
		region.lock = f
	}
	regions[start] = region
	return region, nil
}

// Release gives the range back
func (r *Region) Release() {
	regionsMu.Lock()
	defer regionsMu.Unlock()
	if regions[r.Start] == r {
		delete(regions, r.Start)
	}
	if r.lock != nil {
		unix.Flock(int(r.lock.Fd()), unix.LOCK_UN)
		r.lock.Close()
		r.lock = nil
	}
}
