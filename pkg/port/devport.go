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
)

const DevPortPath = "/dev/port"

// DevPort is the kernel's /dev/port: pread/pwrite at offset N are inb/outb on port N
type DevPort struct {
	*os.File
}

var _ Bus = &DevPort{}

func OpenDevPort() (*DevPort, error) {
	return openDevPort(DevPortPath)
}

func openDevPort(path string) (*DevPort, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	return &DevPort{File: f}, nil
}
