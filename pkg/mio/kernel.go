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

package mio

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/winsystems/go-pcmmio/pkg/device"
	"github.com/winsystems/go-pcmmio/pkg/driver"
)

// DevDir is where the kernel driver creates its nodes
var DevDir = "/dev"

// KernelHandle issues ioctl calls on a node of the kernel driver.
// Waits block in the kernel and are not cancelled by ctx.
type KernelHandle struct {
	fd   int
	path string
}

// OpenKernel opens the node of card index, /dev/pcmmio_wsa for the first card
func OpenKernel(index int) (*KernelHandle, error) {
	if index < 0 || index > 3 {
		return nil, errorf(BadDevice, "MIO : Bad device number %d", index)
	}
	path := filepath.Join(DevDir, device.NodeName(index))
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, &Error{Code: OpenError, Msg: fmt.Sprintf("MIO : Error opening device file %s", path), Err: err}
	}
	return &KernelHandle{fd: fd, path: path}, nil
}

func (k *KernelHandle) Ioctl(ctx context.Context, cmd driver.Cmd, param uint32) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(k.fd), uintptr(cmd), uintptr(param))
	if errno != 0 {
		return 0, driver.FromErrno(errno)
	}
	return int(int32(r)), nil
}

func (k *KernelHandle) Close() error {
	return unix.Close(k.fd)
}

func (k *KernelHandle) String() string {
	return k.path
}
