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

package ifc

import (
	"context"

	"github.com/winsystems/go-pcmmio/pkg/driver"
	"github.com/winsystems/go-pcmmio/pkg/layers"
	"github.com/winsystems/go-pcmmio/pkg/mio"
)

// Device is a loaded card as seen by the control server
type Device interface {
	Ioctl(ctx context.Context, cmd driver.Cmd, param uint32) (int, error)

	RegRead(ctx context.Context, addr uint8) (*layers.Reg, error)
	RegReadAll(ctx context.Context) ([]*layers.Reg, error)
	RegWrite(ctx context.Context, reg *layers.Reg) error

	DumpConfig(ctx context.Context) ([]mio.RegValue, error)

	Info() driver.Info
	GetName() string
}
