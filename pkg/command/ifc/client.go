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
	"github.com/winsystems/go-pcmmio/pkg/mio"
	"github.com/winsystems/go-pcmmio/pkg/srv/control/ifc"
)

type ApiClient interface {
	Devices() ([]driver.Info, error)
	RegRead(device, addr string) (string, error)
	RegReadAll(device string) (map[string]string, error)
	RegWrite(device, addr, value string) error
	DioEvents(device string, limit int) ([]*ifc.DioEvent, error)
	Dump(device string) ([]mio.RegValue, error)
	Ioctl(ctx context.Context, device string, cmd driver.Cmd, param uint32) (int, error)
	Handle(device string) mio.Handle
}
