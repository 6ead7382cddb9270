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
	"net/http"
	"time"

	deviceifc "github.com/winsystems/go-pcmmio/pkg/device/ifc"
)

// DioEvent is one delivered DIO bit interrupt as kept in the journal
type DioEvent struct {
	ID     string    `json:"id"`
	Device string    `json:"device"`
	Bit    int       `json:"bit"`
	Time   time.Time `json:"time"`
}

type ControlServer interface {
	Run() error

	GetDeviceByName(deviceName string) (deviceifc.Device, error)
	GetAllDevices() map[string]deviceifc.Device

	// DioEvents returns the last limit journaled events of a device, oldest first
	DioEvents(deviceName string, limit int) ([]*DioEvent, error)
}

type ApiServer interface {
	Run() error
	Handler() http.Handler
}
