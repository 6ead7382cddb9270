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

package options

import (
	"github.com/spf13/cobra"

	"github.com/winsystems/go-pcmmio/pkg/command"
	"github.com/winsystems/go-pcmmio/pkg/config"
)

const (
	DeviceOptionName = "device"
	KernelOptionName = "kernel"
)

// AddTargetFlags binds the flags selecting the card a command works on
func AddTargetFlags(cmd *cobra.Command, target *command.Target) {
	cmd.Flags().StringVar(&target.Device, DeviceOptionName, config.DefaultDeviceName, "Device name")
	cmd.Flags().BoolVar(&target.Kernel, KernelOptionName, false, "Use the kernel driver node instead of the control server")
}
