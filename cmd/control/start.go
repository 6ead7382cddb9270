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

package control

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/winsystems/go-pcmmio/pkg/command"
	"github.com/winsystems/go-pcmmio/pkg/config"
)

const (
	IPOptionName      = "ip"
	PortOptionName    = "port"
	BackendOptionName = "backend"
)

func NewStartCommand() *cobra.Command {
	var ip, backend string
	var port int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start control server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ip != "" {
				if net.ParseIP(ip) == nil {
					return fmt.Errorf("bad IP address: %s", ip)
				}
				cfg.IP = ip
			}
			if port != 0 {
				cfg.ApiPort = port
			}
			if backend != "" {
				cfg.Backend = backend
			}
			return command.StartControlServer(cfg)
		},
	}
	cmd.Flags().StringVar(&ip, IPOptionName, "", fmt.Sprintf("IP to bind. E.g. %s", config.DefaultIP))
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("API port. E.g. %d", config.DefaultApiPort))
	cmd.Flags().StringVar(&backend, BackendOptionName, "",
		fmt.Sprintf("Register backend. One of: %s, %s", config.BackendDevPort, config.BackendSim))

	return cmd
}
