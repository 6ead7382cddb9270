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
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/winsystems/go-pcmmio/cmd/options"
	"github.com/winsystems/go-pcmmio/pkg/command"
	"github.com/winsystems/go-pcmmio/pkg/config"
	"github.com/winsystems/go-pcmmio/pkg/driver"
	"github.com/winsystems/go-pcmmio/pkg/mio"
)

const (
	CmdOptionName   = "cmd"
	ParamOptionName = "param"
)

func NewDevicesCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List cards loaded by the control server",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := command.NewApiClient(cfg).Devices()
			if err != nil {
				return err
			}
			for _, i := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%d %-12s io=0x%04x irq=%d %s pending=%d dropped=%d relay-dropped=%d\n",
					i.Index, i.Name, i.IO, i.IRQ, i.Mode, i.Pending, i.Dropped, i.RelayDropped)
			}
			return nil
		},
	}
	return cmd
}

func NewDumpCommand() *cobra.Command {
	var target command.Target
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print resource, status and DIO interrupt registers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var regs []mio.RegValue
			if target.Kernel {
				d, release, err := command.OpenDevice(context.Background(), cfg, target)
				if err != nil {
					return err
				}
				defer release()
				if regs, err = d.DumpConfig(context.Background()); err != nil {
					return err
				}
			} else {
				var err error
				if regs, err = command.NewApiClient(cfg).Dump(target.Device); err != nil {
					return err
				}
			}
			for _, r := range regs {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	options.AddTargetFlags(cmd, &target)
	return cmd
}

func NewIoctlCommand() *cobra.Command {
	var target command.Target
	var name, param string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "ioctl",
		Short: "Run one raw driver command",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ok := driver.CmdByName(name)
			if !ok {
				return fmt.Errorf("unknown command %s", name)
			}
			p, err := strconv.ParseUint(param, 0, 32)
			if err != nil {
				return err
			}
			d, release, err := command.OpenDevice(context.Background(), cfg, target)
			if err != nil {
				return err
			}
			defer release()
			v, err := d.Handle().Ioctl(context.Background(), c, uint32(p))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %d (0x%x)\n", c, v, v)
			return nil
		},
	}
	options.AddTargetFlags(cmd, &target)
	cmd.Flags().StringVar(&name, CmdOptionName, "", "Command name, e.g. DIO_READ_BYTE")
	cmd.MarkFlagRequired(CmdOptionName)
	cmd.Flags().StringVar(&param, ParamOptionName, "0", "Command argument")
	return cmd
}
