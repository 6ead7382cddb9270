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

package dio

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/winsystems/go-pcmmio/cmd/options"
	"github.com/winsystems/go-pcmmio/pkg/command"
	"github.com/winsystems/go-pcmmio/pkg/config"
	"github.com/winsystems/go-pcmmio/pkg/mio"
)

const (
	BitOptionName   = "bit"
	PortOptionName  = "port"
	ValueOptionName = "value"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dio",
		Short: "Digital I/O lines and their interrupts",
	}
	cmd.AddCommand(NewReadCommand())
	cmd.AddCommand(NewWriteCommand())
	cmd.AddCommand(NewResetCommand())
	cmd.AddCommand(NewEnableCommand())
	cmd.AddCommand(NewDisableCommand())
	cmd.AddCommand(NewClearCommand())
	cmd.AddCommand(NewGetCommand())
	cmd.AddCommand(NewWaitCommand())
	cmd.AddCommand(NewEventsCommand())
	return cmd
}

// run opens the target card and calls body with it
func run(cfg *config.Config, target command.Target, body func(ctx context.Context, d *mio.Device) error) error {
	ctx := context.Background()
	d, release, err := command.OpenDevice(ctx, cfg, target)
	if err != nil {
		return err
	}
	defer release()
	return body(ctx, d)
}

func addBitPortFlags(cmd *cobra.Command, bit, port *int) {
	cmd.Flags().IntVar(bit, BitOptionName, 0, "Bit number 1..48")
	cmd.Flags().IntVar(port, PortOptionName, -1, "Port number 0..5")
}

var errBitOrPort = errors.New("exactly one of --bit or --port must be given")

func NewReadCommand() *cobra.Command {
	var target command.Target
	var bit, port int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read a line or a port",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (bit != 0) == (port >= 0) {
				return errBitOrPort
			}
			return run(cfg, target, func(ctx context.Context, d *mio.Device) error {
				if bit != 0 {
					v, err := d.DioReadBit(ctx, bit)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "bit %d = %d\n", bit, v)
					return nil
				}
				v, err := d.DioReadByte(ctx, port)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "port %d = 0x%02x\n", port, v)
				return nil
			})
		},
	}
	options.AddTargetFlags(cmd, &target)
	addBitPortFlags(cmd, &bit, &port)
	return cmd
}

func NewWriteCommand() *cobra.Command {
	var target command.Target
	var bit, port int
	var value string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Drive a line or a port",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (bit != 0) == (port >= 0) {
				return errBitOrPort
			}
			v, err := strconv.ParseUint(value, 0, 8)
			if err != nil {
				return err
			}
			return run(cfg, target, func(ctx context.Context, d *mio.Device) error {
				if bit != 0 {
					return d.DioWriteBit(ctx, bit, byte(v))
				}
				return d.DioWriteByte(ctx, port, byte(v))
			})
		},
	}
	options.AddTargetFlags(cmd, &target)
	addBitPortFlags(cmd, &bit, &port)
	cmd.Flags().StringVar(&value, ValueOptionName, "", "0 or 1 for a bit, a byte for a port")
	cmd.MarkFlagRequired(ValueOptionName)
	return cmd
}

func NewResetCommand() *cobra.Command {
	var target command.Target
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Disable all bit interrupts and drive all lines low",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, target, func(ctx context.Context, d *mio.Device) error {
				return d.DioResetDevice(ctx)
			})
		},
	}
	options.AddTargetFlags(cmd, &target)
	return cmd
}
