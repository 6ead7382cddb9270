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
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/winsystems/go-pcmmio/cmd/options"
	"github.com/winsystems/go-pcmmio/pkg/command"
	"github.com/winsystems/go-pcmmio/pkg/config"
	"github.com/winsystems/go-pcmmio/pkg/mio"
)

const (
	FallingOptionName = "falling"
	CountOptionName   = "count"
	LimitOptionName   = "limit"
)

func NewEnableCommand() *cobra.Command {
	var target command.Target
	var bit int
	var falling bool
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Arm the edge interrupt of a bit",
		RunE: func(cmd *cobra.Command, args []string) error {
			polarity := mio.Rising
			if falling {
				polarity = mio.Falling
			}
			return run(cfg, target, func(ctx context.Context, d *mio.Device) error {
				return d.DioEnabBitInt(ctx, bit, polarity)
			})
		},
	}
	options.AddTargetFlags(cmd, &target)
	cmd.Flags().IntVar(&bit, BitOptionName, 0, "Bit number 1..24")
	cmd.MarkFlagRequired(BitOptionName)
	cmd.Flags().BoolVar(&falling, FallingOptionName, false, "Interrupt on the falling edge")
	return cmd
}

func NewDisableCommand() *cobra.Command {
	var target command.Target
	var bit int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Disarm the interrupt of a bit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, target, func(ctx context.Context, d *mio.Device) error {
				return d.DioDisabBitInt(ctx, bit)
			})
		},
	}
	options.AddTargetFlags(cmd, &target)
	cmd.Flags().IntVar(&bit, BitOptionName, 0, "Bit number 1..24")
	cmd.MarkFlagRequired(BitOptionName)
	return cmd
}

func NewClearCommand() *cobra.Command {
	var target command.Target
	var bit int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear a latched edge and re-arm the bit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, target, func(ctx context.Context, d *mio.Device) error {
				return d.DioClrInt(ctx, bit)
			})
		},
	}
	options.AddTargetFlags(cmd, &target)
	cmd.Flags().IntVar(&bit, BitOptionName, 0, "Bit number 1..24")
	cmd.MarkFlagRequired(BitOptionName)
	return cmd
}

func NewGetCommand() *cobra.Command {
	var target command.Target
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Take the next buffered interrupt without waiting, 0 when none",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, target, func(ctx context.Context, d *mio.Device) error {
				bit, err := d.DioGetInt(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), bit)
				return nil
			})
		},
	}
	options.AddTargetFlags(cmd, &target)
	return cmd
}

func NewWaitCommand() *cobra.Command {
	var target command.Target
	var count int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait for bit interrupts and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			d, release, err := command.OpenDevice(ctx, cfg, target)
			if err != nil {
				return err
			}
			defer release()
			for n := 0; count <= 0 || n < count; n++ {
				bit, err := d.DioWaitInt(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s bit %d\n", time.Now().Format(time.RFC3339Nano), bit)
			}
			return nil
		},
	}
	options.AddTargetFlags(cmd, &target)
	cmd.Flags().IntVar(&count, CountOptionName, 0, "Number of interrupts to wait for, 0 to wait until interrupted")
	return cmd
}

func NewEventsCommand() *cobra.Command {
	var device string
	var limit int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the control server journal of bit interrupts",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := command.NewApiClient(cfg).DioEvents(device, limit)
			if err != nil {
				return err
			}
			for _, e := range events {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s bit %d\n", e.ID, e.Time.Format(time.RFC3339Nano), e.Bit)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&device, options.DeviceOptionName, config.DefaultDeviceName, "Device name")
	cmd.Flags().IntVar(&limit, LimitOptionName, 100, "Number of latest events, 0 for all")
	return cmd
}
