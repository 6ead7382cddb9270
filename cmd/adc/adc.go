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

package adc

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/winsystems/go-pcmmio/cmd/options"
	"github.com/winsystems/go-pcmmio/pkg/command"
	"github.com/winsystems/go-pcmmio/pkg/config"
	"github.com/winsystems/go-pcmmio/pkg/mio"
)

const (
	ChannelOptionName      = "channel"
	CountOptionName        = "count"
	DifferentialOptionName = "differential"
	UnipolarOptionName     = "unipolar"
	Top10VOptionName       = "10v"
)

type modeFlags struct {
	differential bool
	unipolar     bool
	top10V       bool
}

func (m *modeFlags) add(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&m.differential, DifferentialOptionName, false, "Differential input instead of single ended")
	cmd.Flags().BoolVar(&m.unipolar, UnipolarOptionName, false, "Unipolar instead of bipolar")
	cmd.Flags().BoolVar(&m.top10V, Top10VOptionName, false, "10V instead of 5V range")
}

func (m *modeFlags) apply(d *mio.Device, channels ...int) error {
	input, duplex, rng := mio.AdcSingleEnded, mio.AdcBipolar, mio.AdcTop5V
	if m.differential {
		input = mio.AdcDifferential
	}
	if m.unipolar {
		duplex = mio.AdcUnipolar
	}
	if m.top10V {
		rng = mio.AdcTop10V
	}
	for _, ch := range channels {
		if err := d.AdcSetChannelMode(ch, input, duplex, rng); err != nil {
			return err
		}
	}
	return nil
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adc",
		Short: "Analog inputs",
	}
	cmd.AddCommand(NewConvertCommand())
	cmd.AddCommand(NewRepeatCommand())
	return cmd
}

func NewConvertCommand() *cobra.Command {
	var target command.Target
	var mode modeFlags
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert all 16 channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, release, err := command.OpenDevice(ctx, cfg, target)
			if err != nil {
				return err
			}
			defer release()
			all := make([]int, mio.AdcChannels)
			for ch := range all {
				all[ch] = ch
			}
			if err := mode.apply(d, all...); err != nil {
				return err
			}
			values, err := d.AdcConvertAllChannels(ctx)
			if err != nil {
				return err
			}
			for ch, v := range values {
				fmt.Fprintf(cmd.OutOrStdout(), "channel %2d = 0x%04x\n", ch, v)
			}
			return nil
		},
	}
	options.AddTargetFlags(cmd, &target)
	mode.add(cmd)
	return cmd
}

func NewRepeatCommand() *cobra.Command {
	var target command.Target
	var mode modeFlags
	var channel, count int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "repeat",
		Short: "Convert one channel repeatedly and summarize the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, release, err := command.OpenDevice(ctx, cfg, target)
			if err != nil {
				return err
			}
			defer release()
			if err := mode.apply(d, channel); err != nil {
				return err
			}
			values, err := d.AdcConvertSingleRepeated(ctx, channel, count)
			if err != nil {
				return err
			}
			for _, v := range values {
				fmt.Fprintf(cmd.OutOrStdout(), "0x%04x\n", v)
			}
			s := command.Summarize(values)
			fmt.Fprintf(cmd.OutOrStdout(), "n=%d mean=%.2f stddev=%.2f min=0x%04x max=0x%04x\n",
				len(values), s.Mean, s.StdDev, s.Min, s.Max)
			return nil
		},
	}
	options.AddTargetFlags(cmd, &target)
	mode.add(cmd)
	cmd.Flags().IntVar(&channel, ChannelOptionName, 0, "Channel 0..15")
	cmd.Flags().IntVar(&count, CountOptionName, 10, "Number of conversions")
	return cmd
}
