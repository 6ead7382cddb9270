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

package dac

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/winsystems/go-pcmmio/cmd/options"
	"github.com/winsystems/go-pcmmio/pkg/command"
	"github.com/winsystems/go-pcmmio/pkg/config"
	"github.com/winsystems/go-pcmmio/pkg/mio"
)

const (
	ChannelOptionName = "channel"
	ValueOptionName   = "value"
	SpanOptionName    = "span"
)

var spans = map[string]byte{
	"uni5":  mio.DacSpanUni5,
	"uni10": mio.DacSpanUni10,
	"bi5":   mio.DacSpanBi5,
	"bi10":  mio.DacSpanBi10,
	"bi2":   mio.DacSpanBi2,
	"bi7":   mio.DacSpanBi7,
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dac",
		Short: "Analog outputs",
	}
	cmd.AddCommand(NewSpanCommand())
	cmd.AddCommand(NewSetCommand())
	return cmd
}

func NewSpanCommand() *cobra.Command {
	var target command.Target
	var channel int
	var span string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "span",
		Short: "Set the output span of a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := spans[span]
			if !ok {
				return fmt.Errorf("unknown span %s, must be one of uni5, uni10, bi5, bi10, bi2, bi7", span)
			}
			ctx := context.Background()
			d, release, err := command.OpenDevice(ctx, cfg, target)
			if err != nil {
				return err
			}
			defer release()
			return d.DacSetSpan(ctx, channel, s)
		},
	}
	options.AddTargetFlags(cmd, &target)
	cmd.Flags().IntVar(&channel, ChannelOptionName, 0, "Channel 0..7")
	cmd.Flags().StringVar(&span, SpanOptionName, "uni5", "Span")
	return cmd
}

func NewSetCommand() *cobra.Command {
	var target command.Target
	var channel int
	var value string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the output code of a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseUint(value, 0, 16)
			if err != nil {
				return err
			}
			ctx := context.Background()
			d, release, err := command.OpenDevice(ctx, cfg, target)
			if err != nil {
				return err
			}
			defer release()
			return d.DacSetOutput(ctx, channel, uint16(v))
		},
	}
	options.AddTargetFlags(cmd, &target)
	cmd.Flags().IntVar(&channel, ChannelOptionName, 0, "Channel 0..7")
	cmd.Flags().StringVar(&value, ValueOptionName, "", "Output code 0..0xffff")
	cmd.MarkFlagRequired(ValueOptionName)
	return cmd
}
