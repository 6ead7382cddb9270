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

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/winsystems/go-pcmmio/cmd/adc"
	"github.com/winsystems/go-pcmmio/cmd/completion"
	"github.com/winsystems/go-pcmmio/cmd/config"
	"github.com/winsystems/go-pcmmio/cmd/control"
	"github.com/winsystems/go-pcmmio/cmd/dac"
	"github.com/winsystems/go-pcmmio/cmd/dio"
	pkgconfig "github.com/winsystems/go-pcmmio/pkg/config"
	"github.com/winsystems/go-pcmmio/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel string
	cfg := pkgconfig.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:          "go-pcmmio",
		Short:        "Tool to work with PCM-MIO-G cards",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if cfg.Log.Level == "" {
				cfg.Log.Level = pkgconfig.DefaultLogLevel
			}
			if cfg.Log.File != "" {
				log.InitFile(cmd.ErrOrStderr(), cfg.Log.File, cfg.Log.Level)
				return
			}
			log.Init(cmd.ErrOrStderr(), cfg.Log.Level)
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand())
	cmd.AddCommand(control.NewCommand())
	cmd.AddCommand(dio.NewCommand())
	cmd.AddCommand(adc.NewCommand())
	cmd.AddCommand(dac.NewCommand())
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	return cmd
}
