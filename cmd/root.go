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

	"jinr.ru/greenlab/go-ddc/cmd/capture"
	"jinr.ru/greenlab/go-ddc/cmd/completion"
	"jinr.ru/greenlab/go-ddc/cmd/config"
	"jinr.ru/greenlab/go-ddc/cmd/freq"
	"jinr.ru/greenlab/go-ddc/cmd/reg"
	"jinr.ru/greenlab/go-ddc/cmd/reset"
	"jinr.ru/greenlab/go-ddc/cmd/ring"
	"jinr.ru/greenlab/go-ddc/cmd/serve"
	pkgconfig "jinr.ru/greenlab/go-ddc/pkg/config"
	"jinr.ru/greenlab/go-ddc/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel string
	cfg := pkgconfig.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "go-ddc",
		Short: "Tool to control multi-channel readout front ends",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand())
	cmd.AddCommand(serve.NewCommand())
	cmd.AddCommand(reg.NewCommand())
	cmd.AddCommand(freq.NewCommand())
	cmd.AddCommand(capture.NewCommand())
	cmd.AddCommand(ring.NewCommand())
	cmd.AddCommand(reset.NewCommand())
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	return cmd
}
