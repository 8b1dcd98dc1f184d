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

package freq

import (
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ddc/pkg/command"
	"jinr.ru/greenlab/go-ddc/pkg/config"
)

const (
	StageOptionName = "stage"
	FreqOptionName  = "freq"
	OutOptionName   = "out"
	ModeOptionName  = "mode"
)

// NewCommand creates the freq command group
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "freq",
		Short: "Steer down-conversion stages",
	}
	cmd.AddCommand(NewSetCommand())
	cmd.AddCommand(NewModeCommand())
	return cmd
}

// NewSetCommand assigns a frequency to a stage output
func NewSetCommand() *cobra.Command {
	var stage string
	var freq float64
	var out int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set stage output frequency",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			return apiClient.FreqSet(stage, freq, out)
		},
	}
	cmd.Flags().StringVar(&stage, StageOptionName, "", "Stage name")
	cmd.Flags().Float64Var(&freq, FreqOptionName, 0, "Frequency in MHz")
	cmd.Flags().IntVar(&out, OutOptionName, 0, "Logical output channel")
	return cmd
}

// NewModeCommand selects what a stage streams downstream
func NewModeCommand() *cobra.Command {
	var stage, mode string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Set stage output mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			return apiClient.ModeSet(stage, mode)
		},
	}
	cmd.Flags().StringVar(&stage, StageOptionName, "", "Stage name")
	cmd.Flags().StringVar(&mode, ModeOptionName, "product", "Output mode: product, dds or input")
	return cmd
}
