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

package capture

import (
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ddc/pkg/command"
	"jinr.ru/greenlab/go-ddc/pkg/config"
)

const (
	BufferOptionName = "buffer"
	KindOptionName   = "kind"
	AddrOptionName   = "addr"
	LengthOptionName = "length"
	RepsOptionName   = "reps"
)

// NewCommand creates the capture command group
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Configure and drain capture buffers",
	}
	cmd.AddCommand(NewConfigCommand())
	cmd.AddCommand(NewEnableCommand())
	cmd.AddCommand(NewDisableCommand())
	cmd.AddCommand(NewTransferCommand())
	cmd.AddCommand(NewAcquireCommand())
	return cmd
}

func NewConfigCommand() *cobra.Command {
	var buffer, kind string
	var addr, length int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Stage a capture window",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			return apiClient.CaptureConfig(buffer, kind, addr, length)
		},
	}
	cmd.Flags().StringVar(&buffer, BufferOptionName, "", "Capture buffer name")
	cmd.Flags().StringVar(&kind, KindOptionName, "avg", "Capture side: avg or raw")
	cmd.Flags().IntVar(&addr, AddrOptionName, 0, "First sample slot")
	cmd.Flags().IntVar(&length, LengthOptionName, 0, "Window length in samples")
	return cmd
}

func NewEnableCommand() *cobra.Command {
	var buffer, kind string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Arm a capture side",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			return apiClient.CaptureEnable(buffer, kind)
		},
	}
	cmd.Flags().StringVar(&buffer, BufferOptionName, "", "Capture buffer name")
	cmd.Flags().StringVar(&kind, KindOptionName, "avg", "Capture side: avg or raw")
	return cmd
}

func NewDisableCommand() *cobra.Command {
	var buffer, kind string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Disarm a capture side",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			return apiClient.CaptureDisable(buffer, kind)
		},
	}
	cmd.Flags().StringVar(&buffer, BufferOptionName, "", "Capture buffer name")
	cmd.Flags().StringVar(&kind, KindOptionName, "avg", "Capture side: avg or raw")
	return cmd
}

func NewTransferCommand() *cobra.Command {
	var buffer, kind string
	var addr, length int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Drain a captured window",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			if kind == "avg" {
				samples, err := apiClient.TransferAvg(buffer, addr, length)
				if err != nil {
					return err
				}
				for _, sample := range samples {
					cmd.Printf("%d %d\n", sample.I, sample.Q)
				}
				return nil
			}
			samples, err := apiClient.TransferRaw(buffer, addr, length)
			if err != nil {
				return err
			}
			for _, sample := range samples {
				cmd.Printf("%d %d\n", sample.I, sample.Q)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&buffer, BufferOptionName, "", "Capture buffer name")
	cmd.Flags().StringVar(&kind, KindOptionName, "avg", "Capture side: avg or raw")
	cmd.Flags().IntVar(&addr, AddrOptionName, 0, "First sample slot")
	cmd.Flags().IntVar(&length, LengthOptionName, 0, "Window length in samples")
	return cmd
}

func NewAcquireCommand() *cobra.Command {
	var buffer string
	var addr, length, reps int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Run a repeated accumulation capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			result, err := apiClient.Acquire(buffer, addr, length, reps)
			if err != nil {
				return err
			}
			for i := range result.MeanI {
				cmd.Printf("%f %f\n", result.MeanI[i], result.MeanQ[i])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&buffer, BufferOptionName, "", "Capture buffer name")
	cmd.Flags().IntVar(&addr, AddrOptionName, 0, "First sample slot")
	cmd.Flags().IntVar(&length, LengthOptionName, 0, "Window length in samples")
	cmd.Flags().IntVar(&reps, RepsOptionName, 1, "Number of repetitions")
	return cmd
}
