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

package ring

import (
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ddc/pkg/command"
	"jinr.ru/greenlab/go-ddc/pkg/config"
)

const (
	RingOptionName   = "ring"
	BurstsOptionName = "bursts"
	ForceOptionName  = "force"
	StartOptionName  = "start"
	SourceOptionName = "source"
)

// NewCommand creates the ring command group
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ring",
		Short: "Arm and read the deep ring buffer",
	}
	cmd.AddCommand(NewArmCommand())
	cmd.AddCommand(NewReadCommand())
	cmd.AddCommand(NewRouteCommand())
	cmd.AddCommand(NewClearCommand())
	return cmd
}

func NewArmCommand() *cobra.Command {
	var ring string
	var bursts int
	var force bool
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "arm",
		Short: "Arm the ring for a number of bursts",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			return apiClient.RingArm(ring, bursts, force)
		},
	}
	cmd.Flags().StringVar(&ring, RingOptionName, "", "Ring buffer name")
	cmd.Flags().IntVar(&bursts, BurstsOptionName, 1, "Number of bursts to capture")
	cmd.Flags().BoolVar(&force, ForceOptionName, false, "Allow wrapping over the oldest bursts")
	return cmd
}

func NewReadCommand() *cobra.Command {
	var ring string
	var bursts, start int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read captured bursts from the ring",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			samples, err := apiClient.RingRead(ring, bursts, start)
			if err != nil {
				return err
			}
			for _, sample := range samples {
				cmd.Printf("%d %d\n", sample.I, sample.Q)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ring, RingOptionName, "", "Ring buffer name")
	cmd.Flags().IntVar(&bursts, BurstsOptionName, 1, "Number of bursts to read")
	cmd.Flags().IntVar(&start, StartOptionName, -1, "First sample. Negative skips the pipeline junk")
	return cmd
}

func NewRouteCommand() *cobra.Command {
	var ring, source string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Point the ring input switch at a source",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			return apiClient.RingRoute(ring, source)
		},
	}
	cmd.Flags().StringVar(&ring, RingOptionName, "", "Ring buffer name")
	cmd.Flags().StringVar(&source, SourceOptionName, "", "Declared source name")
	return cmd
}

func NewClearCommand() *cobra.Command {
	var ring string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Zero the ring backing memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			return apiClient.RingClear(ring)
		},
	}
	cmd.Flags().StringVar(&ring, RingOptionName, "", "Ring buffer name")
	return cmd
}
