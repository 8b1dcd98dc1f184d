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

package reset

import (
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ddc/pkg/command"
	"jinr.ru/greenlab/go-ddc/pkg/config"
)

// NewCommand drops the session state on the control server: the register
// shadow and every stage's allocation table
func NewCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			return apiClient.Reset()
		},
	}
	return cmd
}
