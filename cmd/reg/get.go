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

package reg

import (
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ddc/pkg/command"
	"jinr.ru/greenlab/go-ddc/pkg/config"
)

func NewGetCommand() *cobra.Command {
	var block, regName string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get reg value",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			if regName == "" {
				regs, err := apiClient.RegGetAll(block)
				if err != nil {
					return err
				}
				for _, reg := range regs {
					cmd.Printf("%s: %s\n", reg.Reg, reg.Value)
				}
				return nil
			}
			value, err := apiClient.RegGet(block, regName)
			if err != nil {
				return err
			}
			cmd.Println(value)
			return nil
		},
	}
	cmd.Flags().StringVar(&block, BlockOptionName, "", "Register block name")
	cmd.Flags().StringVar(&regName, RegOptionName, "", "Register name. All shadowed registers when empty")
	return cmd
}
