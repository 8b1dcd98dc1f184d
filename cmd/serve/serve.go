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

package serve

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ddc/pkg/config"
	"jinr.ru/greenlab/go-ddc/pkg/session"
	"jinr.ru/greenlab/go-ddc/pkg/srv"
)

const (
	AddressOptionName = "address"
	PortOptionName    = "port"
)

// NewCommand connects the device session and runs the control REST API
// in front of it
func NewCommand() *cobra.Command {
	var address string
	var port int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the control server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				cfg.Api.Address = address
			}
			if port != 0 {
				cfg.Api.Port = port
			}
			ctx := context.Background()
			sess, err := session.NewSession(ctx, cfg)
			if err != nil {
				return err
			}
			defer sess.Close()
			return srv.NewApiServer(ctx, cfg, sess).Run()
		},
	}
	cmd.Flags().StringVar(&address, AddressOptionName, "",
		fmt.Sprintf("Address to bind. E.g. %s", config.DefaultApiAddress))
	cmd.Flags().IntVar(&port, PortOptionName, 0,
		fmt.Sprintf("Port to bind. E.g. %d", config.DefaultApiPort))
	return cmd
}
