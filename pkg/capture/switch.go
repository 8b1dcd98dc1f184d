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
	"jinr.ru/greenlab/go-ddc/pkg/fabric/ifc"
	"jinr.ru/greenlab/go-ddc/pkg/log"
)

// Switch is the stream selector in front of a shared capture unit. One
// input port is routed at a time; switching mid-stream is glitch-free
// because the fabric is quiesced first and re-committed after.
//
// Registers: ctrl, sel.
type Switch struct {
	name  string
	block ifc.RegisterBlock
	n     int
	cur   int
	// routed stays false until the first Select so that the initial
	// port 0 selection is actually programmed rather than assumed
	routed bool
}

func NewSwitch(name string, block ifc.RegisterBlock, n int) *Switch {
	return &Switch{
		name:  name,
		block: block,
		n:     n,
	}
}

func (s *Switch) Name() string {
	return s.name
}

func (s *Switch) Ports() int {
	return s.n
}

// Select routes the given input port to the output. Reselecting the
// current port is a no-op so that interleaved transfers from the same
// source do not disturb the stream.
func (s *Switch) Select(port int) error {
	if port < 0 || port >= s.n {
		return ErrPortOutOfRange{Switch: s.name, Port: port, Limit: s.n - 1}
	}
	if s.routed && s.cur == port {
		return nil
	}
	log.Debug("Routing switch %s to port %d", s.name, port)
	if err := s.block.SetReg("ctrl", 0); err != nil {
		return err
	}
	if err := s.block.SetReg("sel", uint32(port)); err != nil {
		return err
	}
	if err := s.block.SetReg("ctrl", 2); err != nil {
		return err
	}
	s.cur = port
	s.routed = true
	return nil
}

// Selected returns the currently routed port, valid after the first
// Select.
func (s *Switch) Selected() (int, bool) {
	return s.cur, s.routed
}
