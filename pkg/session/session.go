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

// Package session assembles one device session from the config topology:
// the control-link fabric, the state store mirroring it, and the readout
// and capture drivers on top. Every committed frequency assignment is
// persisted through the store, so a later process joining the session
// sees the same allocation table the device holds.
package session

import (
	"context"

	"jinr.ru/greenlab/go-ddc/pkg/capture"
	"jinr.ru/greenlab/go-ddc/pkg/config"
	"jinr.ru/greenlab/go-ddc/pkg/fabric"
	"jinr.ru/greenlab/go-ddc/pkg/fabric/ifc"
	"jinr.ru/greenlab/go-ddc/pkg/fabric/link"
	"jinr.ru/greenlab/go-ddc/pkg/freq"
	"jinr.ru/greenlab/go-ddc/pkg/log"
	"jinr.ru/greenlab/go-ddc/pkg/readout"
	"jinr.ru/greenlab/go-ddc/pkg/state"
)

type Session struct {
	context.Context
	*config.Config
	fab      ifc.Fabric
	store    *state.Store
	stages   map[string]readout.Readout
	switches map[string]*capture.Switch
	buffers  map[string]*capture.AvgBuffer
	rings    map[string]*capture.RingBuffer
}

// NewSession connects the control link and builds every stage, switch,
// buffer and ring the config declares.
func NewSession(ctx context.Context, cfg *config.Config) (*Session, error) {
	store, err := state.NewStore(ctx, cfg.StateDB)
	if err != nil {
		return nil, err
	}
	fab, err := link.Connect(ctx, cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	s := &Session{
		Context:  ctx,
		Config:   cfg,
		fab:      fab,
		store:    store,
		stages:   make(map[string]readout.Readout),
		switches: make(map[string]*capture.Switch),
		buffers:  make(map[string]*capture.AvgBuffer),
		rings:    make(map[string]*capture.RingBuffer),
	}
	if err := s.build(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) build() error {
	for _, sc := range s.Config.Switches {
		block, err := s.fab.Block(sc.Block)
		if err != nil {
			return err
		}
		s.switches[sc.Name] = capture.NewSwitch(sc.Name, block, sc.Ports)
	}
	for _, stc := range s.Config.Stages {
		stage, err := s.buildStage(stc)
		if err != nil {
			return err
		}
		s.stages[stc.Name] = stage
	}
	for _, bc := range s.Config.Buffers {
		block, err := s.fab.Block(bc.Block)
		if err != nil {
			return err
		}
		dma, err := s.fab.DMA(bc.DMA)
		if err != nil {
			return err
		}
		var sw *capture.Switch
		if bc.Switch != "" {
			var ok bool
			if sw, ok = s.switches[bc.Switch]; !ok {
				return fabric.ErrUnknownName{Kind: "switch", Name: bc.Switch}
			}
		}
		s.buffers[bc.Name] = capture.NewAvgBuffer(bc.Name, block, dma, sw, bc.Port, bc.AvgMax, bc.RawMax)
	}
	for _, rc := range s.Config.Rings {
		block, err := s.fab.Block(rc.Block)
		if err != nil {
			return err
		}
		region, err := s.fab.Region(rc.Region)
		if err != nil {
			return err
		}
		var sw *capture.Switch
		if rc.Switch != "" {
			var ok bool
			if sw, ok = s.switches[rc.Switch]; !ok {
				return fabric.ErrUnknownName{Kind: "switch", Name: rc.Switch}
			}
		}
		s.rings[rc.Name] = capture.NewRingBuffer(rc.Name, block, region, sw, rc.Sources, rc.BurstLen, rc.DataWidth)
	}
	return nil
}

// buildStage constructs one down-conversion stage and rejoins it to the
// allocation table persisted for the running device session.
func (s *Session) buildStage(stc *config.StageConfig) (readout.Readout, error) {
	block, err := s.fab.Block(stc.Block)
	if err != nil {
		return nil, err
	}
	ctx := freq.NewSamplingContext(stc.SampleRate, stc.Decimation, stc.WordBits, stc.Channels)
	switch stc.Kind {
	case config.StageKindDDS:
		return readout.NewDDSReadout(stc.Name, block, ctx)
	case config.StageKindPFB, config.StageKindMuxPFB:
		table := readout.NewTable()
		words, binds, err := s.store.LoadAssignments(stc.Name)
		if err != nil {
			return nil, err
		}
		table.Restore(words, binds)
		name := stc.Name
		table.SetOnCommit(func(ch int, word uint32, out int) error {
			return s.store.SaveAssignment(name, ch, word, out)
		})
		if stc.Kind == config.StageKindPFB {
			return readout.NewPFBReadout(stc.Name, block, ctx, stc.Outputs, table), nil
		}
		return readout.NewMuxPFBReadout(stc.Name, block, ctx, stc.Outputs, stc.Lanes, table), nil
	default:
		return nil, config.ErrBadStageKind{Stage: stc.Name, Kind: stc.Kind}
	}
}

func (s *Session) Close() {
	s.fab.Close()
	s.store.Close()
}

func (s *Session) Stage(name string) (readout.Readout, error) {
	stage, ok := s.stages[name]
	if !ok {
		return nil, fabric.ErrUnknownName{Kind: "stage", Name: name}
	}
	return stage, nil
}

func (s *Session) Buffer(name string) (*capture.AvgBuffer, error) {
	buffer, ok := s.buffers[name]
	if !ok {
		return nil, fabric.ErrUnknownName{Kind: "buffer", Name: name}
	}
	return buffer, nil
}

func (s *Session) Ring(name string) (*capture.RingBuffer, error) {
	ring, ok := s.rings[name]
	if !ok {
		return nil, fabric.ErrUnknownName{Kind: "ring", Name: name}
	}
	return ring, nil
}

// SetFreq steers a stage output to a frequency.
func (s *Session) SetFreq(stage string, f float64, out int) error {
	r, err := s.Stage(stage)
	if err != nil {
		return err
	}
	log.Info("Setting frequency: stage: %s freq: %f out: %d", stage, f, out)
	return r.SetFreq(f, out)
}

// SetOutputMode selects what a stage streams downstream.
func (s *Session) SetOutputMode(stage, mode string) error {
	r, err := s.Stage(stage)
	if err != nil {
		return err
	}
	return r.SetOutputMode(mode)
}

// RegRead returns a register value, shadowed reads served from the store.
func (s *Session) RegRead(block, reg string) (uint32, error) {
	b, err := s.fab.Block(block)
	if err != nil {
		return 0, err
	}
	return b.GetReg(reg)
}

func (s *Session) RegWrite(block, reg string, value uint32) error {
	b, err := s.fab.Block(block)
	if err != nil {
		return err
	}
	return b.SetReg(reg, value)
}

// RegAll returns the shadowed registers of a block.
func (s *Session) RegAll(block string) (map[string]uint32, error) {
	if _, err := s.fab.Block(block); err != nil {
		return nil, err
	}
	return s.store.GetRegAll(block)
}

// Reset drops the session state: the register shadow and every stage's
// allocation table. The next assignment starts from an empty table.
func (s *Session) Reset() error {
	if err := s.store.Reset(); err != nil {
		return err
	}
	for name := range s.stages {
		rebuilt, err := s.buildStage(s.Config.Stage(name))
		if err != nil {
			return err
		}
		s.stages[name] = rebuilt
	}
	return nil
}
