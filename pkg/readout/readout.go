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

// Package readout implements the per-stage frequency allocators: mapping a
// requested down-conversion frequency to a mixing channel and a residual
// DDS tuning word, and programming the stage's registers through the
// device fabric.
package readout

import (
	"math"

	"jinr.ru/greenlab/go-ddc/pkg/fabric/ifc"
	"jinr.ru/greenlab/go-ddc/pkg/freq"
)

// Readout is one down-conversion stage that can be steered to a frequency.
// SetFreq binds the requested frequency to the logical output channel of
// the stage; for single-channel stages the only valid output is 0.
type Readout interface {
	Name() string
	Context() freq.SamplingContext
	SetFreq(f float64, out int) error
	SetOutputMode(mode string) error
}

// DDSReadout is the plain single-channel stage: one fine mixer, one
// output, no filter bank. There is nothing to collide with, the tuning
// word is overwritten unconditionally.
//
// Registers: freq, phase, nsamp, outsel, mode, we.
type DDSReadout struct {
	name  string
	block ifc.RegisterBlock
	ctx   freq.SamplingContext
}

var _ Readout = &DDSReadout{}

var ddsOutputModes = map[string]uint32{
	"product": 0,
	"dds":     1,
	"input":   2,
}

func NewDDSReadout(name string, block ifc.RegisterBlock, ctx freq.SamplingContext) (*DDSReadout, error) {
	r := &DDSReadout{
		name:  name,
		block: block,
		ctx:   ctx,
	}
	// default registers: continuous mode, product output
	defaults := []struct {
		reg   string
		value uint32
	}{
		{"freq", 0},
		{"phase", 0},
		{"nsamp", 10},
		{"outsel", 0},
		{"mode", 1},
	}
	for _, d := range defaults {
		if err := block.SetReg(d.reg, d.value); err != nil {
			return nil, err
		}
	}
	if err := r.update(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *DDSReadout) Name() string {
	return r.name
}

func (r *DDSReadout) Context() freq.SamplingContext {
	return r.ctx
}

// update pulses the write-enable register to push the staged values into
// the readout logic.
func (r *DDSReadout) update() error {
	if err := r.block.SetReg("we", 1); err != nil {
		return err
	}
	return r.block.SetReg("we", 0)
}

// SetFreq folds the requested frequency into the principal Nyquist zone,
// reduces it into the stage's DDS bandwidth and programs the tuning word.
func (r *DDSReadout) SetFreq(f float64, out int) error {
	if out != 0 {
		return ErrOutOfRange{What: "output channel", Value: out, Limit: 0}
	}
	folded := freq.FoldNyquist(f, r.ctx.SampleRate)
	reduced := math.Mod(folded, r.ctx.DDSBandwidth)
	if reduced < 0 {
		reduced += r.ctx.DDSBandwidth
	}
	word := freq.WordFromFreq(reduced, r.ctx.DDSBandwidth, r.ctx.WordBits)
	if err := r.block.SetReg("freq", uint32(word)); err != nil {
		return err
	}
	return r.update()
}

// Freq returns the frequency currently programmed into the tuning word,
// quantized to the stage's step.
func (r *DDSReadout) Freq() (float64, error) {
	word, err := r.block.GetReg("freq")
	if err != nil {
		return 0, err
	}
	return freq.FreqFromWord(int64(word), r.ctx.DDSBandwidth, r.ctx.WordBits), nil
}

func (r *DDSReadout) SetOutputMode(mode string) error {
	sel, ok := ddsOutputModes[mode]
	if !ok {
		return ErrUnknownMode{Mode: mode}
	}
	if err := r.block.SetReg("outsel", sel); err != nil {
		return err
	}
	return r.update()
}
