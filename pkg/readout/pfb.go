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

package readout

import (
	"fmt"
	"math"

	"jinr.ru/greenlab/go-ddc/pkg/fabric/ifc"
	"jinr.ru/greenlab/go-ddc/pkg/freq"
)

// allocate picks the filter-bank channel for a requested frequency.
// The channels are spaced at half the DDS bandwidth; round() selects the
// single nearest one, which minimizes the residual left to the fine mixer
// at the cost that two close-together frequencies may land on the same
// channel and collide instead of being silently approximated.
func allocate(ctx freq.SamplingContext, f float64) (ch int, residual float64) {
	folded := freq.FoldNyquist(f, ctx.SampleRate)
	halfStep := ctx.DDSBandwidth / 2
	steps := int(math.Round(folded / halfStep))
	residual = folded - float64(steps)*halfStep
	ch = (ctx.CenterChannel + steps) % ctx.Channels
	if ch < 0 {
		ch += ctx.Channels
	}
	return ch, residual
}

// signedWord reinterprets a wrapped tuning word as its two's-complement
// value, so negative residuals decode back below the channel center.
func signedWord(word uint32, bits int) int64 {
	v := int64(word)
	if v >= int64(1)<<(bits-1) {
		v -= int64(1) << bits
	}
	return v
}

// collision builds the allocation error for a contested mixing channel:
// the band the channel is optimal for and the absolute frequencies both
// outputs asked for, all expressed in the first Nyquist zone.
func collision(ctx freq.SamplingContext, table *Table, ch int, word uint32, out int) error {
	oldWord, _ := table.Word(ch)
	oldOut := out
	if last, ok := table.LastOutput(ch); ok {
		oldOut = last
	}
	center := float64((ch-ctx.CenterChannel)%ctx.Channels) * (ctx.DDSBandwidth / 2)
	if center < 0 {
		center += float64(ctx.Channels) * (ctx.DDSBandwidth / 2)
	}
	return ErrFreqCollision{
		NewOut:  out,
		NewFreq: center + freq.FreqFromWord(signedWord(word, ctx.WordBits), ctx.DDSBandwidth, ctx.WordBits),
		OldOut:  oldOut,
		OldFreq: center + freq.FreqFromWord(signedWord(oldWord, ctx.WordBits), ctx.DDSBandwidth, ctx.WordBits),
		Lo:      center - ctx.DDSBandwidth/4,
		Hi:      center + ctx.DDSBandwidth/4,
	}
}

// PFBReadout is the legacy narrow filter-bank stage: a small fixed channel
// count and a handful of selectable outputs, each wired to a channel
// through a chNsel register. A mixing channel holds a single tuning word;
// outputs requesting the same word share the channel, a different word is
// a hard collision.
//
// Registers: freq0..freqN-1, outsel, ch0sel..ch<NOUT-1>sel.
type PFBReadout struct {
	name  string
	block ifc.RegisterBlock
	ctx   freq.SamplingContext
	nout  int
	table *Table
	sel   string
}

var _ Readout = &PFBReadout{}

var pfbOutputModes = map[string]uint32{
	"product": 0,
	"input":   1,
	"dds":     2,
}

func NewPFBReadout(name string, block ifc.RegisterBlock, ctx freq.SamplingContext, nout int, table *Table) *PFBReadout {
	return &PFBReadout{
		name:  name,
		block: block,
		ctx:   ctx,
		nout:  nout,
		table: table,
	}
}

func (r *PFBReadout) Name() string {
	return r.name
}

func (r *PFBReadout) Context() freq.SamplingContext {
	return r.ctx
}

func (r *PFBReadout) Table() *Table {
	return r.table
}

// SetFreq selects the best filter-bank channel for the requested
// frequency, programs that channel's residual tuning word and wires the
// channel to the given output.
func (r *PFBReadout) SetFreq(f float64, out int) error {
	if out < 0 || out >= r.nout {
		return ErrOutOfRange{What: "output channel", Value: out, Limit: r.nout - 1}
	}
	ch, residual := allocate(r.ctx, f)
	word := uint32(freq.WordFromFreq(residual, r.ctx.DDSBandwidth, r.ctx.WordBits))
	if committed, ok := r.table.Word(ch); ok && committed != word {
		return collision(r.ctx, r.table, ch, word, out)
	}
	if err := r.block.SetReg(fmt.Sprintf("freq%d", ch), word); err != nil {
		return err
	}
	if err := r.block.SetReg(fmt.Sprintf("ch%dsel", out), uint32(ch)); err != nil {
		return err
	}
	return r.table.Commit(ch, word, out)
}

// SetOutputMode selects the shared output mux. The mux is common to all
// outputs, so the first selected mode is latched and later changes are
// rejected.
func (r *PFBReadout) SetOutputMode(mode string) error {
	sel, ok := pfbOutputModes[mode]
	if !ok {
		return ErrUnknownMode{Mode: mode}
	}
	if r.sel != "" && r.sel != mode {
		return ErrModeConflict{Requested: mode, Current: r.sel}
	}
	if err := r.block.SetReg("outsel", sel); err != nil {
		return err
	}
	r.sel = mode
	return nil
}

// MuxPFBReadout is the wide filter-bank stage: a generic channel count
// streamed out over a time-multiplexed bus with LANES parallel lanes, and
// many independent outputs. The mixing channel feeding an output is
// addressed as a (packet, lane) pair packed into that output's id
// register; frequency and phase are per-output registers.
//
// Registers: id0..id<NOUT-1>, freq0..freq<NOUT-1>, phase0..phase<NOUT-1>.
type MuxPFBReadout struct {
	name  string
	block ifc.RegisterBlock
	ctx   freq.SamplingContext
	nout  int
	lanes int
	table *Table
}

var _ Readout = &MuxPFBReadout{}

func NewMuxPFBReadout(name string, block ifc.RegisterBlock, ctx freq.SamplingContext, nout, lanes int, table *Table) *MuxPFBReadout {
	return &MuxPFBReadout{
		name:  name,
		block: block,
		ctx:   ctx,
		nout:  nout,
		lanes: lanes,
		table: table,
	}
}

func (r *MuxPFBReadout) Name() string {
	return r.name
}

func (r *MuxPFBReadout) Context() freq.SamplingContext {
	return r.ctx
}

func (r *MuxPFBReadout) Table() *Table {
	return r.table
}

// SetFreq selects the best filter-bank channel, programs the output's
// residual tuning word and points the output's channel selector at the
// (packet, lane) slot the channel occupies on the TDM bus.
//
// The DDS blocks are phase coherent, so the same mixing channel can feed
// any number of outputs, as long as they all agree on its tuning word.
func (r *MuxPFBReadout) SetFreq(f float64, out int) error {
	if out < 0 || out >= r.nout {
		return ErrOutOfRange{What: "output channel", Value: out, Limit: r.nout - 1}
	}
	ch, residual := allocate(r.ctx, f)
	if ch < 0 || ch >= r.ctx.Channels {
		return ErrOutOfRange{What: "mixing channel", Value: ch, Limit: r.ctx.Channels - 1}
	}
	word := uint32(freq.WordFromFreq(residual, r.ctx.DDSBandwidth, r.ctx.WordBits))
	if committed, ok := r.table.Word(ch); ok && committed != word {
		return collision(r.ctx, r.table, ch, word, out)
	}
	packet := ch / r.lanes
	lane := ch % r.lanes
	id := uint32(lane)<<8 | uint32(packet)
	if err := r.block.SetReg(fmt.Sprintf("id%d", out), id); err != nil {
		return err
	}
	if err := r.block.SetReg(fmt.Sprintf("freq%d", out), word); err != nil {
		return err
	}
	if err := r.block.SetReg(fmt.Sprintf("phase%d", out), 0); err != nil {
		return err
	}
	return r.table.Commit(ch, word, out)
}

// SetOutputMode is accepted for interface compatibility; the wide stage
// has no output selection mux.
func (r *MuxPFBReadout) SetOutputMode(mode string) error {
	if _, ok := ddsOutputModes[mode]; !ok {
		return ErrUnknownMode{Mode: mode}
	}
	return nil
}
