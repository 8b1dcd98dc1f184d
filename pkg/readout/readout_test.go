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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-ddc/pkg/freq"
)

// fakeBlock records register writes in order and serves reads from the
// last written value.
type fakeBlock struct {
	name   string
	regs   map[string]uint32
	writes []string
}

func newFakeBlock(name string) *fakeBlock {
	return &fakeBlock{
		name: name,
		regs: make(map[string]uint32),
	}
}

func (b *fakeBlock) Name() string {
	return b.name
}

func (b *fakeBlock) GetReg(reg string) (uint32, error) {
	value, ok := b.regs[reg]
	if !ok {
		return 0, fmt.Errorf("no such register: %s", reg)
	}
	return value, nil
}

func (b *fakeBlock) SetReg(reg string, value uint32) error {
	b.regs[reg] = value
	b.writes = append(b.writes, fmt.Sprintf("%s=%d", reg, value))
	return nil
}

func pfbContext() freq.SamplingContext {
	return freq.SamplingContext{
		SampleRate:    1600,
		Decimation:    1,
		WordBits:      32,
		Channels:      8,
		CenterChannel: 4,
		DDSBandwidth:  100,
	}
}

func TestDDSReadoutDefaults(t *testing.T) {
	block := newFakeBlock("readout0")
	_, err := NewDDSReadout("readout0", block, freq.SamplingContext{
		SampleRate:   200,
		Decimation:   1,
		WordBits:     32,
		Channels:     1,
		DDSBandwidth: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), block.regs["freq"])
	assert.Equal(t, uint32(10), block.regs["nsamp"])
	assert.Equal(t, uint32(1), block.regs["mode"])
	assert.Equal(t, uint32(0), block.regs["outsel"])
	// the staged defaults must have been pushed with a we pulse
	assert.Equal(t, uint32(0), block.regs["we"])
	n := len(block.writes)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, "we=1", block.writes[n-2])
	assert.Equal(t, "we=0", block.writes[n-1])
}

func TestDDSReadoutSetFreq(t *testing.T) {
	block := newFakeBlock("readout0")
	r, err := NewDDSReadout("readout0", block, freq.SamplingContext{
		SampleRate:   200,
		Decimation:   1,
		WordBits:     32,
		Channels:     1,
		DDSBandwidth: 100,
	})
	require.NoError(t, err)

	// 120 MHz sits in the second Nyquist zone of fs=200: the image the
	// stage actually sees is -120, reduced into [0, 100) that is 80.
	require.NoError(t, r.SetFreq(120, 0))
	assert.Equal(t, uint32(3435973837), block.regs["freq"])

	got, err := r.Freq()
	require.NoError(t, err)
	assert.InDelta(t, 80, got, 1e-6)

	err = r.SetFreq(10, 1)
	assert.ErrorContains(t, err, "output channel")
}

func TestDDSReadoutSetOutputMode(t *testing.T) {
	block := newFakeBlock("readout0")
	r, err := NewDDSReadout("readout0", block, freq.SamplingContext{
		SampleRate:   200,
		Decimation:   1,
		WordBits:     32,
		Channels:     1,
		DDSBandwidth: 100,
	})
	require.NoError(t, err)

	require.NoError(t, r.SetOutputMode("dds"))
	assert.Equal(t, uint32(1), block.regs["outsel"])
	require.NoError(t, r.SetOutputMode("input"))
	assert.Equal(t, uint32(2), block.regs["outsel"])
	assert.Error(t, r.SetOutputMode("loopback"))
}

func TestPFBReadoutSetFreq(t *testing.T) {
	block := newFakeBlock("pfb0")
	r := NewPFBReadout("pfb0", block, pfbContext(), 4, NewTable())

	// 50 MHz is exactly one channel step above the center: channel 5,
	// zero residual.
	require.NoError(t, r.SetFreq(50, 0))
	assert.Equal(t, uint32(0), block.regs["freq5"])
	assert.Equal(t, uint32(5), block.regs["ch0sel"])

	ch, ok := r.Table().Channel(0)
	require.True(t, ok)
	assert.Equal(t, 5, ch)

	// negative frequencies step below the center channel
	require.NoError(t, r.SetFreq(-50, 1))
	assert.Equal(t, uint32(3), block.regs["ch1sel"])
}

func TestPFBReadoutFanOut(t *testing.T) {
	block := newFakeBlock("pfb0")
	r := NewPFBReadout("pfb0", block, pfbContext(), 4, NewTable())

	require.NoError(t, r.SetFreq(60, 0))
	// same tuning word on the same channel: second output joins the
	// channel's fan-out set
	require.NoError(t, r.SetFreq(60, 2))
	assert.Equal(t, []int{0, 2}, r.Table().Outputs(5))
}

func TestPFBReadoutCollision(t *testing.T) {
	block := newFakeBlock("pfb0")
	r := NewPFBReadout("pfb0", block, pfbContext(), 4, NewTable())

	require.NoError(t, r.SetFreq(50, 0))
	// 60 MHz maps to the same channel 5 with a different residual word
	err := r.SetFreq(60, 1)
	require.Error(t, err)
	var collision ErrFreqCollision
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, 1, collision.NewOut)
	assert.Equal(t, 0, collision.OldOut)
	assert.InDelta(t, 50, collision.OldFreq, 1e-6)
	assert.InDelta(t, 60, collision.NewFreq, 1e-6)
	assert.InDelta(t, 25, collision.Lo, 1e-6)
	assert.InDelta(t, 75, collision.Hi, 1e-6)

	// the committed word must be untouched by the rejected request
	word, ok := r.Table().Word(5)
	require.True(t, ok)
	assert.Equal(t, uint32(0), word)
	_, bound := r.Table().Channel(1)
	assert.False(t, bound)
}

func TestPFBReadoutCollisionBelowCenter(t *testing.T) {
	block := newFakeBlock("pfb0")
	r := NewPFBReadout("pfb0", block, pfbContext(), 4, NewTable())

	// 45 and 48 MHz both land on channel 5 with negative residuals; the
	// wrapped tuning words must decode back below the channel center, not
	// a full bandwidth above it
	require.NoError(t, r.SetFreq(45, 0))
	err := r.SetFreq(48, 1)
	require.Error(t, err)
	var collision ErrFreqCollision
	require.ErrorAs(t, err, &collision)
	assert.InDelta(t, 45, collision.OldFreq, 1e-6)
	assert.InDelta(t, 48, collision.NewFreq, 1e-6)
	assert.InDelta(t, 25, collision.Lo, 1e-6)
	assert.InDelta(t, 75, collision.Hi, 1e-6)
}

func TestPFBReadoutCollisionReportsLastCommitter(t *testing.T) {
	block := newFakeBlock("pfb0")
	r := NewPFBReadout("pfb0", block, pfbContext(), 4, NewTable())

	require.NoError(t, r.SetFreq(60, 0))
	require.NoError(t, r.SetFreq(60, 2))
	// the conflict is against the most recent committer on the channel,
	// not the lowest-numbered member of its fan-out set
	err := r.SetFreq(55, 1)
	var collision ErrFreqCollision
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, 2, collision.OldOut)
	assert.Equal(t, 1, collision.NewOut)
}

func TestPFBReadoutOutputRange(t *testing.T) {
	block := newFakeBlock("pfb0")
	r := NewPFBReadout("pfb0", block, pfbContext(), 4, NewTable())
	assert.Error(t, r.SetFreq(50, 4))
	assert.Error(t, r.SetFreq(50, -1))
}

func TestPFBReadoutModeLatch(t *testing.T) {
	block := newFakeBlock("pfb0")
	r := NewPFBReadout("pfb0", block, pfbContext(), 4, NewTable())

	require.NoError(t, r.SetOutputMode("product"))
	// repeating the latched mode is fine
	require.NoError(t, r.SetOutputMode("product"))
	err := r.SetOutputMode("dds")
	var conflict ErrModeConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "product", conflict.Current)
}

func TestMuxPFBReadoutSetFreq(t *testing.T) {
	block := newFakeBlock("pfb1")
	r := NewMuxPFBReadout("pfb1", block, pfbContext(), 16, 4, NewTable())

	// channel 5 on a 4-lane bus: packet 1, lane 1
	require.NoError(t, r.SetFreq(60, 3))
	assert.Equal(t, uint32(1<<8|1), block.regs["id3"])
	assert.Equal(t, uint32(429496730), block.regs["freq3"])
	assert.Equal(t, uint32(0), block.regs["phase3"])
}

func TestMuxPFBReadoutSharedChannel(t *testing.T) {
	block := newFakeBlock("pfb1")
	r := NewMuxPFBReadout("pfb1", block, pfbContext(), 16, 4, NewTable())

	require.NoError(t, r.SetFreq(60, 0))
	require.NoError(t, r.SetFreq(60, 7))
	assert.Equal(t, []int{0, 7}, r.Table().Outputs(5))

	err := r.SetFreq(55, 8)
	var collision ErrFreqCollision
	require.ErrorAs(t, err, &collision)
}

func TestTableRebind(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Commit(5, 100, 0))
	require.NoError(t, table.Commit(3, 200, 0))

	ch, ok := table.Channel(0)
	require.True(t, ok)
	assert.Equal(t, 3, ch)
	assert.Empty(t, table.Outputs(5))
	// the released channel keeps its word, the hardware still holds it
	word, ok := table.Word(5)
	require.True(t, ok)
	assert.Equal(t, uint32(100), word)
}

func TestTableRestore(t *testing.T) {
	table := NewTable()
	table.Restore(map[int]uint32{5: 42}, map[int]int{1: 5, 3: 5})
	assert.Equal(t, []int{1, 3}, table.Outputs(5))
	word, ok := table.Word(5)
	require.True(t, ok)
	assert.Equal(t, uint32(42), word)
}
