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
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-ddc/pkg/fabric"
)

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
	return b.regs[reg], nil
}

func (b *fakeBlock) SetReg(reg string, value uint32) error {
	b.regs[reg] = value
	b.writes = append(b.writes, fmt.Sprintf("%s=%d", reg, value))
	return nil
}

// fakeDMA fills the transfer buffer with a caller-provided pattern and
// reports a configurable completion byte count.
type fakeDMA struct {
	name    string
	fill    func(buf []byte)
	nbytes  int
	waitN   int
	waitErr error
}

func (d *fakeDMA) Name() string {
	return d.name
}

func (d *fakeDMA) Transfer(buf []byte, nbytes int) error {
	d.nbytes = nbytes
	if d.fill != nil {
		d.fill(buf)
	}
	return nil
}

func (d *fakeDMA) Wait(timeout time.Duration) (int, error) {
	if d.waitErr != nil {
		return 0, d.waitErr
	}
	if d.waitN < 0 {
		return d.nbytes, nil
	}
	return d.waitN, nil
}

type fakeRegion struct {
	name  string
	words []uint32
}

func (r *fakeRegion) Name() string {
	return r.name
}

func (r *fakeRegion) Size() int {
	return len(r.words)
}

func (r *fakeRegion) ReadWords(dst []uint32, offset int) error {
	if offset%2 != 0 || len(dst)%2 != 0 {
		return fmt.Errorf("unaligned access: offset %d length %d", offset, len(dst))
	}
	if offset < 0 || offset+len(dst) > len(r.words) {
		return fabric.ErrRegionBounds{Region: r.name, Offset: offset, Length: len(dst), Size: len(r.words)}
	}
	copy(dst, r.words[offset:])
	return nil
}

func (r *fakeRegion) WriteWords(src []uint32, offset int) error {
	if offset < 0 || offset+len(src) > len(r.words) {
		return fabric.ErrRegionBounds{Region: r.name, Offset: offset, Length: len(src), Size: len(r.words)}
	}
	copy(r.words[offset:], src)
	return nil
}

func TestConfigureAvg(t *testing.T) {
	block := newFakeBlock("buf0")
	buf := NewAvgBuffer("buf0", block, &fakeDMA{name: "dma0", waitN: -1}, nil, 0, 1024, 4096)

	require.NoError(t, buf.ConfigureAvg(0, 100))
	assert.Equal(t, []string{"avg_start=0", "avg_addr=0", "avg_len=100"}, block.writes)

	err := buf.ConfigureAvg(0, 1024)
	var tooLong ErrWindowTooLong
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, 1024, tooLong.Max)
}

func TestCaptureAvgArms(t *testing.T) {
	block := newFakeBlock("buf0")
	buf := NewAvgBuffer("buf0", block, &fakeDMA{name: "dma0", waitN: -1}, nil, 0, 1024, 4096)

	require.NoError(t, buf.CaptureAvg(16, 200))
	assert.Equal(t, uint32(1), block.regs["avg_start"])
	assert.Equal(t, uint32(16), block.regs["avg_addr"])
	assert.Equal(t, uint32(200), block.regs["avg_len"])
}

func TestConfigureBothSides(t *testing.T) {
	block := newFakeBlock("buf0")
	buf := NewAvgBuffer("buf0", block, &fakeDMA{name: "dma0", waitN: -1}, nil, 0, 1024, 4096)

	require.NoError(t, buf.Configure(0, 200))
	require.NoError(t, buf.Enable())
	assert.Equal(t, uint32(200), block.regs["avg_len"])
	assert.Equal(t, uint32(200), block.regs["raw_len"])
	assert.Equal(t, uint32(1), block.regs["avg_start"])
	assert.Equal(t, uint32(1), block.regs["raw_start"])

	require.NoError(t, buf.Disable())
	assert.Equal(t, uint32(0), block.regs["avg_start"])
	assert.Equal(t, uint32(0), block.regs["raw_start"])
}

func TestTransferAvgPadsOddWindow(t *testing.T) {
	block := newFakeBlock("buf0")
	dma := &fakeDMA{
		name:  "dma0",
		waitN: -1,
		fill: func(buf []byte) {
			for i := 0; i < len(buf)/8; i++ {
				binary.LittleEndian.PutUint32(buf[i*8:], uint32(int32(i)))
				binary.LittleEndian.PutUint32(buf[i*8+4:], uint32(int32(-i)))
			}
		},
	}
	buf := NewAvgBuffer("buf0", block, dma, nil, 0, 1024, 4096)

	samples, err := buf.TransferAvg(0, 101)
	require.NoError(t, err)
	// 101 is odd so 102 samples cross the wire, the pad is trimmed
	assert.Equal(t, 102*8, dma.nbytes)
	assert.Equal(t, uint32(102), block.regs["avg_dr_len"])
	require.Len(t, samples, 101)
	assert.Equal(t, IQ32{I: 0, Q: 0}, samples[0])
	assert.Equal(t, IQ32{I: 100, Q: -100}, samples[100])
	// drain strobe must be back down after the transfer
	assert.Equal(t, uint32(0), block.regs["avg_dr_start"])
}

func TestTransferWindowLimits(t *testing.T) {
	block := newFakeBlock("buf0")
	buf := NewAvgBuffer("buf0", block, &fakeDMA{name: "dma0", waitN: -1}, nil, 0, 1024, 4096)

	// a full-depth window leaves no slot for the readback pointer
	_, err := buf.TransferAvg(0, 1024)
	var tooLong ErrWindowTooLong
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, 1024, tooLong.Max)
	_, err = buf.TransferRaw(0, 4096)
	require.ErrorAs(t, err, &tooLong)

	// the even-count pad counts against the buffer end
	var bounds ErrWindowBounds
	_, err = buf.TransferAvg(924, 101)
	require.ErrorAs(t, err, &bounds)
	assert.Equal(t, 1026, bounds.End)
	_, err = buf.TransferRaw(4095, 1)
	require.ErrorAs(t, err, &bounds)

	// one slot lower the padded window just fits
	_, err = buf.TransferAvg(922, 101)
	require.NoError(t, err)
}

func TestTransferRawIntegrity(t *testing.T) {
	block := newFakeBlock("buf0")
	dma := &fakeDMA{name: "dma0", waitN: 198}
	buf := NewAvgBuffer("buf0", block, dma, nil, 0, 1024, 4096)

	samples, err := buf.TransferRaw(0, 51)
	require.Error(t, err)
	var integrity ErrTransferIntegrity
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, 52*4, integrity.Requested)
	assert.Equal(t, 198, integrity.Transferred)
	// no partial window reaches the caller
	assert.Nil(t, samples)
	assert.Equal(t, uint32(0), block.regs["raw_dr_start"])
}

func TestTransferTimeout(t *testing.T) {
	block := newFakeBlock("buf0")
	dma := &fakeDMA{
		name:    "dma0",
		waitErr: fabric.ErrWaitTimeout{Channel: "dma0", Timeout: time.Second},
	}
	buf := NewAvgBuffer("buf0", block, dma, nil, 0, 1024, 4096)
	buf.SetTimeout(time.Second)

	_, err := buf.TransferAvg(0, 10)
	var timeout fabric.ErrWaitTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, uint32(0), block.regs["avg_dr_start"])
}

func TestTransferRoutesSwitch(t *testing.T) {
	swBlock := newFakeBlock("sw0")
	sw := NewSwitch("sw0", swBlock, 4)
	block := newFakeBlock("buf1")
	dma := &fakeDMA{name: "dma0", waitN: -1}
	buf := NewAvgBuffer("buf1", block, dma, sw, 2, 1024, 4096)

	_, err := buf.TransferAvg(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"ctrl=0", "sel=2", "ctrl=2"}, swBlock.writes)

	// a second transfer from the same port must not touch the switch
	_, err = buf.TransferAvg(0, 4)
	require.NoError(t, err)
	assert.Len(t, swBlock.writes, 3)
}

func TestSwitchSelect(t *testing.T) {
	block := newFakeBlock("sw0")
	sw := NewSwitch("sw0", block, 2)

	require.NoError(t, sw.Select(0))
	assert.Equal(t, []string{"ctrl=0", "sel=0", "ctrl=2"}, block.writes)
	require.NoError(t, sw.Select(0))
	assert.Len(t, block.writes, 3)

	err := sw.Select(2)
	var bad ErrPortOutOfRange
	require.ErrorAs(t, err, &bad)
}

func TestHardwiredSource(t *testing.T) {
	block := newFakeBlock("buf0")
	buf := NewAvgBuffer("buf0", block, &fakeDMA{name: "dma0", waitN: -1}, nil, 0, 1024, 4096)

	require.NoError(t, buf.SetSwitch(0))
	err := buf.SetSwitch(1)
	var hardwired ErrHardwiredSource
	require.ErrorAs(t, err, &hardwired)
}

func newTestRing(size, burstLen int) (*RingBuffer, *fakeBlock, *fakeRegion) {
	block := newFakeBlock("ring0")
	region := &fakeRegion{name: "ring0mem", words: make([]uint32, size)}
	for i := range region.words {
		region.words[i] = uint32(i)
	}
	ring := NewRingBuffer("ring0", block, region, nil, map[string]int{"readout0": 0}, burstLen, 32)
	return ring, block, region
}

func TestRingArm(t *testing.T) {
	ring, block, _ := newTestRing(1024, 64)

	require.NoError(t, ring.Arm(8, false))
	assert.Equal(t, []string{"wstart=0", "wnburst=8", "wstart=1"}, block.writes)

	err := ring.Arm(17, false)
	var capErr ErrCapacity
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 16, capErr.Max)

	require.NoError(t, ring.Arm(17, true))
}

func TestRingReadWindow(t *testing.T) {
	ring, _, _ := newTestRing(1024, 64)

	// [7, 50) is widened to the aligned [6, 50) and trimmed back
	samples, err := ring.ReadWindow(7, 50)
	require.NoError(t, err)
	require.Len(t, samples, 43)
	assert.Equal(t, int16(7), samples[0].I)
	assert.Equal(t, int16(49), samples[42].I)

	_, err = ring.ReadWindow(50, 50)
	var bounds ErrWindowBounds
	require.ErrorAs(t, err, &bounds)
	_, err = ring.ReadWindow(1000, 2000)
	require.ErrorAs(t, err, &bounds)
}

func TestRingReadSkipsJunk(t *testing.T) {
	ring, _, _ := newTestRing(1024, 64)
	require.Equal(t, 51, ring.JunkLen())

	// the junk shortens a default read, the window still ends at the
	// last armed burst
	samples, err := ring.Read(2, -1)
	require.NoError(t, err)
	require.Len(t, samples, 2*64-51)
	assert.Equal(t, int16(51), samples[0].I)
	assert.Equal(t, int16(127), samples[len(samples)-1].I)

	// an explicit start reads the full burst count from there
	samples, err = ring.Read(2, 100)
	require.NoError(t, err)
	require.Len(t, samples, 128)
	assert.Equal(t, int16(100), samples[0].I)
}

func TestRingReadFullCapacity(t *testing.T) {
	ring, _, _ := newTestRing(1024, 64)

	// a capture armed to the full capacity must read back without
	// running past the end of the memory
	require.NoError(t, ring.Arm(ring.Capacity(), false))
	samples, err := ring.Read(ring.Capacity(), -1)
	require.NoError(t, err)
	require.Len(t, samples, 1024-51)
	assert.Equal(t, int16(51), samples[0].I)
	assert.Equal(t, int16(1023), samples[len(samples)-1].I)
}

func TestRingClear(t *testing.T) {
	ring, _, region := newTestRing(1024, 64)

	require.NoError(t, ring.Clear())
	for i, word := range region.words {
		require.Zero(t, word, "word %d not cleared", i)
	}
}

func TestRingRoute(t *testing.T) {
	ring, _, _ := newTestRing(1024, 64)
	require.NoError(t, ring.Route("readout0"))
	assert.Error(t, ring.Route("readout9"))
}
