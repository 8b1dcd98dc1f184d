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
	"jinr.ru/greenlab/go-ddc/pkg/fabric"
	"jinr.ru/greenlab/go-ddc/pkg/fabric/ifc"
	"jinr.ru/greenlab/go-ddc/pkg/log"
)

// clearChunk is the write granularity used by Clear, in words.
const clearChunk = 4096

// RingBuffer is the deep continuous capture unit: samples stream into a
// large memory region in fixed-size bursts and wrap around when the
// armed burst count exceeds the capacity. The host reads windows back
// through the memory region, not over DMA.
//
// The first junkLen samples after arming predate the trigger because of
// the write pipeline depth; reads default to skipping them.
//
// Registers: wstart, wnburst.
type RingBuffer struct {
	name     string
	block    ifc.RegisterBlock
	mem      ifc.MemoryRegion
	sw       *Switch
	ports    map[string]int
	burstLen int
	junkLen  int
}

// NewRingBuffer wires the ring to its registers and backing memory.
// burstLen is the number of samples per write burst, dataWidth the input
// stream width in bits; ports maps source names to switch ports and may
// be nil when the input is hardwired.
func NewRingBuffer(name string, block ifc.RegisterBlock, mem ifc.MemoryRegion,
	sw *Switch, ports map[string]int, burstLen, dataWidth int) *RingBuffer {
	return &RingBuffer{
		name:     name,
		block:    block,
		mem:      mem,
		sw:       sw,
		ports:    ports,
		burstLen: burstLen,
		junkLen:  50*dataWidth/32 + 1,
	}
}

func (r *RingBuffer) Name() string {
	return r.name
}

// Capacity returns how many bursts fit the backing memory without
// wrapping.
func (r *RingBuffer) Capacity() int {
	return r.mem.Size() / r.burstLen
}

// JunkLen returns the number of pipeline samples at the head of a fresh
// capture.
func (r *RingBuffer) JunkLen() int {
	return r.junkLen
}

// JunkBursts returns how many bursts the pipeline junk spans, the minimum
// extra bursts to arm when the whole requested window must be clean.
func (r *RingBuffer) JunkBursts() int {
	return (r.junkLen + r.burstLen - 1) / r.burstLen
}

// Route points the ring's input switch at the named source. Sources on a
// hardwired ring must be declared on port 0.
func (r *RingBuffer) Route(source string) error {
	port, ok := r.ports[source]
	if !ok {
		return fabric.ErrUnknownName{Kind: "ring source", Name: source}
	}
	if r.sw == nil {
		if port != 0 {
			return ErrHardwiredSource{Buffer: r.name, Port: port}
		}
		return nil
	}
	return r.sw.Select(port)
}

// Arm programs the burst count and restarts the capture. A count beyond
// the capacity wraps and overwrites the oldest bursts, which is refused
// unless force is set.
func (r *RingBuffer) Arm(nburst int, force bool) error {
	if nburst <= 0 {
		return ErrWindowBounds{Buffer: r.name, Start: 0, End: nburst * r.burstLen, Size: r.mem.Size()}
	}
	if max := r.Capacity(); nburst > max && !force {
		return ErrCapacity{Buffer: r.name, Requested: nburst, Max: max}
	}
	log.Debug("Arming ring %s for %d bursts", r.name, nburst)
	if err := r.block.SetReg("wstart", 0); err != nil {
		return err
	}
	if err := r.block.SetReg("wnburst", uint32(nburst)); err != nil {
		return err
	}
	return r.block.SetReg("wstart", 1)
}

func (r *RingBuffer) Enable() error {
	return r.block.SetReg("wstart", 1)
}

func (r *RingBuffer) Disable() error {
	return r.block.SetReg("wstart", 0)
}

// ReadWindow copies the samples in [start, end) out of the ring memory.
// The region only accepts 2-word-aligned accesses, so an odd window is
// widened to the enclosing even one and trimmed after the copy.
func (r *RingBuffer) ReadWindow(start, end int) ([]IQ16, error) {
	size := r.mem.Size()
	if start < 0 || end <= start || end > size {
		return nil, ErrWindowBounds{Buffer: r.name, Start: start, End: end, Size: size}
	}
	lo := start - start%2
	hi := end + end%2
	if hi > size {
		hi = size
	}
	words := make([]uint32, hi-lo)
	if err := r.mem.ReadWords(words, lo); err != nil {
		return nil, err
	}
	samples := wordsToIQ16(words)
	return samples[start-lo : start-lo+(end-start)], nil
}

// Read returns the samples of an nburst-burst capture. A negative start
// skips the pipeline junk at the head of the capture; the window still
// ends at the last armed burst, so the junk shortens the result rather
// than shifting it past what was written. An explicit start reads a full
// nburst bursts from there.
func (r *RingBuffer) Read(nburst, start int) ([]IQ16, error) {
	end := start + nburst*r.burstLen
	if start < 0 {
		start = r.junkLen
		end = nburst * r.burstLen
	}
	return r.ReadWindow(start, end)
}

// Clear zeroes the backing memory, so stale bursts from an earlier
// session cannot be mistaken for captured data.
func (r *RingBuffer) Clear() error {
	log.Info("Clearing ring %s", r.name)
	size := r.mem.Size()
	zeros := make([]uint32, clearChunk)
	for offset := 0; offset < size; offset += clearChunk {
		n := clearChunk
		if offset+n > size {
			n = size - offset
		}
		if err := r.mem.WriteWords(zeros[:n], offset); err != nil {
			return err
		}
	}
	return nil
}
