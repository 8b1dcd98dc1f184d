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

// Package capture implements the triggered capture units sharing the
// device fabric with the down-conversion stages: the windowed
// accumulate/sample buffers drained over DMA and the continuously armed
// ring buffer read back through a memory region.
package capture

import (
	"encoding/binary"
)

// IQ16 is one decimated complex sample as stored by the sample and ring
// buffers: 16-bit I and Q packed into a 32-bit word.
type IQ16 struct {
	I int16
	Q int16
}

// IQ32 is one accumulated complex sample as stored by the accumulation
// buffer: 32-bit I and Q packed into a 64-bit word.
type IQ32 struct {
	I int32
	Q int32
}

// decodeIQ16 unpacks n little-endian 32-bit I/Q words from buf into an
// owned slice.
func decodeIQ16(buf []byte, n int) []IQ16 {
	samples := make([]IQ16, n)
	for i := 0; i < n; i++ {
		word := binary.LittleEndian.Uint32(buf[i*4:])
		samples[i].I = int16(word)
		samples[i].Q = int16(word >> 16)
	}
	return samples
}

// decodeIQ32 unpacks n little-endian 64-bit I/Q words from buf into an
// owned slice.
func decodeIQ32(buf []byte, n int) []IQ32 {
	samples := make([]IQ32, n)
	for i := 0; i < n; i++ {
		word := binary.LittleEndian.Uint64(buf[i*8:])
		samples[i].I = int32(word)
		samples[i].Q = int32(word >> 32)
	}
	return samples
}

// wordsToIQ16 unpacks I/Q words already delivered as 32-bit values, e.g.
// from a memory region read.
func wordsToIQ16(words []uint32) []IQ16 {
	samples := make([]IQ16, len(words))
	for i, word := range words {
		samples[i].I = int16(word)
		samples[i].Q = int16(word >> 16)
	}
	return samples
}
