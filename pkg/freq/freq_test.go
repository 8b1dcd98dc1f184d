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

package freq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestWordFromFreq(t *testing.T) {
	// half the band maps to half the word range
	assert.Equal(t, int64(1)<<31, WordFromFreq(50, 100, 32))
	// negative frequencies wrap into the upper half (two's complement)
	assert.Equal(t, int64(3)<<30, WordFromFreq(-25, 100, 32))
	// full band wraps to zero
	assert.Equal(t, int64(0), WordFromFreq(100, 100, 32))
}

func TestFreqFromWord(t *testing.T) {
	assert.InDelta(t, 50.0, FreqFromWord(int64(1)<<31, 100, 32), 1e-9)
	assert.InDelta(t, 0.0, FreqFromWord(0, 100, 32), 1e-9)
}

// circularDist measures frequency distance modulo the DDS bandwidth, since
// the codec is only defined up to wraparound.
func circularDist(a, b, bw float64) float64 {
	d := math.Abs(math.Mod(a-b, bw))
	if d > bw/2 {
		d = bw - d
	}
	return d
}

func TestRoundTripQuantization(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bw := rapid.Float64Range(1, 1e4).Draw(t, "bw")
		bits := rapid.IntRange(16, 32).Draw(t, "bits")
		f := rapid.Float64Range(0, bw).Draw(t, "f")

		step := bw / math.Exp2(float64(bits))
		word := WordFromFreq(f, bw, bits)
		rt := FreqFromWord(word, bw, bits)
		assert.LessOrEqual(t, circularDist(rt, f, bw), step/2+1e-9*bw)

		// a second round trip is stable
		word2 := WordFromFreq(rt, bw, bits)
		assert.Equal(t, word, word2)
	})
}

func TestNyquistZone(t *testing.T) {
	assert.Equal(t, 1, NyquistZone(30, 200))
	assert.Equal(t, 2, NyquistZone(120, 200))
	assert.Equal(t, 3, NyquistZone(220, 200))
}

func TestFoldNyquist(t *testing.T) {
	// zone 2 is mirrored, so the sign flips
	assert.Equal(t, -120.0, FoldNyquist(120, 200))
	// zone 3 is a direct image
	assert.Equal(t, 220.0, FoldNyquist(220, 200))
	// first zone passes through
	assert.Equal(t, 30.0, FoldNyquist(30, 200))
}

func TestNewSamplingContext(t *testing.T) {
	// plain DDS stage: DDS range is the decimated bandwidth
	dds := NewSamplingContext(4096, 8, 32, 1)
	assert.InDelta(t, 512.0, dds.DDSBandwidth, 1e-9)
	assert.Equal(t, 0, dds.CenterChannel)

	// 8-channel filter bank halves the range again by N/2
	pfb := NewSamplingContext(2048, 4, 32, 8)
	assert.InDelta(t, 128.0, pfb.DDSBandwidth, 1e-9)
	assert.Equal(t, 4, pfb.CenterChannel)
}
