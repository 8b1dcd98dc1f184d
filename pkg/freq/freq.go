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

// Package freq holds the fixed-point tuning word codec and the Nyquist
// folding primitives shared by all down-conversion stages.
package freq

import (
	"math"
)

// SamplingContext describes the sampling parameters of one down-conversion
// stage. It is derived once from the stage's position in the signal path and
// never changes afterwards.
type SamplingContext struct {
	// SampleRate is the ADC sampling frequency feeding the stage, in MHz.
	SampleRate float64
	// Decimation is the RF-ADC decimation factor ahead of the stage.
	Decimation int
	// WordBits is the width of the stage's DDS tuning word.
	WordBits int
	// Channels is the number of mixing channels. 1 for a plain DDS stage.
	Channels int
	// CenterChannel is the index of the mixing channel centered at zero
	// frequency. Channels/2 for filter-bank stages, 0 otherwise.
	CenterChannel int
	// DDSBandwidth is the frequency span of the tuning word in MHz, after
	// decimation and, for filter banks, after the bank's own decimation.
	DDSBandwidth float64
}

// NewSamplingContext derives the stage context from its generics. For
// filter-bank stages (nch > 1) the DDS range shrinks by nch/2 because the
// bank is a 50% overlap structure.
func NewSamplingContext(sampleRate float64, decimation, wordBits, nch int) SamplingContext {
	ctx := SamplingContext{
		SampleRate:   sampleRate,
		Decimation:   decimation,
		WordBits:     wordBits,
		Channels:     nch,
		DDSBandwidth: sampleRate / float64(decimation),
	}
	if nch > 1 {
		ctx.DDSBandwidth /= float64(nch) / 2
		ctx.CenterChannel = nch / 2
	}
	return ctx
}

// Step returns the frequency quantization step of the stage's tuning word.
func (ctx SamplingContext) Step() float64 {
	return ctx.DDSBandwidth / math.Exp2(float64(ctx.WordBits))
}

// WordFromFreq converts a frequency in MHz to a tuning word of the given bit
// width, taken modulo 2^bits. Negative folded frequencies wrap to the upper
// half of the word range (two's complement).
func WordFromFreq(f, bandwidth float64, bits int) int64 {
	scale := math.Exp2(float64(bits))
	word := int64(math.Round(f / bandwidth * scale))
	m := int64(scale)
	return ((word % m) + m) % m
}

// FreqFromWord is the inverse of WordFromFreq. The round trip is exact only
// up to the quantization step bandwidth/2^bits.
func FreqFromWord(word int64, bandwidth float64, bits int) float64 {
	return float64(word) * bandwidth / math.Exp2(float64(bits))
}

// NyquistZone returns the 1-based Nyquist zone the frequency falls in for
// the given sampling frequency.
func NyquistZone(f, fs float64) int {
	return int(math.Floor(f/(fs/2))) + 1
}

// FoldNyquist folds a frequency into the principal Nyquist zone. Even zones
// are spectral mirror images, so the sign flips there. The result still has
// to be reduced into the stage's DDS bandwidth by the caller.
func FoldNyquist(f, fs float64) float64 {
	if NyquistZone(f, fs)%2 == 0 {
		return -f
	}
	return f
}
