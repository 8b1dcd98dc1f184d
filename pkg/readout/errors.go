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
)

// ErrOutOfRange returned when an output or mixing channel index exceeds the
// stage's channel count. The index is rejected, never clamped.
type ErrOutOfRange struct {
	What  string
	Value int
	Limit int
}

func (e ErrOutOfRange) Error() string {
	return fmt.Sprintf("Invalid %s: %d. It must be within [0, %d]", e.What, e.Value, e.Limit)
}

// ErrFreqCollision returned when two logical outputs demand different tuning
// words on the same mixing channel. Carries both outputs and the frequency
// band the contested channel is optimal for, so the caller can pick a
// different frequency. No partial assignment is committed.
type ErrFreqCollision struct {
	NewOut  int
	NewFreq float64
	OldOut  int
	OldFreq float64
	Lo      float64
	Hi      float64
}

func (e ErrFreqCollision) Error() string {
	return fmt.Sprintf("frequency collision: tried to set output %d to %f MHz and output %d to %f MHz, "+
		"but both map to the mixing channel that is optimal for [%f, %f] (all freqs expressed in first Nyquist zone)",
		e.NewOut, e.NewFreq, e.OldOut, e.OldFreq, e.Lo, e.Hi)
}

// ErrModeConflict returned when the output mode of a stage with a single
// shared output mux is changed after it was already latched
type ErrModeConflict struct {
	Requested string
	Current   string
}

func (e ErrModeConflict) Error() string {
	return fmt.Sprintf("trying to set output mode to %s, but mode was previously set to %s", e.Requested, e.Current)
}

// ErrUnknownMode returned for an output mode outside product/dds/input
type ErrUnknownMode struct {
	Mode string
}

func (e ErrUnknownMode) Error() string {
	return fmt.Sprintf("Unknown output mode: %s. Must be one of: product, dds, input", e.Mode)
}
