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

package session

import (
	"gonum.org/v1/gonum/floats"

	"jinr.ru/greenlab/go-ddc/pkg/log"
)

// Acquisition is the reduced result of a repeated accumulation capture:
// per-slot means over all repetitions, in accumulator units.
type Acquisition struct {
	Buffer string    `json:"buffer"`
	Reps   int       `json:"reps"`
	MeanI  []float64 `json:"mean_i"`
	MeanQ  []float64 `json:"mean_q"`
}

// Acquire stages and arms the window on both capture sides, then drains
// the accumulation side reps times and averages the sums slot by slot.
// Each repetition corresponds to one external trigger.
func (s *Session) Acquire(buffer string, addr, length, reps int) (*Acquisition, error) {
	b, err := s.Buffer(buffer)
	if err != nil {
		return nil, err
	}
	log.Info("Acquiring: buffer: %s length: %d reps: %d", buffer, length, reps)
	if err := b.Configure(addr, length); err != nil {
		return nil, err
	}
	if err := b.Enable(); err != nil {
		return nil, err
	}

	sumI := make([]float64, length)
	sumQ := make([]float64, length)
	repI := make([]float64, length)
	repQ := make([]float64, length)
	for rep := 0; rep < reps; rep++ {
		samples, err := b.TransferAvg(addr, length)
		if err != nil {
			return nil, err
		}
		for i, sample := range samples {
			repI[i] = float64(sample.I)
			repQ[i] = float64(sample.Q)
		}
		floats.Add(sumI, repI)
		floats.Add(sumQ, repQ)
	}
	if reps > 0 {
		floats.Scale(1/float64(reps), sumI)
		floats.Scale(1/float64(reps), sumQ)
	}
	return &Acquisition{
		Buffer: buffer,
		Reps:   reps,
		MeanI:  sumI,
		MeanQ:  sumQ,
	}, nil
}
