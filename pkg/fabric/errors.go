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

package fabric

import (
	"fmt"
	"time"
)

// ErrUnknownReg returned when a register name is not part of a block's map
type ErrUnknownReg struct {
	Block string
	Reg   string
}

func (e ErrUnknownReg) Error() string {
	return fmt.Sprintf("Unknown register %s in block %s", e.Reg, e.Block)
}

// ErrUnknownName returned when a block, region or DMA channel name is not
// part of the session topology
type ErrUnknownName struct {
	Kind string
	Name string
}

func (e ErrUnknownName) Error() string {
	return fmt.Sprintf("Unknown %s: %s", e.Kind, e.Name)
}

// ErrWaitTimeout returned when the DMA engine does not signal completion
// within the allotted time. Distinguishable from a byte-count mismatch so
// that a stuck device is not misreported as a bus fault.
type ErrWaitTimeout struct {
	Channel string
	Timeout time.Duration
}

func (e ErrWaitTimeout) Error() string {
	return fmt.Sprintf("DMA channel %s did not complete within %s", e.Channel, e.Timeout)
}

// ErrRegionBounds returned when a memory access falls outside a region
type ErrRegionBounds struct {
	Region string
	Offset int
	Length int
	Size   int
}

func (e ErrRegionBounds) Error() string {
	return fmt.Sprintf("Access [%d, %d) outside region %s of size %d",
		e.Offset, e.Offset+e.Length, e.Region, e.Size)
}
