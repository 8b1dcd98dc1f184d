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
	"fmt"
)

// ErrWindowTooLong returned when a capture window does not fit the
// on-device buffer
type ErrWindowTooLong struct {
	Buffer string
	Length int
	Max    int
}

func (e ErrWindowTooLong) Error() string {
	return fmt.Sprintf("Invalid window length for %s: %d. It must be less than %d", e.Buffer, e.Length, e.Max)
}

// ErrTransferIntegrity returned when the DMA engine signals completion but
// moved a different number of bytes than requested. The transfer's data is
// discarded, no partial window is handed to the caller.
type ErrTransferIntegrity struct {
	Buffer      string
	Requested   int
	Transferred int
}

func (e ErrTransferIntegrity) Error() string {
	return fmt.Sprintf("Transfer from %s incomplete: requested %d bytes, got %d", e.Buffer, e.Requested, e.Transferred)
}

// ErrCapacity returned when an arm request exceeds the ring's burst
// capacity and overwrite was not forced
type ErrCapacity struct {
	Buffer    string
	Requested int
	Max       int
}

func (e ErrCapacity) Error() string {
	return fmt.Sprintf("Requested %d bursts on %s, but it only fits %d. Pass force to overwrite", e.Requested, e.Buffer, e.Max)
}

// ErrHardwiredSource returned when a source switch is requested on a
// buffer whose input is hardwired
type ErrHardwiredSource struct {
	Buffer string
	Port   int
}

func (e ErrHardwiredSource) Error() string {
	return fmt.Sprintf("Buffer %s has no input switch, only port 0 is valid, got %d", e.Buffer, e.Port)
}

// ErrPortOutOfRange returned when a switch port index exceeds the switch
// width
type ErrPortOutOfRange struct {
	Switch string
	Port   int
	Limit  int
}

func (e ErrPortOutOfRange) Error() string {
	return fmt.Sprintf("Invalid port on switch %s: %d. It must be within [0, %d]", e.Switch, e.Port, e.Limit)
}

// ErrWindowBounds returned when a read window is empty or falls outside
// the ring memory
type ErrWindowBounds struct {
	Buffer string
	Start  int
	End    int
	Size   int
}

func (e ErrWindowBounds) Error() string {
	return fmt.Sprintf("Invalid window [%d, %d) on %s of size %d", e.Start, e.End, e.Buffer, e.Size)
}
