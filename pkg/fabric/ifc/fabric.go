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

// Package ifc defines the device-fabric contracts consumed by the readout
// and capture drivers. The concrete fabric (register plumbing, memory
// mapping, DMA engine) lives behind these interfaces and is wired up once
// at session start from the resolved topology.
package ifc

import (
	"time"
)

// RegisterBlock is a named group of integer-valued device registers.
type RegisterBlock interface {
	Name() string
	GetReg(reg string) (uint32, error)
	SetReg(reg string, value uint32) error
}

// MemoryRegion is a contiguous view of device-reachable memory, addressed
// in 32-bit words (one word per I/Q sample pair). Accesses must start and
// end on 2-word boundaries; some memory-mapped backends fault on odd
// offsets, so callers are expected to pad and trim around odd windows.
type MemoryRegion interface {
	Name() string
	// Size returns the region capacity in words.
	Size() int
	ReadWords(dst []uint32, offset int) error
	WriteWords(src []uint32, offset int) error
}

// DMAChannel moves data from a capture unit into host memory. Transfer
// starts the engine, Wait blocks until completion or timeout and reports
// the number of bytes actually moved; the caller is responsible for
// comparing that against the request.
type DMAChannel interface {
	Name() string
	Transfer(buf []byte, nbytes int) error
	Wait(timeout time.Duration) (int, error)
}

// Fabric hands out the named blocks, regions and DMA channels of one
// device session.
type Fabric interface {
	Block(name string) (RegisterBlock, error)
	Region(name string) (MemoryRegion, error)
	DMA(name string) (DMAChannel, error)
	Close() error
}
