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
	"time"

	"jinr.ru/greenlab/go-ddc/pkg/fabric/ifc"
	"jinr.ru/greenlab/go-ddc/pkg/log"
)

// DefaultTimeout bounds a single DMA drain. A trigger that never comes
// surfaces as a timeout instead of a hung control process.
const DefaultTimeout = 5 * time.Second

// AvgBuffer is the twin capture unit behind one readout output: an
// accumulation side that integrates a window into one 64-bit I/Q sum per
// trigger, and a sample side that records the raw decimated window. Both
// sides are configured and armed independently and drained over the same
// DMA channel.
//
// Registers: avg_start, avg_addr, avg_len, avg_dr_start, avg_dr_addr,
// avg_dr_len, and the raw_* analogues.
type AvgBuffer struct {
	name    string
	block   ifc.RegisterBlock
	dma     ifc.DMAChannel
	sw      *Switch
	port    int
	avgMax  int
	rawMax  int
	timeout time.Duration
}

// NewAvgBuffer wires a capture unit to its registers and DMA channel.
// sw may be nil when the unit's input is hardwired; then port must be 0.
func NewAvgBuffer(name string, block ifc.RegisterBlock, dma ifc.DMAChannel,
	sw *Switch, port int, avgMax, rawMax int) *AvgBuffer {
	return &AvgBuffer{
		name:    name,
		block:   block,
		dma:     dma,
		sw:      sw,
		port:    port,
		avgMax:  avgMax,
		rawMax:  rawMax,
		timeout: DefaultTimeout,
	}
}

func (b *AvgBuffer) Name() string {
	return b.name
}

func (b *AvgBuffer) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// route claims the shared DMA stream for this unit before a drain.
func (b *AvgBuffer) route() error {
	if b.sw == nil {
		return nil
	}
	return b.sw.Select(b.port)
}

// configure disables a capture side and stages its window. Disabling
// first guarantees the new window never applies to a capture already in
// flight.
func (b *AvgBuffer) configure(prefix string, addr, length, max int) error {
	if length >= max {
		return ErrWindowTooLong{Buffer: b.name, Length: length, Max: max}
	}
	if length < 0 || addr < 0 || addr+length > max {
		return ErrWindowBounds{Buffer: b.name, Start: addr, End: addr + length, Size: max}
	}
	if err := b.block.SetReg(prefix+"_start", 0); err != nil {
		return err
	}
	if err := b.block.SetReg(prefix+"_addr", uint32(addr)); err != nil {
		return err
	}
	return b.block.SetReg(prefix+"_len", uint32(length))
}

// drain runs one DMA readback of translen samples of wordBytes each and
// verifies the byte count. The returned buffer is only valid when err is
// nil.
func (b *AvgBuffer) drain(prefix string, addr, translen, wordBytes int) ([]byte, error) {
	if err := b.route(); err != nil {
		return nil, err
	}
	if err := b.block.SetReg(prefix+"_dr_addr", uint32(addr)); err != nil {
		return nil, err
	}
	if err := b.block.SetReg(prefix+"_dr_len", uint32(translen)); err != nil {
		return nil, err
	}
	if err := b.block.SetReg(prefix+"_dr_start", 1); err != nil {
		return nil, err
	}
	nbytes := translen * wordBytes
	buf := make([]byte, nbytes)
	if err := b.dma.Transfer(buf, nbytes); err != nil {
		b.block.SetReg(prefix+"_dr_start", 0)
		return nil, err
	}
	got, waitErr := b.dma.Wait(b.timeout)
	// the drain strobe comes down even when the wait failed, otherwise
	// the next readback starts against a half-open engine
	if err := b.block.SetReg(prefix+"_dr_start", 0); err != nil {
		return nil, err
	}
	if waitErr != nil {
		return nil, waitErr
	}
	if got != nbytes {
		return nil, ErrTransferIntegrity{Buffer: b.name, Requested: nbytes, Transferred: got}
	}
	return buf, nil
}

// ConfigureAvg stages the accumulation window: addr is the first sample
// slot, length the number of samples integrated per trigger.
func (b *AvgBuffer) ConfigureAvg(addr, length int) error {
	log.Debug("Configuring avg window on %s: addr: %d length: %d", b.name, addr, length)
	return b.configure("avg", addr, length, b.avgMax)
}

// EnableAvg arms the accumulation side; every subsequent trigger
// integrates one window.
func (b *AvgBuffer) EnableAvg() error {
	return b.block.SetReg("avg_start", 1)
}

func (b *AvgBuffer) DisableAvg() error {
	return b.block.SetReg("avg_start", 0)
}

// CaptureAvg stages and arms the accumulation side in one call.
func (b *AvgBuffer) CaptureAvg(addr, length int) error {
	if err := b.ConfigureAvg(addr, length); err != nil {
		return err
	}
	return b.EnableAvg()
}

// TransferAvg drains length accumulated sums starting at addr. An odd
// length is padded by one sample on the wire, the device only bursts
// even counts; the pad never reaches the caller but must still fit the
// buffer.
func (b *AvgBuffer) TransferAvg(addr, length int) ([]IQ32, error) {
	if length >= b.avgMax {
		return nil, ErrWindowTooLong{Buffer: b.name, Length: length, Max: b.avgMax}
	}
	translen := length + length%2
	if length <= 0 || addr < 0 || addr+translen > b.avgMax {
		return nil, ErrWindowBounds{Buffer: b.name, Start: addr, End: addr + translen, Size: b.avgMax}
	}
	buf, err := b.drain("avg", addr, translen, 8)
	if err != nil {
		return nil, err
	}
	return decodeIQ32(buf, length), nil
}

// ConfigureRaw stages the decimated-sample window.
func (b *AvgBuffer) ConfigureRaw(addr, length int) error {
	log.Debug("Configuring raw window on %s: addr: %d length: %d", b.name, addr, length)
	return b.configure("raw", addr, length, b.rawMax)
}

func (b *AvgBuffer) EnableRaw() error {
	return b.block.SetReg("raw_start", 1)
}

func (b *AvgBuffer) DisableRaw() error {
	return b.block.SetReg("raw_start", 0)
}

// CaptureRaw stages and arms the sample side in one call.
func (b *AvgBuffer) CaptureRaw(addr, length int) error {
	if err := b.ConfigureRaw(addr, length); err != nil {
		return err
	}
	return b.EnableRaw()
}

// TransferRaw drains length decimated samples starting at addr, with the
// same even-count padding as TransferAvg.
func (b *AvgBuffer) TransferRaw(addr, length int) ([]IQ16, error) {
	if length >= b.rawMax {
		return nil, ErrWindowTooLong{Buffer: b.name, Length: length, Max: b.rawMax}
	}
	translen := length + length%2
	if length <= 0 || addr < 0 || addr+translen > b.rawMax {
		return nil, ErrWindowBounds{Buffer: b.name, Start: addr, End: addr + translen, Size: b.rawMax}
	}
	buf, err := b.drain("raw", addr, translen, 4)
	if err != nil {
		return nil, err
	}
	return decodeIQ16(buf, length), nil
}

// Configure stages one window on both capture sides.
func (b *AvgBuffer) Configure(addr, length int) error {
	if err := b.ConfigureAvg(addr, length); err != nil {
		return err
	}
	return b.ConfigureRaw(addr, length)
}

// Enable arms both capture sides on the shared trigger.
func (b *AvgBuffer) Enable() error {
	if err := b.EnableAvg(); err != nil {
		return err
	}
	return b.EnableRaw()
}

// Disable disarms both capture sides.
func (b *AvgBuffer) Disable() error {
	if err := b.DisableAvg(); err != nil {
		return err
	}
	return b.DisableRaw()
}

// SetSwitch rebinds the unit to another port of its input switch. Units
// without a switch only accept port 0.
func (b *AvgBuffer) SetSwitch(port int) error {
	if b.sw == nil {
		if port != 0 {
			return ErrHardwiredSource{Buffer: b.name, Port: port}
		}
		return nil
	}
	if port < 0 || port >= b.sw.Ports() {
		return ErrPortOutOfRange{Switch: b.sw.Name(), Port: port, Limit: b.sw.Ports() - 1}
	}
	b.port = port
	return nil
}

func (b *AvgBuffer) String() string {
	return fmt.Sprintf("%s avg: %d raw: %d", b.name, b.avgMax, b.rawMax)
}
