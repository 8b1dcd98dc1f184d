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

// Package link is the UDP control-link fabric: register blocks, memory
// regions and DMA drains declared in the config and reached through CLink
// frames. Register reads are served from the session's register shadow
// first; only registers the shadow has never seen go to the device.
package link

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-ddc/pkg/config"
	"jinr.ru/greenlab/go-ddc/pkg/fabric"
	"jinr.ru/greenlab/go-ddc/pkg/fabric/ifc"
	"jinr.ru/greenlab/go-ddc/pkg/layers"
	"jinr.ru/greenlab/go-ddc/pkg/log"
	"jinr.ru/greenlab/go-ddc/pkg/state"
)

const (
	// ExchangeTimeout bounds one request/response round trip
	ExchangeTimeout = 2 * time.Second
	// MaxWordsPerFrame is how many data words fit one CLink memory frame
	MaxWordsPerFrame = layers.CLinkMaxPayloadSize/4 - 2
)

type Link struct {
	context.Context
	*config.Config
	conn    *net.UDPConn
	store   *state.Store
	seq     uint16
	mu      sync.Mutex
	blocks  map[string]*Block
	regions map[string]*Region
	dmas    map[string]*DMA
}

var _ ifc.Fabric = &Link{}

// Connect dials the control endpoint and builds the fabric objects from
// the config declarations. The store mirrors every register write and
// serves shadowed reads.
func Connect(ctx context.Context, cfg *config.Config, store *state.Store) (*Link, error) {
	uaddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.Control.Address, cfg.Control.Port))
	if err != nil {
		return nil, err
	}
	log.Info("Connecting control link: %s", uaddr)
	conn, err := net.DialUDP("udp", nil, uaddr)
	if err != nil {
		return nil, err
	}

	l := &Link{
		Context: ctx,
		Config:  cfg,
		conn:    conn,
		store:   store,
		blocks:  make(map[string]*Block),
		regions: make(map[string]*Region),
		dmas:    make(map[string]*DMA),
	}
	for _, bc := range cfg.Blocks {
		regs := make(map[string]uint16)
		for i, reg := range bc.Regs {
			regs[reg] = uint16(i)
		}
		l.blocks[bc.Name] = &Block{link: l, name: bc.Name, id: bc.Id, regs: regs}
	}
	for _, rc := range cfg.Regions {
		l.regions[rc.Name] = &Region{link: l, name: rc.Name, id: rc.Id, size: rc.Size}
	}
	for _, dc := range cfg.DMAs {
		l.dmas[dc.Name] = &DMA{link: l, name: dc.Name, id: dc.Id}
	}
	return l, nil
}

func (l *Link) Block(name string) (ifc.RegisterBlock, error) {
	block, ok := l.blocks[name]
	if !ok {
		return nil, fabric.ErrUnknownName{Kind: "block", Name: name}
	}
	return block, nil
}

func (l *Link) Region(name string) (ifc.MemoryRegion, error) {
	region, ok := l.regions[name]
	if !ok {
		return nil, fabric.ErrUnknownName{Kind: "region", Name: name}
	}
	return region, nil
}

func (l *Link) DMA(name string) (ifc.DMAChannel, error) {
	dma, ok := l.dmas[name]
	if !ok {
		return nil, fabric.ErrUnknownName{Kind: "DMA channel", Name: name}
	}
	return dma, nil
}

func (l *Link) Close() error {
	return l.conn.Close()
}

func (l *Link) nextSeq() uint16 {
	seq := l.seq
	l.seq++
	return seq
}

// exchange sends one request frame and waits for a response of the wanted
// type. Frames of other types are late leftovers of earlier exchanges and
// are dropped. The caller must hold l.mu.
func (l *Link) exchange(frame []byte, want layers.CLinkType) (gopacket.Packet, error) {
	if _, err := l.conn.Write(frame); err != nil {
		return nil, err
	}
	buffer := make([]byte, 65536)
	deadline := time.Now().Add(ExchangeTimeout)
	for {
		if err := l.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		length, err := l.conn.Read(buffer)
		if err != nil {
			return nil, err
		}
		packet := gopacket.NewPacket(buffer[:length], layers.CLinkLayerType, gopacket.Default)
		cl := packet.Layer(layers.CLinkLayerType)
		if cl == nil {
			log.Debug("Dropping non-CLink packet of %d bytes", length)
			continue
		}
		if cl.(*layers.CLinkLayer).Type != want {
			log.Debug("Dropping CLink packet of type %s", cl.(*layers.CLinkLayer).Type)
			continue
		}
		return packet, nil
	}
}

// regExchange runs one batch of register ops against the device and
// returns the ops echoed in the response, with values filled for reads.
func (l *Link) regExchange(ops []*layers.RegOp) ([]*layers.RegOp, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	frame, err := layers.RegOpsToBytes(ops, l.nextSeq())
	if err != nil {
		return nil, err
	}
	packet, err := l.exchange(frame, layers.CLinkTypeRegResponse)
	if err != nil {
		return nil, err
	}
	reg := packet.Layer(layers.RegLayerType)
	if reg == nil {
		return nil, fmt.Errorf("Reg response without reg ops")
	}
	return reg.(*layers.RegLayer).Ops, nil
}

// memExchange runs one memory op against the device.
func (l *Link) memExchange(op *layers.MemOp) (*layers.MemOp, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	frame, err := layers.MemOpToBytes(op, l.nextSeq())
	if err != nil {
		return nil, err
	}
	packet, err := l.exchange(frame, layers.CLinkTypeMemResponse)
	if err != nil {
		return nil, err
	}
	mem := packet.Layer(layers.MemLayerType)
	if mem == nil {
		return nil, fmt.Errorf("Mem response without mem op")
	}
	return mem.(*layers.MemLayer).MemOp, nil
}

// Block is one register block reached through the link
type Block struct {
	link *Link
	name string
	id   uint8
	regs map[string]uint16
}

var _ ifc.RegisterBlock = &Block{}

func (b *Block) Name() string {
	return b.name
}

func (b *Block) GetReg(reg string) (uint32, error) {
	index, ok := b.regs[reg]
	if !ok {
		return 0, fabric.ErrUnknownReg{Block: b.name, Reg: reg}
	}
	if b.link.store != nil {
		if value, err := b.link.store.GetReg(b.name, reg); err == nil {
			return value, nil
		}
	}
	ops, err := b.link.regExchange([]*layers.RegOp{
		{Read: true, Block: b.id, Reg: index},
	})
	if err != nil {
		return 0, err
	}
	if len(ops) != 1 {
		return 0, fmt.Errorf("Expected 1 reg op in response, got %d", len(ops))
	}
	value := ops[0].Value
	if b.link.store != nil {
		if err := b.link.store.SetReg(b.name, reg, value); err != nil {
			return 0, err
		}
	}
	return value, nil
}

func (b *Block) SetReg(reg string, value uint32) error {
	index, ok := b.regs[reg]
	if !ok {
		return fabric.ErrUnknownReg{Block: b.name, Reg: reg}
	}
	log.Debug("Writing register: block: %s reg: %s value: %x", b.name, reg, value)
	if _, err := b.link.regExchange([]*layers.RegOp{
		{Block: b.id, Reg: index, Value: value},
	}); err != nil {
		return err
	}
	if b.link.store != nil {
		return b.link.store.SetReg(b.name, reg, value)
	}
	return nil
}

// Region is one memory region reached through the link. Transfers are
// split into frame-sized memory ops.
type Region struct {
	link *Link
	name string
	id   uint8
	size int
}

var _ ifc.MemoryRegion = &Region{}

func (r *Region) Name() string {
	return r.name
}

func (r *Region) Size() int {
	return r.size
}

func (r *Region) ReadWords(dst []uint32, offset int) error {
	if offset < 0 || offset+len(dst) > r.size {
		return fabric.ErrRegionBounds{Region: r.name, Offset: offset, Length: len(dst), Size: r.size}
	}
	for done := 0; done < len(dst); {
		n := len(dst) - done
		if n > MaxWordsPerFrame {
			n = MaxWordsPerFrame
		}
		op, err := r.link.memExchange(&layers.MemOp{
			Read:   true,
			Region: r.id,
			Addr:   uint32(offset + done),
			Size:   uint32(n),
		})
		if err != nil {
			return err
		}
		if len(op.Data) != n {
			return fmt.Errorf("Expected %d words from region %s, got %d", n, r.name, len(op.Data))
		}
		copy(dst[done:], op.Data)
		done += n
	}
	return nil
}

func (r *Region) WriteWords(src []uint32, offset int) error {
	if offset < 0 || offset+len(src) > r.size {
		return fabric.ErrRegionBounds{Region: r.name, Offset: offset, Length: len(src), Size: r.size}
	}
	for done := 0; done < len(src); {
		n := len(src) - done
		if n > MaxWordsPerFrame {
			n = MaxWordsPerFrame
		}
		if _, err := r.link.memExchange(&layers.MemOp{
			Region: r.id,
			Addr:   uint32(offset + done),
			Size:   uint32(n),
			Data:   src[done : done+n],
		}); err != nil {
			return err
		}
		done += n
	}
	return nil
}

// DMA is one drain channel: the device streams memory-response frames
// tagged with the channel id after the drain strobe, Wait collects them
// into the transfer buffer.
type DMA struct {
	link   *Link
	name   string
	id     uint8
	buf    []byte
	nbytes int
}

var _ ifc.DMAChannel = &DMA{}

func (d *DMA) Name() string {
	return d.name
}

// Transfer stages the destination buffer. The device side starts pushing
// once the capture unit's drain strobe is raised.
func (d *DMA) Transfer(buf []byte, nbytes int) error {
	if nbytes > len(buf) {
		return fmt.Errorf("Transfer of %d bytes into a buffer of %d", nbytes, len(buf))
	}
	d.buf = buf
	d.nbytes = nbytes
	return nil
}

// Wait collects the channel's frames until the staged byte count is
// reached or the timeout expires. It reports the bytes actually landed;
// the short count on timeout lets the caller tell a stalled stream from
// a truncated one.
func (d *DMA) Wait(timeout time.Duration) (int, error) {
	l := d.link
	l.mu.Lock()
	defer l.mu.Unlock()
	buffer := make([]byte, 65536)
	deadline := time.Now().Add(timeout)
	collected := 0
	for collected < d.nbytes {
		if err := l.conn.SetReadDeadline(deadline); err != nil {
			return collected, err
		}
		length, err := l.conn.Read(buffer)
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				return collected, fabric.ErrWaitTimeout{Channel: d.name, Timeout: timeout}
			}
			return collected, err
		}
		packet := gopacket.NewPacket(buffer[:length], layers.CLinkLayerType, gopacket.Default)
		mem := packet.Layer(layers.MemLayerType)
		if mem == nil {
			log.Debug("Dropping non-mem packet of %d bytes during drain", length)
			continue
		}
		op := mem.(*layers.MemLayer).MemOp
		if op.Region != d.id {
			log.Debug("Dropping mem frame for channel %d during drain of %s", op.Region, d.name)
			continue
		}
		for _, word := range op.Data {
			if collected+4 > d.nbytes {
				break
			}
			d.buf[collected] = byte(word)
			d.buf[collected+1] = byte(word >> 8)
			d.buf[collected+2] = byte(word >> 16)
			d.buf[collected+3] = byte(word >> 24)
			collected += 4
		}
	}
	return collected, nil
}
