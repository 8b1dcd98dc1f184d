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

package layers

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// RegLayerNum identifies the layer
	RegLayerNum = 2102
)

// RegOp is one register read or write addressed by block id and register
// index within the block. Two words on the wire:
// word0: bit 31 read flag, bits 23:16 block id, bits 15:0 register index
// word1: register value (ignored for reads in requests)
type RegOp struct {
	Read  bool
	Block uint8
	Reg   uint16
	Value uint32
}

type RegLayer struct {
	layers.BaseLayer
	Ops []*RegOp
}

var RegLayerType = gopacket.RegisterLayerType(RegLayerNum,
	gopacket.LayerTypeMetadata{Name: "RegLayerType", Decoder: gopacket.DecodeFunc(DecodeRegLayer)})

// LayerType returns the type of the Reg layer in the layer catalog
func (reg *RegLayer) LayerType() gopacket.LayerType {
	return RegLayerType
}

// Serialize serializes the register ops to a buffer. Exposed separately
// from SerializeTo because the CLink CRC is computed over the serialized
// payload before the frame is assembled.
func (reg *RegLayer) Serialize(buf []byte) {
	for i, op := range reg.Ops {
		word := uint32(op.Block)<<16 | uint32(op.Reg)
		if op.Read {
			word |= 0x80000000
		}
		binary.LittleEndian.PutUint32(buf[i*8:i*8+4], word)
		binary.LittleEndian.PutUint32(buf[i*8+4:i*8+8], op.Value)
	}
}

// SerializeTo serializes the register ops into bytes and writes the bytes to the SerializeBuffer
func (reg *RegLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(len(reg.Ops) * 8)
	if err != nil {
		return err
	}
	reg.Serialize(bytes)
	return nil
}

func (reg *RegLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	reg.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload:  []byte{},
	}
	for offset := 0; offset+8 <= len(data); offset += 8 {
		word := binary.LittleEndian.Uint32(data[offset : offset+4])
		op := &RegOp{
			Read:  word&0x80000000 != 0,
			Block: uint8((word >> 16) & 0xff),
			Reg:   uint16(word & 0xffff),
			Value: binary.LittleEndian.Uint32(data[offset+4 : offset+8]),
		}
		reg.Ops = append(reg.Ops, op)
	}
	return nil
}

func DecodeRegLayer(data []byte, p gopacket.PacketBuilder) error {
	req := &RegLayer{}
	err := req.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(req)
	return nil
}

// RegOpsToBytes frames register ops into a CLink request frame
func RegOpsToBytes(ops []*RegOp, seq uint16) ([]byte, error) {
	cl := &CLinkLayer{}
	cl.Type = CLinkTypeRegRequest
	cl.Sync = CLinkSync
	// 3 words CLink header + 1 word CRC + 2 words per op
	cl.Len = uint16(4 + 2*len(ops))
	cl.Seq = seq
	cl.Src = CLinkHostAddr
	cl.Dst = CLinkDeviceAddr

	clHeaderBytes := make([]byte, 12)
	cl.SerializeHeader(clHeaderBytes)

	reg := &RegLayer{Ops: ops}
	regBytes := make([]byte, 8*len(ops))
	reg.Serialize(regBytes)

	cl.Crc = crc32.ChecksumIEEE(append(clHeaderBytes, regBytes...))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	err := gopacket.SerializeLayers(buf, opts, cl, reg)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
