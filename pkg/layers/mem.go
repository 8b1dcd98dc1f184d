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
	// MemLayerNum identifies the layer
	MemLayerNum = 2103
)

// MemOp is one memory-region read or write, addressed in 32-bit words.
// word0: bit 31 read flag, bits 30:24 region id, bits 23:0 word offset
// word1: size in words
// then size data words for writes and responses
type MemOp struct {
	Read   bool
	Region uint8  // 7 bits
	Addr   uint32 // 24 bits, word offset within the region
	Size   uint32 // 16 bits, number of words
	Data   []uint32
}

type MemLayer struct {
	layers.BaseLayer
	*MemOp
}

var MemLayerType = gopacket.RegisterLayerType(MemLayerNum,
	gopacket.LayerTypeMetadata{Name: "MemLayerType", Decoder: gopacket.DecodeFunc(DecodeMemLayer)})

// LayerType returns the type of the Mem layer in the layer catalog
func (mem *MemLayer) LayerType() gopacket.LayerType {
	return MemLayerType
}

// Serialize serializes the MemOp to a buffer. Exposed separately from
// SerializeTo because the CLink CRC is computed over the serialized payload
// before the frame is assembled.
func (mem *MemLayer) Serialize(buf []byte) {
	hdr := uint32(mem.Region&0x7f)<<24 | mem.Addr&0xffffff
	if mem.MemOp.Read {
		hdr |= 0x80000000
	}
	binary.LittleEndian.PutUint32(buf[0:4], hdr)
	binary.LittleEndian.PutUint32(buf[4:8], mem.Size&0xffff)
	if !mem.MemOp.Read {
		for i, word := range mem.Data {
			offset := (i + 2) * 4
			binary.LittleEndian.PutUint32(buf[offset:offset+4], word)
		}
	}
}

// SerializeTo serializes the memory op into bytes and writes the bytes to the SerializeBuffer
func (mem *MemLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	nwords := 2
	if !mem.MemOp.Read {
		nwords += len(mem.Data)
	}
	bytes, err := b.AppendBytes(nwords * 4)
	if err != nil {
		return err
	}
	mem.Serialize(bytes)
	return nil
}

func (mem *MemLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	mem.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload:  []byte{},
	}
	if mem.MemOp == nil {
		mem.MemOp = &MemOp{}
	}
	hdr := binary.LittleEndian.Uint32(data[0:4])
	mem.Read = hdr&0x80000000 != 0
	mem.Region = uint8((hdr >> 24) & 0x7f)
	mem.Addr = hdr & 0xffffff
	mem.Size = binary.LittleEndian.Uint32(data[4:8]) & 0xffff
	for offset := 8; offset+4 <= len(data); offset += 4 {
		mem.Data = append(mem.Data, binary.LittleEndian.Uint32(data[offset:offset+4]))
	}
	return nil
}

func DecodeMemLayer(data []byte, p gopacket.PacketBuilder) error {
	req := &MemLayer{MemOp: &MemOp{}}
	err := req.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(req)
	return nil
}

// MemOpToBytes frames a memory op into a CLink request frame
func MemOpToBytes(op *MemOp, seq uint16) ([]byte, error) {
	cl := &CLinkLayer{}
	cl.Type = CLinkTypeMemRequest
	cl.Sync = CLinkSync
	// 3 words CLink header + 1 word CRC + 2 words MemOp header + data words
	nwords := uint16(2)
	if !op.Read {
		nwords += uint16(len(op.Data))
	}
	cl.Len = 4 + nwords
	cl.Seq = seq
	cl.Src = CLinkHostAddr
	cl.Dst = CLinkDeviceAddr

	clHeaderBytes := make([]byte, 12)
	cl.SerializeHeader(clHeaderBytes)

	mem := &MemLayer{MemOp: op}
	memBytes := make([]byte, nwords*4)
	mem.Serialize(memBytes)

	cl.Crc = crc32.ChecksumIEEE(append(clHeaderBytes, memBytes...))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	err := gopacket.SerializeLayers(buf, opts, cl, mem)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
