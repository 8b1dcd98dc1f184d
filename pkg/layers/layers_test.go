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
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegOpsRoundTrip(t *testing.T) {
	ops := []*RegOp{
		{Read: true, Block: 2, Reg: 3},
		{Block: 1, Reg: 4, Value: 0xdeadbeef},
	}
	frame, err := RegOpsToBytes(ops, 7)
	require.NoError(t, err)
	// 12 bytes header, 8 per op, 4 CRC
	require.Len(t, frame, 32)

	cl := &CLinkLayer{}
	require.NoError(t, cl.DecodeFromBytes(frame, gopacket.NilDecodeFeedback))
	assert.Equal(t, CLinkTypeRegRequest, cl.Type)
	assert.Equal(t, uint16(CLinkSync), cl.Sync)
	assert.Equal(t, uint16(7), cl.Seq)
	assert.Equal(t, uint16(8), cl.Len)
	assert.Equal(t, uint16(CLinkHostAddr), cl.Src)
	assert.Equal(t, uint16(CLinkDeviceAddr), cl.Dst)
	assert.Equal(t, crc32.ChecksumIEEE(frame[:len(frame)-4]), cl.Crc)

	decoded := &RegLayer{}
	require.NoError(t, decoded.DecodeFromBytes(cl.Payload, gopacket.NilDecodeFeedback))
	require.Len(t, decoded.Ops, 2)
	assert.Equal(t, ops[0].Read, decoded.Ops[0].Read)
	assert.Equal(t, ops[0].Block, decoded.Ops[0].Block)
	assert.Equal(t, ops[0].Reg, decoded.Ops[0].Reg)
	assert.Equal(t, ops[1].Value, decoded.Ops[1].Value)
}

func TestRegResponsePacketDecode(t *testing.T) {
	frame, err := RegOpsToBytes([]*RegOp{{Read: true, Block: 1, Reg: 2, Value: 42}}, 0)
	require.NoError(t, err)
	// the device echoes the frame back with the response type
	binary.LittleEndian.PutUint16(frame[0:2], uint16(CLinkTypeRegResponse))

	packet := gopacket.NewPacket(frame, CLinkLayerType, gopacket.Default)
	reg := packet.Layer(RegLayerType)
	require.NotNil(t, reg)
	ops := reg.(*RegLayer).Ops
	require.Len(t, ops, 1)
	assert.Equal(t, uint32(42), ops[0].Value)
}

func TestMemOpRoundTrip(t *testing.T) {
	op := &MemOp{
		Region: 3,
		Addr:   0x123456,
		Size:   2,
		Data:   []uint32{0xcafe, 0xbabe},
	}
	frame, err := MemOpToBytes(op, 9)
	require.NoError(t, err)
	// 12 bytes header, 2 words op header, 2 data words, 4 CRC
	require.Len(t, frame, 32)

	cl := &CLinkLayer{}
	require.NoError(t, cl.DecodeFromBytes(frame, gopacket.NilDecodeFeedback))
	assert.Equal(t, CLinkTypeMemRequest, cl.Type)

	decoded := &MemLayer{MemOp: &MemOp{}}
	require.NoError(t, decoded.DecodeFromBytes(cl.Payload, gopacket.NilDecodeFeedback))
	assert.False(t, decoded.Read)
	assert.Equal(t, uint8(3), decoded.Region)
	assert.Equal(t, uint32(0x123456), decoded.Addr)
	assert.Equal(t, uint32(2), decoded.Size)
	assert.Equal(t, op.Data, decoded.Data)
}

func TestMemResponsePacketDecode(t *testing.T) {
	frame, err := MemOpToBytes(&MemOp{Region: 1, Addr: 0, Size: 1, Data: []uint32{7}}, 0)
	require.NoError(t, err)
	binary.LittleEndian.PutUint16(frame[0:2], uint16(CLinkTypeMemResponse))

	packet := gopacket.NewPacket(frame, CLinkLayerType, gopacket.Default)
	mem := packet.Layer(MemLayerType)
	require.NotNil(t, mem)
	assert.Equal(t, []uint32{7}, mem.(*MemLayer).Data)
}
