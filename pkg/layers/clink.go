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

// Package layers implements the control-link framing spoken between the
// host and the readout fabric: register and memory operations wrapped in
// CLink frames.
package layers

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	CLinkHostAddr   = 1
	CLinkDeviceAddr = 0xfdfd
)

func init() {
	initUnknownCLinkTypes()
	initActualCLinkTypes()
}

const (
	// CLinkLayerNum identifies the layer
	CLinkLayerNum = 2101
	// CLinkSync is a magic number that appears in the beginning of each CLink frame
	CLinkSync = 0x2C51
	// CLinkMaxFrameSize is the max size of a CLink frame including header and CRC
	CLinkMaxFrameSize = 1400
	// CLinkMaxPayloadSize is the max payload size:
	// CLink header 12 bytes, CRC 4 bytes
	CLinkMaxPayloadSize = CLinkMaxFrameSize - 16
)

type CLinkType uint16

const (
	CLinkTypeRegRequest  CLinkType = 0x0201
	CLinkTypeRegResponse CLinkType = 0x0202
	CLinkTypeMemRequest  CLinkType = 0x0205
	CLinkTypeMemResponse CLinkType = 0x0206
)

type errorDecoderForCLinkType int

func (e *errorDecoderForCLinkType) Decode(data []byte, p gopacket.PacketBuilder) error {
	return e
}

func (e *errorDecoderForCLinkType) Error() string {
	return fmt.Sprintf("Unable to decode CLink type %d", int(*e))
}

var errorDecodersForCLinkType [65536]errorDecoderForCLinkType
var CLinkMetadata [65536]layers.EnumMetadata

func initUnknownCLinkTypes() {
	for i := 0; i < 65536; i++ {
		errorDecodersForCLinkType[i] = errorDecoderForCLinkType(i)
		CLinkMetadata[i] = layers.EnumMetadata{
			DecodeWith: &errorDecodersForCLinkType[i],
			Name:       "UnknownCLinkType",
		}
	}
}

func initActualCLinkTypes() {
	CLinkMetadata[CLinkTypeRegResponse] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeRegLayer), Name: "Reg", LayerType: RegLayerType}
	CLinkMetadata[CLinkTypeMemResponse] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeMemLayer), Name: "Mem", LayerType: MemLayerType}
}

// LayerType returns CLinkMetadata.LayerType
func (t CLinkType) LayerType() gopacket.LayerType {
	return CLinkMetadata[t].LayerType
}

// Decode calls CLinkMetadata.DecodeWith's decoder
func (t CLinkType) Decode(data []byte, p gopacket.PacketBuilder) error {
	return CLinkMetadata[t].DecodeWith.Decode(data, p)
}

// String returns CLinkMetadata.Name
func (t CLinkType) String() string {
	return CLinkMetadata[t].Name
}

type CLinkHeader struct {
	Type CLinkType
	Sync uint16
	Seq  uint16
	Len  uint16 // frame length including header, payload and CRC, in 4-byte words
	Src  uint16
	Dst  uint16
}

type CLinkLayer struct {
	layers.BaseLayer
	CLinkHeader
	Crc uint32
}

var CLinkLayerType = gopacket.RegisterLayerType(CLinkLayerNum,
	gopacket.LayerTypeMetadata{Name: "CLinkLayerType", Decoder: gopacket.DecodeFunc(decodeCLinkLayer)})

func (cl *CLinkLayer) LayerType() gopacket.LayerType {
	return CLinkLayerType
}

// SerializeHeader serializes only the CLink header (not the CRC tail).
// The CRC depends on the serialized payload, so upper layers compute it
// over the header and payload bytes before the frame is assembled.
func (cl *CLinkLayer) SerializeHeader(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(cl.Type))
	binary.LittleEndian.PutUint16(buf[2:4], cl.Sync)
	binary.LittleEndian.PutUint16(buf[4:6], cl.Seq)
	binary.LittleEndian.PutUint16(buf[6:8], cl.Len)
	binary.LittleEndian.PutUint16(buf[8:10], cl.Src)
	binary.LittleEndian.PutUint16(buf[10:12], cl.Dst)
}

// SerializeTo serializes the layer into bytes and writes the bytes to the SerializeBuffer
func (cl *CLinkLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	headerBytes, err := b.PrependBytes(12)
	if err != nil {
		return err
	}
	cl.SerializeHeader(headerBytes)

	tailBytes, err := b.AppendBytes(4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(tailBytes[0:4], cl.Crc)
	return nil
}

// DecodeFromBytes attempts to decode the byte slice as a CLink frame
func (cl *CLinkLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < 16 {
		df.SetTruncated()
		return errors.New("CLink packet too short")
	}

	if binary.LittleEndian.Uint16(data[2:4]) != CLinkSync {
		return fmt.Errorf("Wrong CLink sync. Must be 0x%04x", CLinkSync)
	}

	cl.BaseLayer = layers.BaseLayer{
		Contents: data[0:12],
		Payload:  data[12 : len(data)-4],
	}

	cl.Type = CLinkType(binary.LittleEndian.Uint16(data[0:2]))
	cl.Sync = binary.LittleEndian.Uint16(data[2:4])
	cl.Seq = binary.LittleEndian.Uint16(data[4:6])
	cl.Len = binary.LittleEndian.Uint16(data[6:8])
	cl.Src = binary.LittleEndian.Uint16(data[8:10])
	cl.Dst = binary.LittleEndian.Uint16(data[10:12])
	cl.Crc = binary.LittleEndian.Uint32(data[len(data)-4:])

	return nil
}

func (cl *CLinkLayer) NextLayerType() gopacket.LayerType {
	return cl.Type.LayerType()
}

func decodeCLinkLayer(data []byte, p gopacket.PacketBuilder) error {
	cl := &CLinkLayer{}
	err := cl.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(cl)
	return p.NextDecoder(cl.NextLayerType())
}
