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
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// IoctlLayerNum identifies the layer
	IoctlLayerNum = 2001
	// IoctlMagic is "MI" at the start of every frame
	IoctlMagic = 0x494d
	// IoctlFrameSize is the fixed size of request and reply frames
	IoctlFrameSize = 16
)

const (
	ioctlFlagReply = 0x01
)

// IoctlLayer carries one ioctl call or its outcome between the control
// client and the daemon.
//
//	0..1   magic
//	2      flags, bit 0 set on replies
//	3      minor number of the card
//	4..7   command code
//	8..11  argument (request) or result (reply)
//	12..15 errno (reply)
type IoctlLayer struct {
	layers.BaseLayer
	Reply  bool
	Minor  uint8
	Cmd    uint32
	Param  uint32
	Result int32
	Errno  uint32
}

var IoctlLayerType = gopacket.RegisterLayerType(IoctlLayerNum,
	gopacket.LayerTypeMetadata{Name: "IoctlLayerType", Decoder: gopacket.DecodeFunc(DecodeIoctlLayer)})

// LayerType returns the type of the ioctl layer in the layer catalog
func (l *IoctlLayer) LayerType() gopacket.LayerType {
	return IoctlLayerType
}

func (l *IoctlLayer) Serialize(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], IoctlMagic)
	buf[2] = 0
	if l.Reply {
		buf[2] |= ioctlFlagReply
	}
	buf[3] = l.Minor
	binary.LittleEndian.PutUint32(buf[4:8], l.Cmd)
	if l.Reply {
		binary.LittleEndian.PutUint32(buf[8:12], uint32(l.Result))
		binary.LittleEndian.PutUint32(buf[12:16], l.Errno)
	} else {
		binary.LittleEndian.PutUint32(buf[8:12], l.Param)
		binary.LittleEndian.PutUint32(buf[12:16], 0)
	}
}

// SerializeTo writes the frame to the SerializeBuffer
func (l *IoctlLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(IoctlFrameSize)
	if err != nil {
		return err
	}
	l.Serialize(bytes)
	return nil
}

func (l *IoctlLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < IoctlFrameSize {
		df.SetTruncated()
		return fmt.Errorf("ioctl frame too short: %d bytes", len(data))
	}
	if magic := binary.LittleEndian.Uint16(data[0:2]); magic != IoctlMagic {
		return fmt.Errorf("wrong ioctl frame magic 0x%04x", magic)
	}
	l.BaseLayer = layers.BaseLayer{
		Contents: data[:IoctlFrameSize],
		Payload:  data[IoctlFrameSize:],
	}
	l.Reply = data[2]&ioctlFlagReply != 0
	l.Minor = data[3]
	l.Cmd = binary.LittleEndian.Uint32(data[4:8])
	if l.Reply {
		l.Param = 0
		l.Result = int32(binary.LittleEndian.Uint32(data[8:12]))
		l.Errno = binary.LittleEndian.Uint32(data[12:16])
	} else {
		l.Param = binary.LittleEndian.Uint32(data[8:12])
		l.Result = 0
		l.Errno = 0
	}
	return nil
}

func (l *IoctlLayer) CanDecode() gopacket.LayerClass {
	return IoctlLayerType
}

func (l *IoctlLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

func DecodeIoctlLayer(data []byte, p gopacket.PacketBuilder) error {
	l := &IoctlLayer{}
	err := l.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(l)
	return nil
}

// EncodeIoctl serializes a frame into a new byte slice
func EncodeIoctl(l *IoctlLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeIoctl parses one frame
func DecodeIoctl(data []byte) (*IoctlLayer, error) {
	packet := gopacket.NewPacket(data, IoctlLayerType, gopacket.Default)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}
	l, ok := packet.Layer(IoctlLayerType).(*IoctlLayer)
	if !ok {
		return nil, fmt.Errorf("no ioctl frame in %d bytes", len(data))
	}
	return l, nil
}
