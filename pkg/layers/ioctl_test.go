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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIoctlRequestFrame(t *testing.T) {
	data, err := EncodeIoctl(&IoctlLayer{Minor: 2, Cmd: 0xc004690b, Param: 0x5501})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x4d, 0x49, 0x00, 0x02,
		0x0b, 0x69, 0x04, 0xc0,
		0x01, 0x55, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}, data)

	l, err := DecodeIoctl(data)
	require.NoError(t, err)
	assert.False(t, l.Reply)
	assert.Equal(t, uint8(2), l.Minor)
	assert.Equal(t, uint32(0xc004690b), l.Cmd)
	assert.Equal(t, uint32(0x5501), l.Param)
}

func TestIoctlReplyFrame(t *testing.T) {
	data, err := EncodeIoctl(&IoctlLayer{Reply: true, Cmd: 0xc004690d, Result: -1, Errno: 4})
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), data[2])

	l, err := DecodeIoctl(data)
	require.NoError(t, err)
	assert.True(t, l.Reply)
	assert.Equal(t, int32(-1), l.Result)
	assert.Equal(t, uint32(4), l.Errno)
}

func TestIoctlBadFrames(t *testing.T) {
	_, err := DecodeIoctl([]byte{0x4d, 0x49, 0x00})
	assert.Error(t, err)

	bad := make([]byte, IoctlFrameSize)
	bad[0] = 0xff
	_, err = DecodeIoctl(bad)
	assert.Error(t, err)
}
