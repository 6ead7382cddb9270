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

func TestRegHex(t *testing.T) {
	reg, err := NewRegFromHex("0x17", "0xc0")
	require.NoError(t, err)
	assert.Equal(t, &Reg{Addr: 0x17, Value: 0xc0}, reg)
	addr, value := reg.Hex()
	assert.Equal(t, "0x17", addr)
	assert.Equal(t, "0xc0", value)
	assert.Equal(t, "0x17 = 0xc0", reg.String())

	_, err = NewRegFromHex("0x100", "0")
	assert.Error(t, err)
	_, err = NewRegFromHex("0x10", "zz")
	assert.Error(t, err)
}
