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
	"fmt"
	"strconv"
)

// Reg is one byte register of the card window
type Reg struct {
	Addr  uint8
	Value uint8
}

// Hex returns the address and value as 0x prefixed hexadecimal strings
func (r *Reg) Hex() (string, string) {
	return fmt.Sprintf("0x%02x", r.Addr), fmt.Sprintf("0x%02x", r.Value)
}

func (r *Reg) String() string {
	addr, value := r.Hex()
	return fmt.Sprintf("%s = %s", addr, value)
}

// NewRegFromHex parses a register given as hexadecimal (or decimal) strings
func NewRegFromHex(addr, value string) (*Reg, error) {
	a, err := strconv.ParseUint(addr, 0, 8)
	if err != nil {
		return nil, fmt.Errorf("bad register address %q: %w", addr, err)
	}
	v, err := strconv.ParseUint(value, 0, 8)
	if err != nil {
		return nil, fmt.Errorf("bad register value %q: %w", value, err)
	}
	return &Reg{Addr: uint8(a), Value: uint8(v)}, nil
}
