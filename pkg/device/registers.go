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

// Package device holds the PCM-MIO-G register layout shared by the driver,
// the simulated card and the userspace library.
package device

// RegionSize is the size of the card I/O window in bytes
const RegionSize = 0x20

// Register offsets relative to the card base address.
// Several offsets have more than one meaning selected by resource enable
// bits (ADC/DAC) or by the DIO page lock register.
const (
	RegAdc1DataLo  uint8 = 0x00
	RegAdc1DataHi  uint8 = 0x01
	RegAdc1Command uint8 = 0x02 // Reg3[4:3] = 00
	RegAdc1Rsrc    uint8 = 0x02 // Reg3[4:3] = 01
	RegDioRsrc     uint8 = 0x02 // Reg3[4:3] = 1x
	RegAdc1Enable  uint8 = 0x03 // write only
	RegAdc1Status  uint8 = 0x03 // read only
	RegAdc2DataLo  uint8 = 0x04
	RegAdc2DataHi  uint8 = 0x05
	RegAdc2Command uint8 = 0x06
	RegAdc2Rsrc    uint8 = 0x06
	RegAdc2Enable  uint8 = 0x07
	RegAdc2Status  uint8 = 0x07
	RegDac1DataLo  uint8 = 0x08
	RegDac1DataHi  uint8 = 0x09
	RegDac1Command uint8 = 0x0a
	RegDac1Rsrc    uint8 = 0x0a
	RegDac1Enable  uint8 = 0x0b
	RegDac1Status  uint8 = 0x0b
	RegDac2DataLo  uint8 = 0x0c
	RegDac2DataHi  uint8 = 0x0d
	RegDac2Command uint8 = 0x0e
	RegDac2Rsrc    uint8 = 0x0e
	RegDac2Enable  uint8 = 0x0f
	RegDac2Status  uint8 = 0x0f // Reg15[5] = 0
	RegIrqStatus   uint8 = 0x0f // Reg15[5] = 1
	RegDioPort0    uint8 = 0x10
	RegDioPort1    uint8 = 0x11
	RegDioPort2    uint8 = 0x12
	RegDioPort3    uint8 = 0x13
	RegDioPort4    uint8 = 0x14
	RegDioPort5    uint8 = 0x15
	RegDioPending  uint8 = 0x16
	RegDioPageLock uint8 = 0x17
	RegDioPolarity uint8 = 0x18 // page 1, three consecutive bytes
	RegDioEnable   uint8 = 0x18 // page 2
	RegDioIntId    uint8 = 0x18 // page 3
)

// Distance between the register blocks of the two ADC (or DAC) chips
const ChipStride = 4

// DIO page codes written to RegDioPageLock
const (
	Page0 byte = 0x00
	Page1 byte = 0x40
	Page2 byte = 0x80
	Page3 byte = 0xc0

	PagePolarity = Page1
	PageEnable   = Page2
	PageIntId    = Page3
	// PageDefault is the page left selected between operations
	PageDefault = Page3
	PageMask    = 0xc0
)

// Bits of the composite interrupt status byte read from RegIrqStatus
const (
	IrqAdc1 byte = 1 << iota
	IrqAdc2
	IrqDac1
	IrqDio
	IrqDac2
	IrqAll byte = 0x1f
)

// Bits of the DAC2 resource enable image
const (
	Dac2IrqAccess byte = 0x20
)

// Resource enable values
const (
	AdcIrqEnable   byte = 0x01
	AdcIrqDisable  byte = 0x00
	AdcRsrcSelect  byte = 0x08
	DioRsrcSelect  byte = 0x10
	Dac1IrqEnable  byte = 0x11
	Dac1IrqDisable byte = 0x10
	Dac2IrqEnable  byte = 0x31
	Dac2IrqDisable byte = 0x30
	DacRsrcSelect  byte = 0x08
)

// Status bits
const (
	AdcReady byte = 0x80
	DacReady byte = 0x80
)

// DIO geometry
const (
	DioPorts    = 6
	DioBits     = 48
	DioIntPorts = 3
	DioIntBits  = 24
)

type RegAlias int

const (
	RegAliasAdc1Data RegAlias = iota
	RegAliasAdc1Status
	RegAliasAdc2Data
	RegAliasAdc2Status
	RegAliasDac1Status
	RegAliasDac2Status
	RegAliasDioPort0
	RegAliasDioPort1
	RegAliasDioPort2
	RegAliasDioPort3
	RegAliasDioPort4
	RegAliasDioPort5
	RegAliasDioPending
	RegAliasDioPageLock
	RegAliasDioWindow0
	RegAliasDioWindow1
	RegAliasDioWindow2
	RegAliasLimit
)

// RegMap lists the registers that are safe to read back in bulk: reads of
// these offsets do not acknowledge interrupts.
var RegMap = map[RegAlias]uint8{
	RegAliasAdc1Data:    RegAdc1DataLo,
	RegAliasAdc1Status:  RegAdc1Status,
	RegAliasAdc2Data:    RegAdc2DataLo,
	RegAliasAdc2Status:  RegAdc2Status,
	RegAliasDac1Status:  RegDac1Status,
	RegAliasDac2Status:  RegDac2Status,
	RegAliasDioPort0:    RegDioPort0,
	RegAliasDioPort1:    RegDioPort1,
	RegAliasDioPort2:    RegDioPort2,
	RegAliasDioPort3:    RegDioPort3,
	RegAliasDioPort4:    RegDioPort4,
	RegAliasDioPort5:    RegDioPort5,
	RegAliasDioPending:  RegDioPending,
	RegAliasDioPageLock: RegDioPageLock,
	RegAliasDioWindow0:  RegDioIntId,
	RegAliasDioWindow1:  RegDioIntId + 1,
	RegAliasDioWindow2:  RegDioIntId + 2,
}

// NodeName returns the device node name of the card with the given index
func NodeName(index int) string {
	return "pcmmio_ws" + string(rune('a'+index))
}
