package sts

// Special device addresses.
const (
	// MaxDeviceID is the highest assignable device id.
	MaxDeviceID byte = 0xFD // 253

	// BroadcastID addresses every device on the bus. Broadcast instructions
	// solicit no status reply (sync read being the protocol-level exception).
	BroadcastID byte = 0xFE // 254
)

// Instruction codes.
const (
	InstPing      byte = 0x01
	InstRead      byte = 0x02
	InstWrite     byte = 0x03
	InstRegWrite  byte = 0x04
	InstAction    byte = 0x05
	InstSyncRead  byte = 0x82
	InstSyncWrite byte = 0x83
)

// ST3215 register map. The engine treats these as opaque offsets; they are
// published here so higher layers share a single source of addresses.
//
// EEPROM area (persists across power cycles; write-protected by RegLock).
const (
	RegModelNumber   byte = 3  // 2 bytes
	RegID            byte = 5  // 1 byte
	RegBaudRate      byte = 6  // 1 byte
	RegMinAngleLimit byte = 9  // 2 bytes
	RegMaxAngleLimit byte = 11 // 2 bytes
	RegCWDeadZone    byte = 26 // 1 byte
	RegCCWDeadZone   byte = 27 // 1 byte
	RegOffset        byte = 31 // 2 bytes, sign in bit 11
	RegMode          byte = 33 // 1 byte
)

// SRAM area (volatile).
const (
	RegTorqueEnable       byte = 40 // 1 byte
	RegAcceleration       byte = 41 // 1 byte
	RegGoalPosition       byte = 42 // 2 bytes
	RegGoalTime           byte = 44 // 2 bytes
	RegGoalSpeed          byte = 46 // 2 bytes, sign in bit 15
	RegLock               byte = 55 // 1 byte
	RegPresentPosition    byte = 56 // 2 bytes
	RegPresentSpeed       byte = 58 // 2 bytes, sign in bit 15
	RegPresentLoad        byte = 60 // 2 bytes
	RegPresentVoltage     byte = 62 // 1 byte
	RegPresentTemperature byte = 63 // 1 byte
	RegStatus             byte = 65 // 1 byte
	RegMoving             byte = 66 // 1 byte
	RegPresentCurrent     byte = 69 // 2 bytes
)
