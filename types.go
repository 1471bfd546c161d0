// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package fingerprint

import (
	"fmt"
	"io"
)

// StartCode is the fixed two-byte magic that opens every frame on the wire.
const StartCode uint16 = 0xEF01

// Frame layout sizes. A frame is:
// start(2) | address(4) | type(1) | length(2) | payload(length-2) | checksum(2)
const (
	headerSize    = 9  // start + address + type + length
	frameOverhead = 11 // header + checksum
	minFrameSize  = 12 // smallest frame the sensor emits carries a 1-byte payload
)

// PacketType identifies the role of a frame within an exchange.
type PacketType byte

const (
	PacketTypeCommand   PacketType = 0x01 // host -> sensor instruction
	PacketTypeData      PacketType = 0x02 // one chunk of a multi-packet transfer
	PacketTypeAck       PacketType = 0x07 // sensor -> host acknowledge
	PacketTypeEndOfData PacketType = 0x08 // final chunk of a multi-packet transfer
)

// isValid reports whether the byte names a known packet type.
func (pt PacketType) isValid() bool {
	switch pt {
	case PacketTypeCommand, PacketTypeData, PacketTypeAck, PacketTypeEndOfData:
		return true
	}
	return false
}

func (pt PacketType) String() string {
	switch pt {
	case PacketTypeCommand:
		return "COMMAND"
	case PacketTypeData:
		return "DATA"
	case PacketTypeAck:
		return "ACK"
	case PacketTypeEndOfData:
		return "END_OF_DATA"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", byte(pt))
	}
}

// Packet is one decoded wire frame. It is produced by the Packager and
// consumed exactly once; the engine never mutates a decoded packet.
type Packet struct {
	Address uint32
	Type    PacketType
	Payload []byte
}

// InstructionCode is the first payload byte of a COMMAND packet.
type InstructionCode byte

const (
	CmdVerifyPassword          InstructionCode = 0x13
	CmdSetPassword             InstructionCode = 0x12
	CmdSetAddress              InstructionCode = 0x15
	CmdSetSystemParameter      InstructionCode = 0x0E
	CmdGetSystemParameters     InstructionCode = 0x0F
	CmdTemplateIndex           InstructionCode = 0x1F
	CmdTemplateCount           InstructionCode = 0x1D
	CmdLedConfig               InstructionCode = 0x35
	CmdReadImage               InstructionCode = 0x01
	CmdDownloadImage           InstructionCode = 0x0A
	CmdConvertImage            InstructionCode = 0x02
	CmdCreateTemplate          InstructionCode = 0x05
	CmdStoreTemplate           InstructionCode = 0x06
	CmdSearchTemplate          InstructionCode = 0x04
	CmdLoadTemplate            InstructionCode = 0x07
	CmdDeleteTemplate          InstructionCode = 0x0C
	CmdClearDatabase           InstructionCode = 0x0D
	CmdGenerateRandomNumber    InstructionCode = 0x14
	CmdCompareCharacteristics  InstructionCode = 0x03
	CmdUploadCharacteristics   InstructionCode = 0x09
	CmdDownloadCharacteristics InstructionCode = 0x08
	CmdSoftReset               InstructionCode = 0x3D
	CmdCancelInstruction       InstructionCode = 0x30
	CmdCheckSensor             InstructionCode = 0x36
	CmdHandshake               InstructionCode = 0x40
)

// CharBuffer selects one of the two sensor-side characteristics registers.
type CharBuffer byte

const (
	CharBuffer1 CharBuffer = 0x01
	CharBuffer2 CharBuffer = 0x02
)

func (cb CharBuffer) isValid() bool {
	return cb == CharBuffer1 || cb == CharBuffer2
}

// SystemParameter is a writable sensor register number for SetSystemParameter.
type SystemParameter byte

const (
	ParameterBaudRate      SystemParameter = 4
	ParameterSecurityLevel SystemParameter = 5
	ParameterPacketSize    SystemParameter = 6
)

// LEDColor selects the LED colour for LedOn.
type LEDColor byte

const (
	LEDRed    LEDColor = 0x01
	LEDBlue   LEDColor = 0x02
	LEDPurple LEDColor = 0x03
)

func (c LEDColor) isValid() bool {
	return c >= LEDRed && c <= LEDPurple
}

// LEDControl selects the LED animation mode for LedOn.
type LEDControl byte

const (
	LEDBreathing  LEDControl = 0x01
	LEDFlashing   LEDControl = 0x02
	LEDContinuous LEDControl = 0x03
	LEDOff        LEDControl = 0x04
	LEDGradualOn  LEDControl = 0x05
	LEDGradualOff LEDControl = 0x06
)

func (c LEDControl) isValid() bool {
	return c >= LEDBreathing && c <= LEDGradualOff
}

// SystemParameters is the fixed 16-byte parameter block returned by the
// sensor. Field positions and widths are protocol-fixed.
type SystemParameters struct {
	StatusRegister  uint16
	SystemID        uint16
	StorageCapacity uint16
	SecurityLevel   uint16
	Address         uint32
	PacketSizeCode  uint16 // 0=32, 1=64, 2=128, 3=256 bytes
	BaudRateCode    uint16 // baud rate / 9600
}

// SearchResult is the outcome of a template database search. Found false
// means the sensor reported "no matching template"; Position and Score are
// only meaningful when Found is true.
type SearchResult struct {
	Found    bool
	Position uint16
	Score    uint16
}

// FingerprintApi defines the interface for fingerprint sensor operations.
type FingerprintApi interface {
	// Handler API
	GetLastProtocolError() *ProtocolError // GetLastProtocolError returns the last sensor-side failure seen by this handler
	SetLogger(io.Writer)                  // SetLogger sets the logger for the handler
	// Session configuration
	VerifyPassword() (bool, error)                              // VerifyPassword checks the session password against the sensor
	SetPassword(password uint32) error                          // SetPassword changes the sensor password
	SetAddress(address uint32) error                            // SetAddress changes the sensor bus address
	SetSystemParameter(param SystemParameter, value byte) error // SetSystemParameter writes one sensor register
	SetBaudRate(baudRate int) error                             // SetBaudRate sets the UART speed (multiple of 9600)
	SetSecurityLevel(level int) error                           // SetSecurityLevel sets the matching threshold (1..5)
	SetMaxPacketSize(size int) error                            // SetMaxPacketSize sets the data packet size (32/64/128/256)
	GetSystemParameters() (SystemParameters, error)             // GetSystemParameters reads the 16-byte parameter block
	GetStorageCapacity() (int, error)                           // GetStorageCapacity returns the template slot count
	GetSecurityLevel() (int, error)                             // GetSecurityLevel returns the matching threshold
	GetMaxPacketSize() (int, error)                             // GetMaxPacketSize returns the negotiated data packet size
	GetBaudRate() (int, error)                                  // GetBaudRate returns the UART speed
	// Image and characteristics
	ReadImage() (bool, error)                                   // ReadImage captures a finger image, false when no finger rests on the sensor
	DownloadImage() ([]byte, error)                             // DownloadImage transfers the image buffer to the host
	ConvertImage(buffer CharBuffer) error                       // ConvertImage extracts characteristics from the image buffer
	CompareCharacteristics() (uint16, error)                    // CompareCharacteristics scores char buffer 1 against 2, 0 means no match
	UploadCharacteristics(buffer CharBuffer, data []byte) error // UploadCharacteristics writes a characteristics blob into a char buffer
	DownloadCharacteristics(buffer CharBuffer) ([]byte, error)  // DownloadCharacteristics reads a characteristics blob from a char buffer
	// Template database
	CreateTemplate() (bool, error)                                                // CreateTemplate merges both char buffers, false on mismatch
	StoreTemplate(position int, buffer CharBuffer) (uint16, error)                // StoreTemplate saves a template, position -1 picks the first free slot
	SearchTemplate(buffer CharBuffer, start int, count int) (SearchResult, error) // SearchTemplate scans the database for the char buffer
	LoadTemplate(position int, buffer CharBuffer) error                           // LoadTemplate loads a stored template into a char buffer
	DeleteTemplate(position int, count int) (bool, error)                         // DeleteTemplate removes stored templates
	ClearDatabase() (bool, error)                                                 // ClearDatabase removes all stored templates
	GetTemplateIndex(page int) ([]bool, error)                                    // GetTemplateIndex returns the slot usage bitmap for one page
	GetTemplateCount() (uint16, error)                                            // GetTemplateCount returns the number of stored templates
	// Misc
	GenerateRandomNumber() (uint32, error)                                           // GenerateRandomNumber asks the sensor for a 32-bit random value
	SoftReset() error                                                                // SoftReset reboots the sensor and waits for its ready byte
	CheckSensor() (bool, error)                                                      // CheckSensor reports whether the sensor is in a working state
	Handshake() (bool, error)                                                        // Handshake probes the sensor
	CancelInstruction() error                                                        // CancelInstruction aborts the last instruction
	LedOn(color LEDColor, control LEDControl, flashSpeed byte, flashCount byte) error // LedOn configures the LED ring
	LedOff() error                                                                   // LedOff turns the LED ring off
}
