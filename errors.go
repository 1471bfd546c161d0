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
	"errors"
	"fmt"
	"time"
)

// ConfirmationCode is the first payload byte of an ACK packet. AckOK always
// means success; all other values are command-specific failure reasons fixed
// by the sensor firmware.
type ConfirmationCode byte

const (
	AckOK                         ConfirmationCode = 0x00
	AckErrCommunication           ConfirmationCode = 0x01
	AckErrNoFinger                ConfirmationCode = 0x02
	AckErrReadImage               ConfirmationCode = 0x03
	AckErrMessyImage              ConfirmationCode = 0x06
	AckErrFewFeaturePoints        ConfirmationCode = 0x07
	AckErrNotMatching             ConfirmationCode = 0x08
	AckErrNoTemplateFound         ConfirmationCode = 0x09
	AckErrCharacteristicsMismatch ConfirmationCode = 0x0A
	AckErrInvalidPosition         ConfirmationCode = 0x0B
	AckErrLoadTemplate            ConfirmationCode = 0x0C
	AckErrDownloadCharacteristics ConfirmationCode = 0x0D
	AckErrPacketResponse          ConfirmationCode = 0x0E
	AckErrDownloadImage           ConfirmationCode = 0x0F
	AckErrDeleteTemplate          ConfirmationCode = 0x10
	AckErrClearDatabase           ConfirmationCode = 0x11
	AckErrWrongPassword           ConfirmationCode = 0x13
	AckErrInvalidImage            ConfirmationCode = 0x15
	AckErrFlash                   ConfirmationCode = 0x18
	AckErrInvalidRegister         ConfirmationCode = 0x1A
	AckAddressCode                ConfirmationCode = 0x20
	AckPasswordVerify             ConfirmationCode = 0x21
)

// getConfirmationMessage returns a human-readable message for a sensor
// confirmation code.
func getConfirmationMessage(code ConfirmationCode) string {
	switch code {
	case AckOK:
		return "Success"
	case AckErrCommunication:
		return "Communication error"
	case AckErrNoFinger:
		return "No finger on sensor"
	case AckErrReadImage:
		return "Could not read image"
	case AckErrMessyImage:
		return "Image too messy"
	case AckErrFewFeaturePoints:
		return "Image contains too few feature points"
	case AckErrNotMatching:
		return "Characteristics do not match"
	case AckErrNoTemplateFound:
		return "No matching template found"
	case AckErrCharacteristicsMismatch:
		return "Characteristics mismatch"
	case AckErrInvalidPosition:
		return "Invalid template position"
	case AckErrLoadTemplate:
		return "Template could not be read"
	case AckErrDownloadCharacteristics:
		return "Could not download characteristics"
	case AckErrPacketResponse:
		return "Could not respond to data packet"
	case AckErrDownloadImage:
		return "Could not download image"
	case AckErrDeleteTemplate:
		return "Could not delete template"
	case AckErrClearDatabase:
		return "Could not clear template database"
	case AckErrWrongPassword:
		return "Wrong password"
	case AckErrInvalidImage:
		return "Invalid image"
	case AckErrFlash:
		return "Error writing to flash"
	case AckErrInvalidRegister:
		return "Invalid register number"
	case AckAddressCode:
		return "Wrong sensor address"
	case AckPasswordVerify:
		return "Password must be verified"
	default:
		return "Unknown confirmation code"
	}
}

// ValidationError reports a bad argument caught before any byte was written
// to the transport. It is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("fingerprint: invalid %s: %s", e.Field, e.Reason)
}

// FramingError reports a malformed frame header or an inconsistent length
// field. The exchange that produced it is aborted.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("fingerprint: framing error: %s", e.Reason)
}

// IntegrityError reports a checksum mismatch. The packet is corrupted; a
// noisy link or too high a baud rate is the usual cause.
type IntegrityError struct {
	Calculated uint16
	Received   uint16
	Reason     string
}

func (e *IntegrityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("fingerprint: corrupted packet: %s", e.Reason)
	}
	return fmt.Sprintf("fingerprint: corrupted packet: checksum mismatch: calculated=0x%04X, received=0x%04X",
		e.Calculated, e.Received)
}

// ProtocolError reports either an unexpected packet type in a response or a
// sensor-side failure signalled through a confirmation code.
type ProtocolError struct {
	Operation string
	Code      ConfirmationCode
	Reason    string // set instead of Code for packet-type violations
}

func (e *ProtocolError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("fingerprint: %s failed: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("fingerprint: %s failed: %s (0x%02X)",
		e.Operation, getConfirmationMessage(e.Code), byte(e.Code))
}

// TimeoutError reports that no complete frame arrived within the deadline.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("fingerprint: no response within %v", e.Timeout)
}

// ErrForeignAddress marks a structurally valid packet carrying another
// sensor's address. The read loop treats such packets as if nothing was read.
var ErrForeignAddress = errors.New("fingerprint: packet addressed to another sensor")

// IsTimeout returns true if the error is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsProtocolError returns true if the error is a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
