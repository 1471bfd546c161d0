package fingerprint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// Session defaults. 0xFFFFFFFF is the broadcast address and 0x00000000 the
// factory password of ZhianTec sensors.
const (
	DefaultAddress    uint32 = 0xFFFFFFFF
	DefaultPassword   uint32 = 0x00000000
	DefaultPacketSize        = 128
)

const (
	// softResetReadyByte is sent by the sensor once a soft reset completed.
	softResetReadyByte = 0x55
	// maxDeclaredPayload bounds inbound frames; the largest packet size the
	// protocol can negotiate is 256 data bytes.
	maxDeclaredPayload = 256
	// templateIndexPages is the number of pages of the slot usage bitmap.
	templateIndexPages = 4
)

// packetSizes maps the wire packet size code to the size in bytes.
var packetSizes = [4]int{32, 64, 128, 256}

// Config holds configuration parameters for a sensor session.
type Config struct {
	Address         uint32        // sensor bus address
	Password        uint32        // sensor password
	ResponseTimeout time.Duration // deadline for one complete response frame
	MaxPacketSize   int           // negotiated data packet size: 32, 64, 128 or 256
	MaxTransferSize int           // hard cap for reassembled multi-packet payloads
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Address:         DefaultAddress,
		Password:        DefaultPassword,
		ResponseTimeout: 2 * time.Second,
		MaxPacketSize:   DefaultPacketSize,
		MaxTransferSize: 64 * 1024,
	}
}

// FingerprintHandler implements the FingerprintApi interface over an injected
// Transporter. The sensor protocol is half-duplex with exactly one exchange
// in flight, so a handler must not be used from multiple goroutines without
// external serialization.
type FingerprintHandler struct {
	logger            io.Writer   // Logger for debug output
	transporter       Transporter // Byte stream to the sensor
	packager          *Packager   // Frame codec bound to the session address
	config            Config
	lastProtocolError *ProtocolError // Cache the last sensor-side failure
}

// NewFingerprintHandler creates a new handler for one sensor session.
// The transporter must already be open and correctly clocked.
func NewFingerprintHandler(transporter Transporter, config Config) (*FingerprintHandler, error) {
	if transporter == nil {
		return nil, fmt.Errorf("fingerprint: transporter cannot be nil")
	}
	if config.ResponseTimeout <= 0 {
		config.ResponseTimeout = DefaultConfig().ResponseTimeout
	}
	if config.MaxPacketSize == 0 {
		config.MaxPacketSize = DefaultPacketSize
	}
	if _, err := packetSizeCode(config.MaxPacketSize); err != nil {
		return nil, err
	}
	if config.MaxTransferSize <= 0 {
		config.MaxTransferSize = DefaultConfig().MaxTransferSize
	}
	return &FingerprintHandler{
		transporter: transporter,
		packager:    NewPackager(config.Address, config.MaxPacketSize),
		config:      config,
	}, nil
}

var _ FingerprintApi = (*FingerprintHandler)(nil)

// SetLogger sets the logger for the handler.
func (h *FingerprintHandler) SetLogger(logger io.Writer) {
	h.logger = logger
}

// GetLastProtocolError returns the last cached ProtocolError.
func (h *FingerprintHandler) GetLastProtocolError() *ProtocolError {
	return h.lastProtocolError
}

// packetSizeCode maps a packet size in bytes to its wire code.
func packetSizeCode(size int) (byte, error) {
	for code, s := range packetSizes {
		if s == size {
			return byte(code), nil
		}
	}
	return 0, &ValidationError{Field: "packet size", Reason: fmt.Sprintf("%d is not one of 32, 64, 128, 256", size)}
}

// writePacket encodes and writes one frame.
func (h *FingerprintHandler) writePacket(packetType PacketType, payload []byte) error {
	frame, err := h.packager.Pack(packetType, payload)
	if err != nil {
		return err
	}
	if h.logger != nil {
		fmt.Fprintf(h.logger, "fingerprint: sending %v frame: % X\n", packetType, frame)
	}
	if err := h.transporter.WriteRaw(frame); err != nil {
		return fmt.Errorf("fingerprint: failed to write frame: %w", err)
	}
	return nil
}

// readPacket accumulates bytes from the transporter until one complete frame
// decodes or the timeout elapses. Frames addressed to another sensor are
// dropped and the loop continues; a failed read never leaves partial state
// behind, so the session stays usable after any error.
func (h *FingerprintHandler) readPacket(timeout time.Duration) (*Packet, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 0, frameOverhead+h.config.MaxPacketSize)
	total := 0 // declared frame size, 0 while the header is incomplete

	for {
		if total == 0 && len(buf) >= headerSize {
			n, err := FrameSize(buf)
			if err != nil {
				return nil, err
			}
			if n > frameOverhead+maxDeclaredPayload {
				return nil, &FramingError{Reason: fmt.Sprintf("declared frame size %d exceeds protocol maximum", n)}
			}
			total = n
		}
		if total > 0 && len(buf) >= total {
			packet, err := h.packager.Unpack(buf[:total])
			if err != nil {
				if errors.Is(err, ErrForeignAddress) {
					if h.logger != nil {
						fmt.Fprintf(h.logger, "fingerprint: skipping frame for foreign address: % X\n", buf[:total])
					}
					buf = append(buf[:0], buf[total:]...)
					total = 0
					continue
				}
				return nil, err
			}
			if h.logger != nil {
				fmt.Fprintf(h.logger, "fingerprint: received %v frame, payload: % X\n", packet.Type, packet.Payload)
			}
			return packet, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TimeoutError{Timeout: timeout}
		}
		want := headerSize - len(buf)
		if total > 0 {
			want = total - len(buf)
		}
		chunk, err := h.transporter.ReadRaw(want, remaining)
		if err != nil {
			var te *TimeoutError
			if errors.As(err, &te) {
				return nil, &TimeoutError{Timeout: timeout}
			}
			return nil, fmt.Errorf("fingerprint: failed to read frame: %w", err)
		}
		buf = append(buf, chunk...)
	}
}

// exchange drives one command/response cycle: write the COMMAND frame, read
// the ACK frame, split off the confirmation code. Interpretation of non-OK
// codes is left to the calling command.
func (h *FingerprintHandler) exchange(operation string, payload []byte) (ConfirmationCode, []byte, error) {
	if err := h.writePacket(PacketTypeCommand, payload); err != nil {
		return 0, nil, err
	}
	packet, err := h.readPacket(h.config.ResponseTimeout)
	if err != nil {
		return 0, nil, err
	}
	if packet.Type != PacketTypeAck {
		return 0, nil, h.protocolFailure(&ProtocolError{
			Operation: operation,
			Reason:    fmt.Sprintf("expected an ack packet, got %v", packet.Type),
		})
	}
	if len(packet.Payload) == 0 {
		return 0, nil, &FramingError{Reason: "ack packet carries no confirmation code"}
	}
	return ConfirmationCode(packet.Payload[0]), packet.Payload[1:], nil
}

// confirmationError caches and returns a sensor-side failure code.
func (h *FingerprintHandler) confirmationError(operation string, code ConfirmationCode) error {
	return h.protocolFailure(&ProtocolError{Operation: operation, Code: code})
}

// protocolFailure sets and logs the last ProtocolError.
func (h *FingerprintHandler) protocolFailure(perr *ProtocolError) error {
	h.lastProtocolError = perr
	if h.logger != nil {
		fmt.Fprintf(h.logger, "fingerprint: %v\n", perr)
	}
	return perr
}

// VerifyPassword checks the session password against the sensor. It returns
// false without an error when the sensor reports a wrong password.
func (h *FingerprintHandler) VerifyPassword() (bool, error) {
	payload := make([]byte, 0, 5)
	payload = append(payload, byte(CmdVerifyPassword))
	payload = binary.BigEndian.AppendUint32(payload, h.config.Password)

	code, _, err := h.exchange("verifyPassword", payload)
	if err != nil {
		return false, err
	}
	switch code {
	case AckOK:
		return true, nil
	case AckErrWrongPassword:
		return false, nil
	default:
		return false, h.confirmationError("verifyPassword", code)
	}
}

// SetPassword changes the sensor password. The session password is only
// updated after the sensor acknowledged success.
func (h *FingerprintHandler) SetPassword(password uint32) error {
	payload := make([]byte, 0, 5)
	payload = append(payload, byte(CmdSetPassword))
	payload = binary.BigEndian.AppendUint32(payload, password)

	code, _, err := h.exchange("setPassword", payload)
	if err != nil {
		return err
	}
	if code != AckOK {
		return h.confirmationError("setPassword", code)
	}
	h.config.Password = password
	return nil
}

// SetAddress changes the sensor bus address. The session address is only
// updated after the sensor acknowledged success.
func (h *FingerprintHandler) SetAddress(address uint32) error {
	payload := make([]byte, 0, 5)
	payload = append(payload, byte(CmdSetAddress))
	payload = binary.BigEndian.AppendUint32(payload, address)

	code, _, err := h.exchange("setAddress", payload)
	if err != nil {
		return err
	}
	if code != AckOK {
		return h.confirmationError("setAddress", code)
	}
	h.config.Address = address
	h.packager.SetAddress(address)
	return nil
}

// SetSystemParameter writes one sensor register. Values are range-checked
// before any byte is sent. A packet size change is reflected in the session
// configuration once acknowledged.
func (h *FingerprintHandler) SetSystemParameter(param SystemParameter, value byte) error {
	switch param {
	case ParameterBaudRate:
		if value < 1 || value > 12 {
			return &ValidationError{Field: "baud rate code", Reason: fmt.Sprintf("%d is outside [1,12]", value)}
		}
	case ParameterSecurityLevel:
		if value < 1 || value > 5 {
			return &ValidationError{Field: "security level", Reason: fmt.Sprintf("%d is outside [1,5]", value)}
		}
	case ParameterPacketSize:
		if value > 3 {
			return &ValidationError{Field: "packet size code", Reason: fmt.Sprintf("%d is outside [0,3]", value)}
		}
	default:
		return &ValidationError{Field: "parameter number", Reason: fmt.Sprintf("%d is not a writable register", param)}
	}

	code, _, err := h.exchange("setSystemParameter", []byte{byte(CmdSetSystemParameter), byte(param), value})
	if err != nil {
		return err
	}
	if code != AckOK {
		return h.confirmationError("setSystemParameter", code)
	}
	if param == ParameterPacketSize {
		h.config.MaxPacketSize = packetSizes[value]
		h.packager.SetMaxPayload(h.config.MaxPacketSize)
	}
	return nil
}

// SetBaudRate sets the UART speed. The rate must be a multiple of 9600 up to
// 115200. The new rate takes effect on the sensor side only; reopening the
// port at the new speed is the caller's concern.
func (h *FingerprintHandler) SetBaudRate(baudRate int) error {
	if baudRate <= 0 || baudRate%9600 != 0 || baudRate/9600 > 12 {
		return &ValidationError{Field: "baud rate", Reason: fmt.Sprintf("%d is not a multiple of 9600 up to 115200", baudRate)}
	}
	return h.SetSystemParameter(ParameterBaudRate, byte(baudRate/9600))
}

// SetSecurityLevel sets the matching threshold, 1 (lowest) to 5 (highest).
func (h *FingerprintHandler) SetSecurityLevel(level int) error {
	if level < 1 || level > 5 {
		return &ValidationError{Field: "security level", Reason: fmt.Sprintf("%d is outside [1,5]", level)}
	}
	return h.SetSystemParameter(ParameterSecurityLevel, byte(level))
}

// SetMaxPacketSize sets the data packet size. 32, 64, 128 and 256 bytes are
// supported.
func (h *FingerprintHandler) SetMaxPacketSize(size int) error {
	code, err := packetSizeCode(size)
	if err != nil {
		return err
	}
	return h.SetSystemParameter(ParameterPacketSize, code)
}

// GetSystemParameters reads the sensor's 16-byte parameter block.
func (h *FingerprintHandler) GetSystemParameters() (SystemParameters, error) {
	code, data, err := h.exchange("getSystemParameters", []byte{byte(CmdGetSystemParameters)})
	if err != nil {
		return SystemParameters{}, err
	}
	if code != AckOK {
		return SystemParameters{}, h.confirmationError("getSystemParameters", code)
	}
	if len(data) < 16 {
		return SystemParameters{}, &FramingError{Reason: fmt.Sprintf("parameter block is %d bytes, expected 16", len(data))}
	}
	return SystemParameters{
		StatusRegister:  binary.BigEndian.Uint16(data[0:2]),
		SystemID:        binary.BigEndian.Uint16(data[2:4]),
		StorageCapacity: binary.BigEndian.Uint16(data[4:6]),
		SecurityLevel:   binary.BigEndian.Uint16(data[6:8]),
		Address:         binary.BigEndian.Uint32(data[8:12]),
		PacketSizeCode:  binary.BigEndian.Uint16(data[12:14]),
		BaudRateCode:    binary.BigEndian.Uint16(data[14:16]),
	}, nil
}

// GetStorageCapacity returns the number of template slots.
func (h *FingerprintHandler) GetStorageCapacity() (int, error) {
	params, err := h.GetSystemParameters()
	if err != nil {
		return 0, err
	}
	return int(params.StorageCapacity), nil
}

// GetSecurityLevel returns the matching threshold.
func (h *FingerprintHandler) GetSecurityLevel() (int, error) {
	params, err := h.GetSystemParameters()
	if err != nil {
		return 0, err
	}
	return int(params.SecurityLevel), nil
}

// GetMaxPacketSize returns the sensor's data packet size and syncs the
// session configuration with it.
func (h *FingerprintHandler) GetMaxPacketSize() (int, error) {
	params, err := h.GetSystemParameters()
	if err != nil {
		return 0, err
	}
	if int(params.PacketSizeCode) >= len(packetSizes) {
		return 0, &FramingError{Reason: fmt.Sprintf("unknown packet size code %d", params.PacketSizeCode)}
	}
	size := packetSizes[params.PacketSizeCode]
	h.config.MaxPacketSize = size
	h.packager.SetMaxPayload(size)
	return size, nil
}

// GetBaudRate returns the UART speed.
func (h *FingerprintHandler) GetBaudRate() (int, error) {
	params, err := h.GetSystemParameters()
	if err != nil {
		return 0, err
	}
	return int(params.BaudRateCode) * 9600, nil
}

// GetTemplateIndex returns the slot usage bitmap of one index page, one bool
// per template position, least significant bit first.
func (h *FingerprintHandler) GetTemplateIndex(page int) ([]bool, error) {
	if page < 0 || page >= templateIndexPages {
		return nil, &ValidationError{Field: "index page", Reason: fmt.Sprintf("%d is outside [0,3]", page)}
	}
	code, data, err := h.exchange("getTemplateIndex", []byte{byte(CmdTemplateIndex), byte(page)})
	if err != nil {
		return nil, err
	}
	if code != AckOK {
		return nil, h.confirmationError("getTemplateIndex", code)
	}
	index := make([]bool, 0, len(data)*8)
	for _, element := range data {
		for bit := 0; bit < 8; bit++ {
			index = append(index, element&(1<<bit) != 0)
		}
	}
	return index, nil
}

// GetTemplateCount returns the number of stored templates.
func (h *FingerprintHandler) GetTemplateCount() (uint16, error) {
	code, data, err := h.exchange("getTemplateCount", []byte{byte(CmdTemplateCount)})
	if err != nil {
		return 0, err
	}
	if code != AckOK {
		return 0, h.confirmationError("getTemplateCount", code)
	}
	if len(data) < 2 {
		return 0, &FramingError{Reason: fmt.Sprintf("template count payload is %d bytes, expected 2", len(data))}
	}
	return binary.BigEndian.Uint16(data[0:2]), nil
}

// ReadImage captures a finger image into the sensor's image buffer. It
// returns false without an error when no finger rests on the sensor.
func (h *FingerprintHandler) ReadImage() (bool, error) {
	code, _, err := h.exchange("readImage", []byte{byte(CmdReadImage)})
	if err != nil {
		return false, err
	}
	switch code {
	case AckOK:
		return true, nil
	case AckErrNoFinger:
		return false, nil
	default:
		return false, h.confirmationError("readImage", code)
	}
}

// DownloadImage transfers the sensor's image buffer to the host.
func (h *FingerprintHandler) DownloadImage() ([]byte, error) {
	code, _, err := h.exchange("downloadImage", []byte{byte(CmdDownloadImage)})
	if err != nil {
		return nil, err
	}
	if code != AckOK {
		return nil, h.confirmationError("downloadImage", code)
	}
	return h.downloadBuffer()
}

// ConvertImage extracts characteristics from the image buffer into the given
// char buffer.
func (h *FingerprintHandler) ConvertImage(buffer CharBuffer) error {
	if !buffer.isValid() {
		return &ValidationError{Field: "char buffer", Reason: fmt.Sprintf("%d is not buffer 1 or 2", buffer)}
	}
	code, _, err := h.exchange("convertImage", []byte{byte(CmdConvertImage), byte(buffer)})
	if err != nil {
		return err
	}
	if code != AckOK {
		return h.confirmationError("convertImage", code)
	}
	return nil
}

// CreateTemplate merges char buffers 1 and 2 into one template, stored back
// in both buffers. It returns false without an error when the two sets of
// characteristics do not belong to the same finger.
func (h *FingerprintHandler) CreateTemplate() (bool, error) {
	code, _, err := h.exchange("createTemplate", []byte{byte(CmdCreateTemplate)})
	if err != nil {
		return false, err
	}
	switch code {
	case AckOK:
		return true, nil
	case AckErrCharacteristicsMismatch:
		return false, nil
	default:
		return false, h.confirmationError("createTemplate", code)
	}
}

// StoreTemplate saves the template in the given char buffer at a position.
// Position -1 picks the first free slot from the template index. The chosen
// position is returned.
func (h *FingerprintHandler) StoreTemplate(position int, buffer CharBuffer) (uint16, error) {
	if !buffer.isValid() {
		return 0, &ValidationError{Field: "char buffer", Reason: fmt.Sprintf("%d is not buffer 1 or 2", buffer)}
	}

	if position == -1 {
		free, err := h.findFreePosition()
		if err != nil {
			return 0, err
		}
		position = free
	}

	capacity, err := h.GetStorageCapacity()
	if err != nil {
		return 0, err
	}
	if position < 0 || position >= capacity {
		return 0, &ValidationError{Field: "position", Reason: fmt.Sprintf("%d is outside [0,%d)", position, capacity)}
	}

	payload := make([]byte, 0, 4)
	payload = append(payload, byte(CmdStoreTemplate), byte(buffer))
	payload = binary.BigEndian.AppendUint16(payload, uint16(position))

	code, _, err := h.exchange("storeTemplate", payload)
	if err != nil {
		return 0, err
	}
	if code != AckOK {
		return 0, h.confirmationError("storeTemplate", code)
	}
	return uint16(position), nil
}

// findFreePosition scans the template index pages for the first unused slot.
func (h *FingerprintHandler) findFreePosition() (int, error) {
	for page := 0; page < templateIndexPages; page++ {
		index, err := h.GetTemplateIndex(page)
		if err != nil {
			return 0, err
		}
		for i, used := range index {
			if !used {
				return page*len(index) + i, nil
			}
		}
	}
	return 0, &ValidationError{Field: "position", Reason: "template library is full"}
}

// SearchTemplate scans the template database for the characteristics in the
// given char buffer. count <= 0 searches the whole database. A no-match
// outcome is returned as Found false, not as an error.
func (h *FingerprintHandler) SearchTemplate(buffer CharBuffer, start int, count int) (SearchResult, error) {
	if !buffer.isValid() {
		return SearchResult{}, &ValidationError{Field: "char buffer", Reason: fmt.Sprintf("%d is not buffer 1 or 2", buffer)}
	}
	if start < 0 {
		return SearchResult{}, &ValidationError{Field: "start position", Reason: fmt.Sprintf("%d is negative", start)}
	}

	if count <= 0 {
		capacity, err := h.GetStorageCapacity()
		if err != nil {
			return SearchResult{}, err
		}
		count = capacity
	}

	payload := make([]byte, 0, 6)
	payload = append(payload, byte(CmdSearchTemplate), byte(buffer))
	payload = binary.BigEndian.AppendUint16(payload, uint16(start))
	payload = binary.BigEndian.AppendUint16(payload, uint16(count))

	code, data, err := h.exchange("searchTemplate", payload)
	if err != nil {
		return SearchResult{}, err
	}
	switch code {
	case AckOK:
		if len(data) < 4 {
			return SearchResult{}, &FramingError{Reason: fmt.Sprintf("search result payload is %d bytes, expected 4", len(data))}
		}
		return SearchResult{
			Found:    true,
			Position: binary.BigEndian.Uint16(data[0:2]),
			Score:    binary.BigEndian.Uint16(data[2:4]),
		}, nil
	case AckErrNoTemplateFound:
		return SearchResult{}, nil
	default:
		return SearchResult{}, h.confirmationError("searchTemplate", code)
	}
}

// LoadTemplate loads the stored template at a position into a char buffer.
func (h *FingerprintHandler) LoadTemplate(position int, buffer CharBuffer) error {
	if !buffer.isValid() {
		return &ValidationError{Field: "char buffer", Reason: fmt.Sprintf("%d is not buffer 1 or 2", buffer)}
	}
	capacity, err := h.GetStorageCapacity()
	if err != nil {
		return err
	}
	if position < 0 || position >= capacity {
		return &ValidationError{Field: "position", Reason: fmt.Sprintf("%d is outside [0,%d)", position, capacity)}
	}

	payload := make([]byte, 0, 4)
	payload = append(payload, byte(CmdLoadTemplate), byte(buffer))
	payload = binary.BigEndian.AppendUint16(payload, uint16(position))

	code, _, err := h.exchange("loadTemplate", payload)
	if err != nil {
		return err
	}
	if code != AckOK {
		return h.confirmationError("loadTemplate", code)
	}
	return nil
}

// DeleteTemplate removes count stored templates starting at a position. It
// returns false without an error when the sensor declined the deletion.
func (h *FingerprintHandler) DeleteTemplate(position int, count int) (bool, error) {
	capacity, err := h.GetStorageCapacity()
	if err != nil {
		return false, err
	}
	if position < 0 || position >= capacity {
		return false, &ValidationError{Field: "position", Reason: fmt.Sprintf("%d is outside [0,%d)", position, capacity)}
	}
	if count < 1 || count > capacity-position {
		return false, &ValidationError{Field: "count", Reason: fmt.Sprintf("%d is outside [1,%d]", count, capacity-position)}
	}

	payload := make([]byte, 0, 5)
	payload = append(payload, byte(CmdDeleteTemplate))
	payload = binary.BigEndian.AppendUint16(payload, uint16(position))
	payload = binary.BigEndian.AppendUint16(payload, uint16(count))

	code, _, err := h.exchange("deleteTemplate", payload)
	if err != nil {
		return false, err
	}
	switch code {
	case AckOK:
		return true, nil
	case AckErrDeleteTemplate:
		return false, nil
	default:
		return false, h.confirmationError("deleteTemplate", code)
	}
}

// ClearDatabase removes all stored templates. It returns false without an
// error when the sensor declined the operation.
func (h *FingerprintHandler) ClearDatabase() (bool, error) {
	code, _, err := h.exchange("clearDatabase", []byte{byte(CmdClearDatabase)})
	if err != nil {
		return false, err
	}
	switch code {
	case AckOK:
		return true, nil
	case AckErrClearDatabase:
		return false, nil
	default:
		return false, h.confirmationError("clearDatabase", code)
	}
}

// CompareCharacteristics scores char buffer 1 against char buffer 2. A score
// of 0 means the fingers do not match.
func (h *FingerprintHandler) CompareCharacteristics() (uint16, error) {
	code, data, err := h.exchange("compareCharacteristics", []byte{byte(CmdCompareCharacteristics)})
	if err != nil {
		return 0, err
	}
	switch code {
	case AckOK:
		if len(data) < 2 {
			return 0, &FramingError{Reason: fmt.Sprintf("accuracy score payload is %d bytes, expected 2", len(data))}
		}
		return binary.BigEndian.Uint16(data[0:2]), nil
	case AckErrNotMatching:
		return 0, nil
	default:
		return 0, h.confirmationError("compareCharacteristics", code)
	}
}

// UploadCharacteristics writes a characteristics blob into a char buffer and
// verifies it by reading it back.
func (h *FingerprintHandler) UploadCharacteristics(buffer CharBuffer, data []byte) error {
	if !buffer.isValid() {
		return &ValidationError{Field: "char buffer", Reason: fmt.Sprintf("%d is not buffer 1 or 2", buffer)}
	}
	if len(data) == 0 {
		return &ValidationError{Field: "characteristics", Reason: "data is required"}
	}

	packetSize, err := h.GetMaxPacketSize()
	if err != nil {
		return err
	}

	code, _, err := h.exchange("uploadCharacteristics", []byte{byte(CmdUploadCharacteristics), byte(buffer)})
	if err != nil {
		return err
	}
	if code != AckOK {
		return h.confirmationError("uploadCharacteristics", code)
	}

	if err := h.uploadBuffer(data, packetSize); err != nil {
		return err
	}

	readback, err := h.DownloadCharacteristics(buffer)
	if err != nil {
		return fmt.Errorf("fingerprint: upload verification failed: %w", err)
	}
	if !bytes.Equal(readback, data) {
		return &IntegrityError{Reason: "uploaded characteristics do not read back identically"}
	}
	return nil
}

// DownloadCharacteristics reads the characteristics blob held in a char
// buffer.
func (h *FingerprintHandler) DownloadCharacteristics(buffer CharBuffer) ([]byte, error) {
	if !buffer.isValid() {
		return nil, &ValidationError{Field: "char buffer", Reason: fmt.Sprintf("%d is not buffer 1 or 2", buffer)}
	}
	code, _, err := h.exchange("downloadCharacteristics", []byte{byte(CmdDownloadCharacteristics), byte(buffer)})
	if err != nil {
		return nil, err
	}
	if code != AckOK {
		return nil, h.confirmationError("downloadCharacteristics", code)
	}
	return h.downloadBuffer()
}

// GenerateRandomNumber asks the sensor for a 32-bit random value.
func (h *FingerprintHandler) GenerateRandomNumber() (uint32, error) {
	code, data, err := h.exchange("generateRandomNumber", []byte{byte(CmdGenerateRandomNumber)})
	if err != nil {
		return 0, err
	}
	if code != AckOK {
		return 0, h.confirmationError("generateRandomNumber", code)
	}
	if len(data) < 4 {
		return 0, &FramingError{Reason: fmt.Sprintf("random number payload is %d bytes, expected 4", len(data))}
	}
	return binary.BigEndian.Uint32(data[0:4]), nil
}

// SoftReset reboots the sensor and waits for the ready byte it emits once
// the reset completed.
func (h *FingerprintHandler) SoftReset() error {
	code, _, err := h.exchange("softReset", []byte{byte(CmdSoftReset)})
	if err != nil {
		return err
	}
	if code != AckOK {
		return h.confirmationError("softReset", code)
	}

	deadline := time.Now().Add(h.config.ResponseTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{Timeout: h.config.ResponseTimeout}
		}
		chunk, err := h.transporter.ReadRaw(1, remaining)
		if err != nil {
			var te *TimeoutError
			if errors.As(err, &te) {
				return &TimeoutError{Timeout: h.config.ResponseTimeout}
			}
			return fmt.Errorf("fingerprint: failed to read reset ready byte: %w", err)
		}
		if len(chunk) > 0 && chunk[len(chunk)-1] == softResetReadyByte {
			return nil
		}
	}
}

// CheckSensor reports whether the sensor is in a working state.
func (h *FingerprintHandler) CheckSensor() (bool, error) {
	code, _, err := h.exchange("checkSensor", []byte{byte(CmdCheckSensor)})
	if err != nil {
		return false, err
	}
	return code == AckOK, nil
}

// Handshake probes the sensor.
func (h *FingerprintHandler) Handshake() (bool, error) {
	code, _, err := h.exchange("handshake", []byte{byte(CmdHandshake)})
	if err != nil {
		return false, err
	}
	return code == AckOK, nil
}

// CancelInstruction aborts the last instruction sent to the sensor.
func (h *FingerprintHandler) CancelInstruction() error {
	code, _, err := h.exchange("cancelInstruction", []byte{byte(CmdCancelInstruction)})
	if err != nil {
		return err
	}
	if code != AckOK {
		return h.confirmationError("cancelInstruction", code)
	}
	return nil
}

// LedOn configures the LED ring. flashSpeed runs from 0 (fast) to 255
// (slow); flashCount 0 means infinite.
func (h *FingerprintHandler) LedOn(color LEDColor, control LEDControl, flashSpeed byte, flashCount byte) error {
	if !color.isValid() {
		return &ValidationError{Field: "led color", Reason: fmt.Sprintf("0x%02X is not a known color", byte(color))}
	}
	if !control.isValid() {
		return &ValidationError{Field: "led control", Reason: fmt.Sprintf("0x%02X is not a known control code", byte(control))}
	}
	return h.ledConfig(control, flashSpeed, color, flashCount)
}

// LedOff turns the LED ring off.
func (h *FingerprintHandler) LedOff() error {
	return h.ledConfig(LEDOff, 0, 0, 0)
}

func (h *FingerprintHandler) ledConfig(control LEDControl, flashSpeed byte, color LEDColor, flashCount byte) error {
	code, _, err := h.exchange("ledConfig", []byte{byte(CmdLedConfig), byte(control), flashSpeed, byte(color), flashCount})
	if err != nil {
		return err
	}
	if code != AckOK {
		return h.confirmationError("ledConfig", code)
	}
	return nil
}
