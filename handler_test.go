package fingerprint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTransporter replays scripted sensor responses. Each WriteRaw records
// the frame and releases the next queued response into the inbound stream,
// so one queue entry lines up with one outgoing frame. ReadRaw times out
// immediately once the stream runs dry.
type stubTransporter struct {
	writes    [][]byte
	responses [][]byte
	rx        []byte
}

func newStubTransporter() *stubTransporter {
	return &stubTransporter{}
}

// queue appends a response released by the next outgoing frame. Use nil for
// outgoing frames the sensor does not answer, such as data chunks.
func (s *stubTransporter) queue(response []byte) {
	s.responses = append(s.responses, response)
}

func (s *stubTransporter) WriteRaw(data []byte) error {
	frame := make([]byte, len(data))
	copy(frame, data)
	s.writes = append(s.writes, frame)
	if len(s.responses) > 0 {
		s.rx = append(s.rx, s.responses[0]...)
		s.responses = s.responses[1:]
	}
	return nil
}

func (s *stubTransporter) ReadRaw(maxLen int, timeout time.Duration) ([]byte, error) {
	if len(s.rx) == 0 {
		return nil, &TimeoutError{Timeout: timeout}
	}
	n := maxLen
	if n > len(s.rx) {
		n = len(s.rx)
	}
	data := s.rx[:n]
	s.rx = s.rx[n:]
	return data, nil
}

func newTestHandler(t *testing.T, transporter Transporter) *FingerprintHandler {
	t.Helper()
	config := DefaultConfig()
	config.ResponseTimeout = 50 * time.Millisecond
	h, err := NewFingerprintHandler(transporter, config)
	if err != nil {
		t.Fatalf("NewFingerprintHandler failed: %v", err)
	}
	return h
}

// ackResponse builds an ACK frame for the default session address.
func ackResponse(t *testing.T, payload ...byte) []byte {
	t.Helper()
	p := NewPackager(DefaultAddress, 256)
	return mustPack(t, p, PacketTypeAck, payload)
}

// paramsResponse builds a GetSystemParameters ACK with the 16-byte block.
func paramsResponse(t *testing.T, capacity uint16, security uint16, sizeCode uint16, baudCode uint16) []byte {
	t.Helper()
	payload := []byte{
		0x00,       // confirmation code
		0x00, 0x00, // status register
		0x00, 0x09, // system id
		byte(capacity >> 8), byte(capacity),
		byte(security >> 8), byte(security),
		0xFF, 0xFF, 0xFF, 0xFF, // address
		byte(sizeCode >> 8), byte(sizeCode),
		byte(baudCode >> 8), byte(baudCode),
	}
	return ackResponse(t, payload...)
}

func TestNewFingerprintHandler_Validation(t *testing.T) {
	_, err := NewFingerprintHandler(nil, DefaultConfig())
	require.Error(t, err)

	config := DefaultConfig()
	config.MaxPacketSize = 100
	_, err = NewFingerprintHandler(newStubTransporter(), config)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	// zero values fall back to defaults
	h, err := NewFingerprintHandler(newStubTransporter(), Config{Address: DefaultAddress})
	require.NoError(t, err)
	assert.Equal(t, DefaultPacketSize, h.config.MaxPacketSize)
	assert.Equal(t, DefaultConfig().ResponseTimeout, h.config.ResponseTimeout)
	assert.Equal(t, DefaultConfig().MaxTransferSize, h.config.MaxTransferSize)
}

func TestVerifyPassword(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK)))

	ok, err := h.VerifyPassword()
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, stub.writes, 1)
	p := NewPackager(DefaultAddress, 256)
	packet, err := p.Unpack(stub.writes[0])
	require.NoError(t, err)
	assert.Equal(t, PacketTypeCommand, packet.Type)
	assertBytesEqual(t, []byte{0x13, 0x00, 0x00, 0x00, 0x00}, packet.Payload)
}

func TestVerifyPassword_Wrong(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckErrWrongPassword)))

	ok, err := h.VerifyPassword()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_SensorFailure(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckErrCommunication)))

	_, err := h.VerifyPassword()
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, AckErrCommunication, perr.Code)
	assert.Equal(t, perr, h.GetLastProtocolError())
}

func TestExchange_NonAckResponse(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	p := NewPackager(DefaultAddress, 256)
	stub.queue(mustPack(t, p, PacketTypeData, []byte{0x00}))

	_, err := h.VerifyPassword()
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "expected an ack packet")
}

func TestExchange_ForeignAddressSkipped(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)

	foreign := NewPackager(0x11223344, 256)
	response := mustPack(t, foreign, PacketTypeAck, []byte{byte(AckErrCommunication)})
	response = append(response, ackResponse(t, byte(AckOK))...)
	stub.queue(response)

	ok, err := h.VerifyPassword()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExchange_TimeoutThenRecover(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)

	// no response queued for the first command
	stub.queue(nil)
	_, err := h.VerifyPassword()
	require.True(t, IsTimeout(err))

	stub.queue(ackResponse(t, byte(AckOK)))
	ok, err := h.VerifyPassword()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetPassword(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK)))

	require.NoError(t, h.SetPassword(0xDEADBEEF))
	assert.Equal(t, uint32(0xDEADBEEF), h.config.Password)

	p := NewPackager(DefaultAddress, 256)
	packet, err := p.Unpack(stub.writes[0])
	require.NoError(t, err)
	assertBytesEqual(t, []byte{0x12, 0xDE, 0xAD, 0xBE, 0xEF}, packet.Payload)
}

func TestSetAddress_UpdatesSession(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK)))

	require.NoError(t, h.SetAddress(0x0000AB01))
	assert.Equal(t, uint32(0x0000AB01), h.packager.Address())

	// subsequent responses must carry the new address
	newAddr := NewPackager(0x0000AB01, 256)
	stub.queue(mustPack(t, newAddr, PacketTypeAck, []byte{byte(AckOK)}))
	ok, err := h.Handshake()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetSystemParameter_Validation(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)

	testCases := []struct {
		name  string
		param SystemParameter
		value byte
	}{
		{name: "baud rate 0", param: ParameterBaudRate, value: 0},
		{name: "baud rate 13", param: ParameterBaudRate, value: 13},
		{name: "security 0", param: ParameterSecurityLevel, value: 0},
		{name: "security 6", param: ParameterSecurityLevel, value: 6},
		{name: "packet size 4", param: ParameterPacketSize, value: 4},
		{name: "unknown register", param: SystemParameter(9), value: 1},
	}
	for _, tc := range testCases {
		err := h.SetSystemParameter(tc.param, tc.value)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, tc.name)
	}
	// validation failures must not touch the wire
	assert.Empty(t, stub.writes)
}

func TestSetMaxPacketSize(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK)))

	require.NoError(t, h.SetMaxPacketSize(256))
	assert.Equal(t, 256, h.config.MaxPacketSize)
	assert.Equal(t, 256, h.packager.MaxPayload())

	p := NewPackager(DefaultAddress, 256)
	packet, err := p.Unpack(stub.writes[0])
	require.NoError(t, err)
	assertBytesEqual(t, []byte{0x0E, 0x06, 0x03}, packet.Payload)

	err = h.SetMaxPacketSize(48)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSetBaudRate(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK)))

	require.NoError(t, h.SetBaudRate(57600))
	p := NewPackager(DefaultAddress, 256)
	packet, err := p.Unpack(stub.writes[0])
	require.NoError(t, err)
	assertBytesEqual(t, []byte{0x0E, 0x04, 0x06}, packet.Payload)

	var verr *ValidationError
	require.ErrorAs(t, h.SetBaudRate(9601), &verr)
	require.ErrorAs(t, h.SetBaudRate(0), &verr)
	require.ErrorAs(t, h.SetBaudRate(124800), &verr)
}

func TestGetSystemParameters(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(paramsResponse(t, 1000, 3, 2, 6))

	params, err := h.GetSystemParameters()
	require.NoError(t, err)
	assert.Equal(t, uint16(1000), params.StorageCapacity)
	assert.Equal(t, uint16(3), params.SecurityLevel)
	assert.Equal(t, uint32(0xFFFFFFFF), params.Address)
	assert.Equal(t, uint16(2), params.PacketSizeCode)
	assert.Equal(t, uint16(6), params.BaudRateCode)
}

func TestGetMaxPacketSize_SyncsSession(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(paramsResponse(t, 1000, 3, 0, 6))

	size, err := h.GetMaxPacketSize()
	require.NoError(t, err)
	assert.Equal(t, 32, size)
	assert.Equal(t, 32, h.config.MaxPacketSize)
	assert.Equal(t, 32, h.packager.MaxPayload())
}

func TestGetBaudRate(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(paramsResponse(t, 1000, 3, 2, 12))

	baud, err := h.GetBaudRate()
	require.NoError(t, err)
	assert.Equal(t, 115200, baud)
}

func TestGetTemplateIndex(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	// 0x05 = slots 0 and 2 used, 0x80 = slot 15 used
	stub.queue(ackResponse(t, byte(AckOK), 0x05, 0x80))

	index, err := h.GetTemplateIndex(0)
	require.NoError(t, err)
	require.Len(t, index, 16)
	assert.True(t, index[0])
	assert.False(t, index[1])
	assert.True(t, index[2])
	assert.True(t, index[15])
	assert.False(t, index[14])

	_, err = h.GetTemplateIndex(4)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestGetTemplateCount(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK), 0x01, 0x2C))

	count, err := h.GetTemplateCount()
	require.NoError(t, err)
	assert.Equal(t, uint16(300), count)
}

func TestGetTemplateCount_SensorFailure(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckErrCommunication), 0x00, 0x00))

	_, err := h.GetTemplateCount()
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestReadImage(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)

	stub.queue(ackResponse(t, byte(AckOK)))
	ok, err := h.ReadImage()
	require.NoError(t, err)
	assert.True(t, ok)

	stub.queue(ackResponse(t, byte(AckErrNoFinger)))
	ok, err = h.ReadImage()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDownloadImage(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)

	p := NewPackager(DefaultAddress, 256)
	response := ackResponse(t, byte(AckOK))
	response = append(response, mustPack(t, p, PacketTypeData, []byte{0x11, 0x22})...)
	response = append(response, mustPack(t, p, PacketTypeEndOfData, []byte{0x33})...)
	stub.queue(response)

	image, err := h.DownloadImage()
	require.NoError(t, err)
	assertBytesEqual(t, []byte{0x11, 0x22, 0x33}, image)
}

func TestConvertImage(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK)))

	require.NoError(t, h.ConvertImage(CharBuffer1))

	p := NewPackager(DefaultAddress, 256)
	packet, err := p.Unpack(stub.writes[0])
	require.NoError(t, err)
	assertBytesEqual(t, []byte{0x02, 0x01}, packet.Payload)

	var verr *ValidationError
	require.ErrorAs(t, h.ConvertImage(CharBuffer(3)), &verr)
}

func TestCreateTemplate_Mismatch(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckErrCharacteristicsMismatch)))

	ok, err := h.CreateTemplate()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreTemplate(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(paramsResponse(t, 1000, 3, 2, 6)) // capacity check
	stub.queue(ackResponse(t, byte(AckOK)))      // store

	position, err := h.StoreTemplate(5, CharBuffer2)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), position)

	p := NewPackager(DefaultAddress, 256)
	packet, err := p.Unpack(stub.writes[1])
	require.NoError(t, err)
	assertBytesEqual(t, []byte{0x06, 0x02, 0x00, 0x05}, packet.Payload)
}

func TestStoreTemplate_AutoPosition(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	// page 0 bitmap: slots 0..2 used, slot 3 free
	stub.queue(ackResponse(t, byte(AckOK), 0x07))
	stub.queue(paramsResponse(t, 1000, 3, 2, 6))
	stub.queue(ackResponse(t, byte(AckOK)))

	position, err := h.StoreTemplate(-1, CharBuffer1)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), position)
}

func TestStoreTemplate_OutOfRange(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(paramsResponse(t, 100, 3, 2, 6))

	_, err := h.StoreTemplate(100, CharBuffer1)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	// only the capacity query hit the wire
	assert.Len(t, stub.writes, 1)
}

func TestSearchTemplate_Found(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK), 0x00, 0x07, 0x00, 0x60))

	result, err := h.SearchTemplate(CharBuffer1, 0, 100)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, uint16(7), result.Position)
	assert.Equal(t, uint16(0x60), result.Score)

	p := NewPackager(DefaultAddress, 256)
	packet, err := p.Unpack(stub.writes[0])
	require.NoError(t, err)
	assertBytesEqual(t, []byte{0x04, 0x01, 0x00, 0x00, 0x00, 0x64}, packet.Payload)
}

func TestSearchTemplate_NotFound(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckErrNoTemplateFound)))

	result, err := h.SearchTemplate(CharBuffer1, 0, 100)
	require.NoError(t, err)
	assert.False(t, result.Found)
}

func TestSearchTemplate_WholeDatabase(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(paramsResponse(t, 1000, 3, 2, 6)) // capacity lookup for count <= 0
	stub.queue(ackResponse(t, byte(AckErrNoTemplateFound)))

	_, err := h.SearchTemplate(CharBuffer1, 0, 0)
	require.NoError(t, err)

	p := NewPackager(DefaultAddress, 256)
	packet, err := p.Unpack(stub.writes[1])
	require.NoError(t, err)
	assertBytesEqual(t, []byte{0x04, 0x01, 0x00, 0x00, 0x03, 0xE8}, packet.Payload)
}

func TestDeleteTemplate(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(paramsResponse(t, 1000, 3, 2, 6))
	stub.queue(ackResponse(t, byte(AckOK)))

	ok, err := h.DeleteTemplate(10, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	p := NewPackager(DefaultAddress, 256)
	packet, err := p.Unpack(stub.writes[1])
	require.NoError(t, err)
	assertBytesEqual(t, []byte{0x0C, 0x00, 0x0A, 0x00, 0x02}, packet.Payload)
}

func TestClearDatabase_Declined(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckErrClearDatabase)))

	ok, err := h.ClearDatabase()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompareCharacteristics(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)

	stub.queue(ackResponse(t, byte(AckOK), 0x00, 0x52))
	score, err := h.CompareCharacteristics()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x52), score)

	stub.queue(ackResponse(t, byte(AckErrNotMatching)))
	score, err = h.CompareCharacteristics()
	require.NoError(t, err)
	assert.Equal(t, uint16(0), score)
}

func TestUploadDownloadCharacteristics_RoundTrip(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)

	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i * 3)
	}

	p := NewPackager(DefaultAddress, 256)
	echo := ackResponse(t, byte(AckOK))
	echo = append(echo, mustPack(t, p, PacketTypeData, data[:32])...)
	echo = append(echo, mustPack(t, p, PacketTypeEndOfData, data[32:])...)

	stub.queue(paramsResponse(t, 1000, 3, 0, 6)) // packet size 32
	stub.queue(ackResponse(t, byte(AckOK)))      // upload command ack
	stub.queue(nil)                              // data chunk
	stub.queue(nil)                              // end-of-data chunk
	stub.queue(echo)                             // download command ack + stream

	require.NoError(t, h.UploadCharacteristics(CharBuffer1, data))

	// one params query, the upload command, two chunks, the readback command
	require.Len(t, stub.writes, 5)
	chunk, err := p.Unpack(stub.writes[2])
	require.NoError(t, err)
	assert.Equal(t, PacketTypeData, chunk.Type)
	assertBytesEqual(t, data[:32], chunk.Payload)
	last, err := p.Unpack(stub.writes[3])
	require.NoError(t, err)
	assert.Equal(t, PacketTypeEndOfData, last.Type)
}

func TestUploadCharacteristics_VerificationMismatch(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)

	p := NewPackager(DefaultAddress, 256)
	echo := ackResponse(t, byte(AckOK))
	echo = append(echo, mustPack(t, p, PacketTypeEndOfData, []byte{0xFF, 0xFF})...)

	stub.queue(paramsResponse(t, 1000, 3, 0, 6))
	stub.queue(ackResponse(t, byte(AckOK)))
	stub.queue(nil)
	stub.queue(echo)

	err := h.UploadCharacteristics(CharBuffer1, []byte{0x01, 0x02})
	var ierr *IntegrityError
	require.ErrorAs(t, err, &ierr)
}

func TestDownloadCharacteristics(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)

	p := NewPackager(DefaultAddress, 256)
	response := ackResponse(t, byte(AckOK))
	response = append(response, mustPack(t, p, PacketTypeEndOfData, []byte{0xCA, 0xFE})...)
	stub.queue(response)

	data, err := h.DownloadCharacteristics(CharBuffer2)
	require.NoError(t, err)
	assertBytesEqual(t, []byte{0xCA, 0xFE}, data)
}

func TestGenerateRandomNumber(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK), 0x12, 0x34, 0x56, 0x78))

	value, err := h.GenerateRandomNumber()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), value)
}

func TestSoftReset(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	response := ackResponse(t, byte(AckOK))
	response = append(response, softResetReadyByte)
	stub.queue(response)

	require.NoError(t, h.SoftReset())
}

func TestSoftReset_NoReadyByte(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK)))

	err := h.SoftReset()
	require.True(t, IsTimeout(err))
}

func TestCheckSensorAndHandshake(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)

	stub.queue(ackResponse(t, byte(AckOK)))
	ok, err := h.CheckSensor()
	require.NoError(t, err)
	assert.True(t, ok)

	stub.queue(ackResponse(t, byte(AckErrCommunication)))
	ok, err = h.Handshake()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedOn(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK)))

	require.NoError(t, h.LedOn(LEDBlue, LEDBreathing, 0x40, 0x00))

	p := NewPackager(DefaultAddress, 256)
	packet, err := p.Unpack(stub.writes[0])
	require.NoError(t, err)
	assertBytesEqual(t, []byte{0x35, 0x01, 0x40, 0x02, 0x00}, packet.Payload)
}

func TestLedOn_Validation(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)

	var verr *ValidationError
	require.ErrorAs(t, h.LedOn(LEDColor(0x09), LEDBreathing, 0, 0), &verr)
	require.ErrorAs(t, h.LedOn(LEDRed, LEDControl(0x09), 0, 0), &verr)
	assert.Empty(t, stub.writes)
}

func TestLedOff(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK)))

	require.NoError(t, h.LedOff())

	p := NewPackager(DefaultAddress, 256)
	packet, err := p.Unpack(stub.writes[0])
	require.NoError(t, err)
	assertBytesEqual(t, []byte{0x35, 0x04, 0x00, 0x00, 0x00}, packet.Payload)
}

func TestCancelInstruction(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)
	stub.queue(ackResponse(t, byte(AckOK)))

	require.NoError(t, h.CancelInstruction())
}

func TestGetConfirmationMessage(t *testing.T) {
	testCases := []struct {
		code    ConfirmationCode
		message string
	}{
		{code: AckOK, message: "Success"},
		{code: AckErrCommunication, message: "Communication error"},
		{code: AckErrNoFinger, message: "No finger on sensor"},
		{code: AckErrWrongPassword, message: "Wrong password"},
		{code: AckErrFlash, message: "Error writing to flash"},
		{code: ConfirmationCode(0xEE), message: "Unknown confirmation code"},
	}
	for _, tc := range testCases {
		message := getConfirmationMessage(tc.code)
		if message != tc.message {
			t.Errorf("getConfirmationMessage(%#02x) returned %q, expected %q", byte(tc.code), message, tc.message)
		}
	}
}

func TestExchange_EmptyAck(t *testing.T) {
	stub := newStubTransporter()
	h := newTestHandler(t, stub)

	// an ACK frame must carry at least the confirmation code
	frame := []byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x07, 0x00, 0x02}
	chk := Checksum(PacketTypeAck, 2, nil)
	frame = append(frame, byte(chk>>8), byte(chk))
	stub.queue(frame)

	_, err := h.VerifyPassword()
	var ferr *FramingError
	require.ErrorAs(t, err, &ferr)
}
