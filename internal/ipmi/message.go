// Package ipmi implements the IPMI v1.5 session-layer wire codec.
//
// This covers the IPMB message framing (Section 22.11 of the IPMI v1.5
// specification), the session header (Section 22.12), the session
// authentication code transforms (Sections 22.17, 22.17.1), and the
// two's-complement checksum (Section 22.17). The codec is pure: every
// operation transforms its arguments into a result without I/O, shared
// state, or retained references, and is safe for arbitrary concurrent use.
//
// RMCP framing around these messages lives in internal/rmcp.
package ipmi

import (
	"errors"
	"fmt"
)

// -------------------------------------------------------------------------
// Protocol Constants — IPMI v1.5 Sections 6.9, 22.11
// -------------------------------------------------------------------------

// BMCAddr is the default responder address of the BMC on IPMB (0x20).
const BMCAddr uint8 = 0x20

// RemoteConsoleAddr is the conventional requester software ID used by a
// remote console (0x81).
const RemoteConsoleAddr uint8 = 0x81

// DefaultChannel is the default channel number for channel-addressed
// commands (0x0E: "this channel").
const DefaultChannel uint8 = 0x0E

// messageMinSize is the smallest valid IPMB message body in bytes:
// rsAddr + netFn/rsLUN + checksum1 + rqAddr + rqSeq/rqLUN + cmd + checksum2.
const messageMinSize = 7

// headSpanSize is the first checksummed span: rsAddr + netFn/rsLUN.
const headSpanSize = 2

// lunMask extracts the 2-bit LUN from a combined netFn/LUN or seq/LUN byte.
const lunMask = 0x03

// seqMax is the largest encodable requester sequence number (6 bits).
const seqMax = 0x3F

// unknownFmt is the format string for unrecognized enum values.
const unknownFmt = "Unknown(%#02x)"

// -------------------------------------------------------------------------
// Network Function Codes — IPMI v1.5 Section 5.1
// -------------------------------------------------------------------------

// NetFn is the 6-bit network function code (IPMI v1.5 Section 5.1).
// Even values are requests; the corresponding response is NetFn|1.
type NetFn uint8

const (
	// NetFnChassisReq is the Chassis request network function.
	NetFnChassisReq NetFn = 0x00

	// NetFnBridgeReq is the Bridge request network function.
	NetFnBridgeReq NetFn = 0x02

	// NetFnSensorEventReq is the Sensor/Event request network function.
	NetFnSensorEventReq NetFn = 0x04

	// NetFnAppReq is the Application request network function, used by
	// all session establishment commands.
	NetFnAppReq NetFn = 0x06

	// NetFnAppResp is the Application response network function.
	NetFnAppResp NetFn = 0x07

	// NetFnStorageReq is the Storage request network function.
	NetFnStorageReq NetFn = 0x0A

	// NetFnTransportReq is the Transport request network function.
	NetFnTransportReq NetFn = 0x0C
)

// netFnNames maps even (request) network function codes to names.
var netFnNames = map[NetFn]string{
	NetFnChassisReq:     "Chassis",
	NetFnBridgeReq:      "Bridge",
	NetFnSensorEventReq: "Sensor/Event",
	NetFnAppReq:         "App",
	NetFnStorageReq:     "Storage",
	NetFnTransportReq:   "Transport",
}

// String returns the network function name with its request/response
// direction.
func (n NetFn) String() string {
	dir := "Request"
	if n.IsResponse() {
		dir = "Response"
	}

	if name, ok := netFnNames[n&^1]; ok {
		return name + " " + dir
	}

	return fmt.Sprintf(unknownFmt, uint8(n))
}

// Response returns the response network function paired with a request
// code (IPMI v1.5 Section 5.1: response = request | 1).
func (n NetFn) Response() NetFn {
	return n | 1
}

// IsResponse reports whether the network function carries a response
// (odd codes).
func (n NetFn) IsResponse() bool {
	return n&1 == 1
}

// -------------------------------------------------------------------------
// Codec Errors
// -------------------------------------------------------------------------

// Sentinel errors for message codec failures.
var (
	// ErrBufTooSmall indicates the caller-provided buffer cannot hold
	// the encoded output.
	ErrBufTooSmall = errors.New("buffer too small")

	// ErrShortMessage indicates the input is shorter than the structure
	// being decoded requires.
	ErrShortMessage = errors.New("message truncated")

	// ErrCorruptMessage indicates a checksum mismatch on either IPMB
	// span. The message must be discarded, never partially trusted.
	ErrCorruptMessage = errors.New("message checksum mismatch")

	// ErrDataTooLong indicates the command data exceeds what the single
	// length byte of the session framing can describe.
	ErrDataTooLong = errors.New("command data too long")

	// ErrSequenceRange indicates a requester sequence number beyond the
	// 6-bit wire field.
	ErrSequenceRange = errors.New("requester sequence exceeds 6 bits")
)

// -------------------------------------------------------------------------
// Message — IPMI v1.5 Section 22.11 (IPMB request/response framing)
// -------------------------------------------------------------------------

// Message is a decoded IPMI message body in IPMB framing
// (IPMI v1.5 Section 22.11). Command data is opaque to the codec; for
// responses the first data byte is the completion code by convention of
// the calling layer.
type Message struct {
	// ResponderAddr is the responder slave address (BMCAddr for a
	// request to the BMC, RemoteConsoleAddr in its response).
	ResponderAddr uint8

	// ResponderLUN is the responder logical unit number (2 bits).
	ResponderLUN uint8

	// NetFn is the network function code (6 bits).
	NetFn NetFn

	// RequesterAddr is the requester address / software ID.
	RequesterAddr uint8

	// RequesterLUN is the requester logical unit number (2 bits).
	RequesterLUN uint8

	// Sequence is the 6-bit requester sequence number used to pair
	// responses with requests. The session layer owns the counter.
	Sequence uint8

	// Command is the command byte under the network function.
	Command uint8

	// Data is the command data. NOTE: after UnmarshalMessage this slice
	// references the input buffer (zero-copy); callers copy it if the
	// buffer is reused.
	Data []byte
}

// Size returns the encoded message size in bytes.
func (m *Message) Size() int {
	return messageMinSize + len(m.Data)
}

// IsResponse reports whether the message carries a response.
func (m *Message) IsResponse() bool {
	return m.NetFn.IsResponse()
}

// MarshalMessage serializes the message into buf and returns the number
// of bytes written.
//
// The IPMB format carries two independent checksums over two independent
// spans, so a bridge can validate and rewrite the addressing head without
// touching the tail (IPMI v1.5 Section 22.11):
//
//	Byte 0:   responder address
//	Byte 1:   netFn(6 bits) | responder LUN(2 bits)
//	Byte 2:   checksum over bytes 0-1
//	Byte 3:   requester address
//	Byte 4:   rqSeq(6 bits) | requester LUN(2 bits)
//	Byte 5:   command
//	Bytes 6+: data
//	Last:     checksum over bytes 3..end of data
func MarshalMessage(msg *Message, buf []byte) (int, error) {
	total := msg.Size()
	if len(buf) < total {
		return 0, fmt.Errorf("marshal message: need %d bytes, got %d: %w",
			total, len(buf), ErrBufTooSmall)
	}

	if msg.Sequence > seqMax {
		return 0, fmt.Errorf("marshal message: sequence %d: %w",
			msg.Sequence, ErrSequenceRange)
	}

	buf[0] = msg.ResponderAddr
	buf[1] = uint8(msg.NetFn)<<2 | msg.ResponderLUN&lunMask
	buf[2] = Checksum(buf[0:2])

	buf[3] = msg.RequesterAddr
	buf[4] = msg.Sequence<<2 | msg.RequesterLUN&lunMask
	buf[5] = msg.Command
	copy(buf[6:], msg.Data)
	buf[total-1] = Checksum(buf[3 : total-1])

	return total, nil
}

// UnmarshalMessage decodes an IPMB message body from buf into msg. The
// whole buffer is consumed: everything between the command byte and the
// trailing checksum is command data.
//
// Both span checksums are validated; a mismatch on either is
// ErrCorruptMessage and msg must not be used.
func UnmarshalMessage(buf []byte, msg *Message) error {
	if len(buf) < messageMinSize {
		return fmt.Errorf("unmarshal message: %d bytes, minimum %d: %w",
			len(buf), messageMinSize, ErrShortMessage)
	}

	if !VerifyChecksum(buf[0:headSpanSize], buf[headSpanSize]) {
		return fmt.Errorf("unmarshal message: head span: %w", ErrCorruptMessage)
	}

	tail := buf[3 : len(buf)-1]
	if !VerifyChecksum(tail, buf[len(buf)-1]) {
		return fmt.Errorf("unmarshal message: tail span: %w", ErrCorruptMessage)
	}

	msg.ResponderAddr = buf[0]
	msg.NetFn = NetFn(buf[1] >> 2)
	msg.ResponderLUN = buf[1] & lunMask
	msg.RequesterAddr = buf[3]
	msg.Sequence = buf[4] >> 2
	msg.RequesterLUN = buf[4] & lunMask
	msg.Command = buf[5]

	msg.Data = nil
	if data := buf[6 : len(buf)-1]; len(data) > 0 {
		msg.Data = data
	}

	return nil
}
