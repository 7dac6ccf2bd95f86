// Package rmcp implements the RMCP framing codec carrying IPMI sessions
// and the ASF presence discovery sub-protocol over UDP port 623.
//
// The layering (ASF 2.0 Section 3.2.2): a fixed 4-byte RMCP header is
// followed by a class-specific payload — an ASF Ping/Pong/ACK, or an IPMI
// session header plus IPMB message body (internal/ipmi). The codec is
// pure; the UDP transport and all sequencing live with the caller.
package rmcp

import (
	"errors"
	"fmt"
)

// -------------------------------------------------------------------------
// Protocol Constants — ASF 2.0 Section 3.2.2
// -------------------------------------------------------------------------

// Version is the ASF-RMCP protocol version byte (0x06, ASF 2.0).
const Version uint8 = 0x06

// DefaultPort is the well-known RMCP UDP port.
const DefaultPort = 623

// NoAckSequence is the RMCP sequence number requesting no acknowledgement
// (0xFF). It must never be echoed back as a real ACK.
const NoAckSequence uint8 = 0xFF

// HeaderSize is the fixed RMCP header size in bytes.
const HeaderSize = 4

// ackBit marks a frame as an RMCP ACK in the class byte.
const ackBit = 0x80

// classMask extracts the 5-bit class from the class byte.
const classMask = 0x1F

// -------------------------------------------------------------------------
// Message Class — ASF 2.0 Section 3.2.2.2
// -------------------------------------------------------------------------

// Class is the 5-bit RMCP message class.
type Class uint8

const (
	// ClassASF carries ASF presence messages (Ping, Pong, ACK).
	ClassASF Class = 0x06

	// ClassIPMI carries IPMI session traffic.
	ClassIPMI Class = 0x07
)

// classNames maps message classes to human-readable strings.
var classNames = map[Class]string{
	ClassASF:  "ASF",
	ClassIPMI: "IPMI",
}

// String returns the human-readable name for the message class.
func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}

	return fmt.Sprintf("Unknown(%#02x)", uint8(c))
}

// -------------------------------------------------------------------------
// Codec Errors
// -------------------------------------------------------------------------

// Sentinel errors for framing failures.
var (
	// ErrShortFrame indicates the buffer is shorter than the structure
	// being decoded requires.
	ErrShortFrame = errors.New("frame truncated")

	// ErrMalformedFrame indicates the frame is structurally invalid for
	// its declared class or type.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnsupportedFrame indicates an unrecognized RMCP class, RMCP
	// version, or ASF message type. Such frames are rejected, never
	// silently dropped.
	ErrUnsupportedFrame = errors.New("unsupported frame")

	// ErrBufTooSmall indicates the caller-provided buffer cannot hold
	// the encoded output.
	ErrBufTooSmall = errors.New("buffer too small")
)

// -------------------------------------------------------------------------
// Header — ASF 2.0 Section 3.2.2.1
// -------------------------------------------------------------------------

// Header is the 4-byte RMCP header opening every frame.
type Header struct {
	// Version is the RMCP protocol version; the only supported value is
	// Version (0x06).
	Version uint8

	// Sequence is the RMCP sequence number for ACK correlation, or
	// NoAckSequence when no acknowledgement is requested. The caller
	// tracks sequence numbers across frames; the codec does not.
	Sequence uint8

	// Class is the message class selecting the payload format.
	Class Class
}

// NewHeader returns a header for the given class with the no-ack sentinel
// sequence, the common case for IPMI traffic.
func NewHeader(class Class) Header {
	return Header{
		Version:  Version,
		Sequence: NoAckSequence,
		Class:    class,
	}
}

// MarshalHeader serializes the header into buf with the given ack flag
// and returns the number of bytes written.
//
// Wire format (ASF 2.0 Section 3.2.2.1):
//
//	Byte 0: version
//	Byte 1: reserved, zero
//	Byte 2: sequence number
//	Byte 3: ack(1 bit) | reserved(2 bits, zero) | class(5 bits)
func MarshalHeader(hdr Header, ack bool, buf []byte) (int, error) {
	if len(buf) < HeaderSize {
		return 0, fmt.Errorf("marshal rmcp header: need %d bytes, got %d: %w",
			HeaderSize, len(buf), ErrBufTooSmall)
	}

	class := uint8(hdr.Class) & classMask
	if ack {
		class |= ackBit
	}

	buf[0] = hdr.Version
	buf[1] = 0
	buf[2] = hdr.Sequence
	buf[3] = class

	return HeaderSize, nil
}

// UnmarshalHeader decodes an RMCP header from buf, returning the header,
// the ack flag, and the number of bytes consumed. An unknown version or
// class is ErrUnsupportedFrame.
func UnmarshalHeader(buf []byte) (Header, bool, int, error) {
	if len(buf) < HeaderSize {
		return Header{}, false, 0, fmt.Errorf("unmarshal rmcp header: %d bytes, minimum %d: %w",
			len(buf), HeaderSize, ErrShortFrame)
	}

	hdr := Header{
		Version:  buf[0],
		Sequence: buf[2],
		Class:    Class(buf[3] & classMask),
	}
	ack := buf[3]&ackBit != 0

	if hdr.Version != Version {
		return Header{}, false, 0, fmt.Errorf("unmarshal rmcp header: version %#02x: %w",
			hdr.Version, ErrUnsupportedFrame)
	}

	if _, ok := classNames[hdr.Class]; !ok {
		return Header{}, false, 0, fmt.Errorf("unmarshal rmcp header: class %#02x: %w",
			uint8(hdr.Class), ErrUnsupportedFrame)
	}

	return hdr, ack, HeaderSize, nil
}
