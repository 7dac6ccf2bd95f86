package rmcp

import (
	"encoding/binary"
	"fmt"
)

// -------------------------------------------------------------------------
// ASF Presence Messages — ASF 2.0 Section 3.2.4
// -------------------------------------------------------------------------

// ASFIANA is the ASF IANA enterprise number (4542) carried by Presence
// Ping requests.
const ASFIANA uint32 = 4542

// ASF message type codes (ASF 2.0 Section 3.2.4).
const (
	// asfTypePing is the Presence Ping message type.
	asfTypePing uint8 = 0x80

	// asfTypePong is the Presence Pong message type.
	asfTypePong uint8 = 0x40
)

// asfHeaderSize is the class-specific ASF header: IANA(4) + type(1) +
// tag(1) + reserved(1) + data length(1).
const asfHeaderSize = 8

// pongDataSize is the Presence Pong data block: OEM IANA(4) +
// OEM defined(4) + entities(1) + interactions(1) + reserved(6).
const pongDataSize = 16

// entityIPMISupported flags IPMI support in the Pong supported-entities
// byte (ASF 2.0 Section 3.2.4.3).
const entityIPMISupported = 0x80

// entityVersionMask extracts the ASF version nibble from the
// supported-entities byte.
const entityVersionMask = 0x0F

// entityASFVersion1 is the ASF version 1.0 code in the entities nibble.
const entityASFVersion1 = 0x01

// -------------------------------------------------------------------------
// Ping — ASF 2.0 Section 3.2.4.4
// -------------------------------------------------------------------------

// Ping is an ASF Presence Ping. Tag correlates the answering Pong; it is
// a request/response correlator, not a sequence number.
type Ping struct {
	// Tag is the message tag echoed back by the Pong.
	Tag uint8
}

// payload marks Ping as a Frame payload variant.
func (*Ping) payload() {}

// PingSize is the encoded size of a Ping frame including the RMCP header.
const PingSize = HeaderSize + asfHeaderSize

// MarshalPing serializes a Presence Ping frame (RMCP header, ack clear,
// followed by the ASF payload) into buf and returns the bytes written.
//
// ASF payload (ASF 2.0 Section 3.2.4.4):
//
//	Bytes 0-3: IANA enterprise number 4542 (big-endian)
//	Byte 4:    message type 0x80
//	Byte 5:    message tag
//	Byte 6:    reserved, zero
//	Byte 7:    data length, zero
func MarshalPing(hdr Header, ping Ping, buf []byte) (int, error) {
	if len(buf) < PingSize {
		return 0, fmt.Errorf("marshal ping: need %d bytes, got %d: %w",
			PingSize, len(buf), ErrBufTooSmall)
	}

	n, err := MarshalHeader(hdr, false, buf)
	if err != nil {
		return 0, fmt.Errorf("marshal ping: %w", err)
	}

	binary.BigEndian.PutUint32(buf[n:n+4], ASFIANA)
	buf[n+4] = asfTypePing
	buf[n+5] = ping.Tag
	buf[n+6] = 0
	buf[n+7] = 0

	return PingSize, nil
}

// -------------------------------------------------------------------------
// Pong — ASF 2.0 Section 3.2.4.3
// -------------------------------------------------------------------------

// Pong is an ASF Presence Pong, the BMC's answer to a Presence Ping.
type Pong struct {
	// Tag echoes the Ping's message tag.
	Tag uint8

	// IANA is the responder's IANA enterprise number, vendor-defined
	// (4542 when the vendor uses the ASF default).
	IANA uint32

	// OEM carries OEM-defined values when IANA is not the ASF number.
	OEM uint32

	// Entities is the supported-entities byte: bit 7 flags IPMI support,
	// the low nibble carries the ASF version.
	Entities uint8

	// Interactions is the supported-interactions byte, reserved unless
	// security extensions are present.
	Interactions uint8
}

// payload marks Pong as a Frame payload variant.
func (*Pong) payload() {}

// PongSize is the encoded size of a Pong frame including the RMCP header.
const PongSize = HeaderSize + asfHeaderSize + pongDataSize

// SupportsIPMI reports whether the responder advertises IPMI.
func (p *Pong) SupportsIPMI() bool {
	return p.Entities&entityIPMISupported != 0
}

// ASFVersion returns the ASF version nibble from the entities byte
// (entityASFVersion1 for ASF 1.0).
func (p *Pong) ASFVersion() uint8 {
	return p.Entities & entityVersionMask
}

// MarshalPong serializes a Presence Pong frame into buf and returns the
// bytes written. A responder answers with the Ping's tag and, for an
// IPMI-capable implementation, entityIPMISupported|entityASFVersion1 in
// the entities byte.
//
// ASF payload (ASF 2.0 Section 3.2.4.3): the 8-byte ASF header with type
// 0x40 and data length 16, then OEM IANA(4, big-endian), OEM defined(4),
// entities(1), interactions(1), and 6 reserved bytes.
func MarshalPong(hdr Header, pong Pong, buf []byte) (int, error) {
	if len(buf) < PongSize {
		return 0, fmt.Errorf("marshal pong: need %d bytes, got %d: %w",
			PongSize, len(buf), ErrBufTooSmall)
	}

	n, err := MarshalHeader(hdr, false, buf)
	if err != nil {
		return 0, fmt.Errorf("marshal pong: %w", err)
	}

	binary.BigEndian.PutUint32(buf[n:n+4], ASFIANA)
	buf[n+4] = asfTypePong
	buf[n+5] = pong.Tag
	buf[n+6] = 0
	buf[n+7] = pongDataSize

	data := buf[n+asfHeaderSize:]
	binary.BigEndian.PutUint32(data[0:4], pong.IANA)
	binary.BigEndian.PutUint32(data[4:8], pong.OEM)
	data[8] = pong.Entities
	data[9] = pong.Interactions
	for i := 10; i < pongDataSize; i++ {
		data[i] = 0
	}

	return PongSize, nil
}

// -------------------------------------------------------------------------
// ACK — ASF 2.0 Section 3.2.2.3
// -------------------------------------------------------------------------

// ACK acknowledges receipt of an ASF exchange. On the wire it is a bare
// RMCP header with the ack bit set; the sequence number names the frame
// being acknowledged.
type ACK struct{}

// payload marks ACK as a Frame payload variant.
func (ACK) payload() {}

// MarshalACK serializes an RMCP ACK into buf and returns the bytes
// written. The class is forced to ASF: an ACK is only meaningful as the
// acknowledgement of an ASF exchange. Callers must not acknowledge frames
// sent with NoAckSequence.
func MarshalACK(hdr Header, buf []byte) (int, error) {
	hdr.Class = ClassASF

	n, err := MarshalHeader(hdr, true, buf)
	if err != nil {
		return 0, fmt.Errorf("marshal ack: %w", err)
	}

	return n, nil
}

// unmarshalASF decodes the ASF payload following the RMCP header,
// branching on the message type byte.
func unmarshalASF(buf []byte) (Payload, error) {
	if len(buf) < asfHeaderSize {
		return nil, fmt.Errorf("unmarshal asf: %d bytes, minimum %d: %w",
			len(buf), asfHeaderSize, ErrShortFrame)
	}

	typ := buf[4]
	tag := buf[5]
	dataLen := int(buf[7])

	if len(buf) < asfHeaderSize+dataLen {
		return nil, fmt.Errorf("unmarshal asf: data length %d exceeds %d remaining bytes: %w",
			dataLen, len(buf)-asfHeaderSize, ErrMalformedFrame)
	}

	switch typ {
	case asfTypePing:
		return &Ping{Tag: tag}, nil

	case asfTypePong:
		return unmarshalPong(buf, tag, dataLen)

	default:
		return nil, fmt.Errorf("unmarshal asf: message type %#02x: %w",
			typ, ErrUnsupportedFrame)
	}
}

// unmarshalPong decodes the Presence Pong data block.
func unmarshalPong(buf []byte, tag uint8, dataLen int) (Payload, error) {
	if dataLen < pongDataSize {
		return nil, fmt.Errorf("unmarshal pong: data length %d, need %d: %w",
			dataLen, pongDataSize, ErrMalformedFrame)
	}

	data := buf[asfHeaderSize:]

	return &Pong{
		Tag:          tag,
		IANA:         binary.BigEndian.Uint32(data[0:4]),
		OEM:          binary.BigEndian.Uint32(data[4:8]),
		Entities:     data[8],
		Interactions: data[9],
	}, nil
}
