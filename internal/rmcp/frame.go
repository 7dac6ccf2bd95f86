package rmcp

import (
	"fmt"

	"github.com/olle/eipmi/internal/ipmi"
)

// -------------------------------------------------------------------------
// Frame — decoded RMCP frame with closed payload variants
// -------------------------------------------------------------------------

// MaxFrameSize is a buffer size sufficient for any frame this codec
// produces: RMCP header + session header with auth code + length byte +
// the largest body a single length byte can describe.
const MaxFrameSize = 512

// maxBodySize is the largest IPMB message body the single length byte of
// the session framing can describe.
const maxBodySize = 255

// Payload is the closed set of RMCP frame payloads: *Ping, *Pong, ACK,
// or *IPMIPacket. Callers dispatch with an exhaustive type switch.
type Payload interface {
	payload()
}

// IPMIPacket is the payload of a ClassIPMI frame: the session header and
// the IPMB message body it wraps.
type IPMIPacket struct {
	// Session is the decoded session header. Its authentication code has
	// been verified against the decode password before the packet is
	// returned.
	Session ipmi.SessionHeader

	// Message is the decoded IPMB message body.
	Message ipmi.Message
}

// payload marks IPMIPacket as a Frame payload variant.
func (*IPMIPacket) payload() {}

// Frame is a decoded RMCP frame.
type Frame struct {
	// Header is the outer RMCP header.
	Header Header

	// Payload is the class-specific payload variant.
	Payload Payload
}

// DecodeOptions carries the decode-side session context. Required fields
// differ by frame: ASF frames need none, IPMI frames with a non-None auth
// type need the session password.
type DecodeOptions struct {
	// Password is the session key used to verify the authentication code
	// of IPMI frames. Ignored for ASF frames and AuthTypeNone sessions.
	Password []byte
}

// -------------------------------------------------------------------------
// DecodeFrame
// -------------------------------------------------------------------------

// DecodeFrame decodes a complete RMCP frame from buf, branching on the
// header class. All checksums and, for authenticated sessions, the
// authentication code are validated before anything is returned; a frame
// failing any check is rejected as a whole.
//
// The input buffer remains owned by the caller. The returned frame
// references buf only through IPMIPacket.Message.Data.
func DecodeFrame(buf []byte, opts DecodeOptions) (*Frame, error) {
	hdr, ack, n, err := UnmarshalHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	if ack {
		return decodeACK(hdr)
	}

	var payload Payload

	switch hdr.Class {
	case ClassASF:
		payload, err = unmarshalASF(buf[n:])

	case ClassIPMI:
		payload, err = unmarshalIPMI(buf[n:], opts)
	}

	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	return &Frame{Header: hdr, Payload: payload}, nil
}

// decodeACK validates a received RMCP ACK. An ACK carries no payload; it
// must use the ASF class and must not echo the no-ack sentinel.
func decodeACK(hdr Header) (*Frame, error) {
	if hdr.Class != ClassASF {
		return nil, fmt.Errorf("decode frame: ack with class %s: %w",
			hdr.Class, ErrMalformedFrame)
	}

	if hdr.Sequence == NoAckSequence {
		return nil, fmt.Errorf("decode frame: ack echoes the no-ack sequence: %w",
			ErrMalformedFrame)
	}

	return &Frame{Header: hdr, Payload: ACK{}}, nil
}

// unmarshalIPMI decodes the session header, length byte, and IPMB body
// following the RMCP header, verifying the authentication code over the
// body span.
func unmarshalIPMI(buf []byte, opts DecodeOptions) (Payload, error) {
	pkt := &IPMIPacket{}

	n, err := ipmi.UnmarshalSessionHeader(buf, &pkt.Session)
	if err != nil {
		return nil, err
	}

	if len(buf) < n+1 {
		return nil, fmt.Errorf("session length byte: %w", ErrShortFrame)
	}

	bodyLen := int(buf[n])
	body := buf[n+1:]
	if len(body) < bodyLen {
		return nil, fmt.Errorf("message length %d exceeds %d remaining bytes: %w",
			bodyLen, len(body), ErrShortFrame)
	}
	// Trailing bytes beyond the declared length are tolerated; some LAN
	// controllers pad short UDP datagrams.
	body = body[:bodyLen]

	if err := pkt.Session.Verify(opts.Password, body); err != nil {
		return nil, err
	}

	if err := ipmi.UnmarshalMessage(body, &pkt.Message); err != nil {
		return nil, err
	}

	return pkt, nil
}

// -------------------------------------------------------------------------
// MarshalIPMIRequest — full outer assembly
// -------------------------------------------------------------------------

// MarshalIPMIRequest assembles a complete IPMI-over-RMCP frame into buf
// and returns the bytes written:
//
//	rmcp header ++ session header ++ length(1) ++ IPMB message body
//
// The body is encoded first so the length byte carries the real encoded
// size and the authentication code is computed over the final body bytes.
func MarshalIPMIRequest(hdr Header, session *ipmi.SessionHeader, password []byte, msg *ipmi.Message, buf []byte) (int, error) {
	bodyLen := msg.Size()
	if bodyLen > maxBodySize {
		return 0, fmt.Errorf("marshal ipmi request: body is %d bytes: %w",
			bodyLen, ipmi.ErrDataTooLong)
	}

	bodyOff := HeaderSize + session.Size() + 1
	total := bodyOff + bodyLen
	if len(buf) < total {
		return 0, fmt.Errorf("marshal ipmi request: need %d bytes, got %d: %w",
			total, len(buf), ErrBufTooSmall)
	}

	// Body first: the session auth code and the length byte both depend
	// on the encoded bytes, never on an estimate.
	if _, err := ipmi.MarshalMessage(msg, buf[bodyOff:]); err != nil {
		return 0, fmt.Errorf("marshal ipmi request: %w", err)
	}
	body := buf[bodyOff : bodyOff+bodyLen]

	hdr.Class = ClassIPMI
	n, err := MarshalHeader(hdr, false, buf)
	if err != nil {
		return 0, fmt.Errorf("marshal ipmi request: %w", err)
	}

	sn, err := ipmi.MarshalSessionHeader(session, password, body, buf[n:])
	if err != nil {
		return 0, fmt.Errorf("marshal ipmi request: %w", err)
	}

	buf[n+sn] = uint8(bodyLen)

	return total, nil
}
