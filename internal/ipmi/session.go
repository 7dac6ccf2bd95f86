package ipmi

import (
	"encoding/binary"
	"fmt"
)

// -------------------------------------------------------------------------
// Session Header Codec — IPMI v1.5 Section 22.12
// -------------------------------------------------------------------------

// sessionHeaderBaseSize is the session header size without the
// authentication code: auth type (1) + sequence (4) + session ID (4).
const sessionHeaderBaseSize = 9

// SessionHeader is the session-layer wrapper preceding every IPMI message
// inside an RMCP frame (IPMI v1.5 Section 22.12).
//
// Before session establishment the caller sets AuthType to AuthTypeNone
// and SessionID to zero; the codec does not infer session phase.
type SessionHeader struct {
	// AuthType selects the session authentication transform and with it
	// the presence and contents of the authentication code.
	AuthType AuthType

	// Sequence is the session sequence number, little-endian on the wire.
	// The session layer owns the counter; the codec only encodes the
	// value it is given.
	Sequence uint32

	// SessionID is the BMC-assigned session ID, little-endian on the
	// wire. Zero until a session has been activated.
	SessionID uint32

	// Code holds the authentication code as read from or written to the
	// wire: nil for AuthTypeNone, 16 bytes otherwise.
	Code []byte
}

// Size returns the encoded session header size in bytes, including the
// authentication code when present.
func (h *SessionHeader) Size() int {
	return sessionHeaderBaseSize + h.AuthType.CodeSize()
}

// MarshalSessionHeader serializes the session header into buf and returns
// the number of bytes written. For non-None auth types the authentication
// code is computed from password over payload (the encoded IPMI message
// body that will follow the length byte) and stored in both buf and
// hdr.Code.
//
// Wire format (IPMI v1.5 Section 22.12):
//
//	Byte 0:     reserved(4 bits, zero) | auth type(4 bits)
//	Bytes 1-4:  session sequence number (little-endian uint32)
//	Bytes 5-8:  session ID (little-endian uint32)
//	Bytes 9-24: authentication code (absent for AuthTypeNone)
func MarshalSessionHeader(hdr *SessionHeader, password, payload, buf []byte) (int, error) {
	total := hdr.Size()
	if len(buf) < total {
		return 0, fmt.Errorf("marshal session header: need %d bytes, got %d: %w",
			total, len(buf), ErrBufTooSmall)
	}

	code, err := AuthCode(hdr.AuthType, password, hdr.SessionID, hdr.Sequence, payload)
	if err != nil {
		return 0, fmt.Errorf("marshal session header: %w", err)
	}

	buf[0] = hdr.AuthType.Code() // upper nibble reserved, zero
	binary.LittleEndian.PutUint32(buf[1:5], hdr.Sequence)
	binary.LittleEndian.PutUint32(buf[5:9], hdr.SessionID)
	copy(buf[sessionHeaderBaseSize:total], code)
	hdr.Code = code

	return total, nil
}

// UnmarshalSessionHeader decodes a session header from buf into hdr and
// returns the number of bytes consumed. The authentication code is read
// but not checked here; the code can only be verified once the message
// payload behind the length byte is known, so callers invoke Verify with
// that span afterwards.
func UnmarshalSessionHeader(buf []byte, hdr *SessionHeader) (int, error) {
	if len(buf) < sessionHeaderBaseSize {
		return 0, fmt.Errorf("unmarshal session header: %d bytes, minimum %d: %w",
			len(buf), sessionHeaderBaseSize, ErrShortMessage)
	}

	typ, err := AuthTypeFromCode(buf[0])
	if err != nil {
		return 0, fmt.Errorf("unmarshal session header: %w", err)
	}

	hdr.AuthType = typ
	hdr.Sequence = binary.LittleEndian.Uint32(buf[1:5])
	hdr.SessionID = binary.LittleEndian.Uint32(buf[5:9])
	hdr.Code = nil

	total := hdr.Size()
	if len(buf) < total {
		return 0, fmt.Errorf("unmarshal session header: auth code needs %d bytes, got %d: %w",
			total, len(buf), ErrShortMessage)
	}

	if size := typ.CodeSize(); size > 0 {
		code := make([]byte, size)
		copy(code, buf[sessionHeaderBaseSize:total])
		hdr.Code = code
	}

	return total, nil
}

// Verify checks the received authentication code against the one
// recomputed from the caller-supplied password and payload (the decoded
// message body bytes). For AuthTypeNone it always succeeds. A mismatch is
// ErrAuthenticationFailed and the message must be discarded.
func (h *SessionHeader) Verify(password, payload []byte) error {
	if h.AuthType == AuthTypeNone {
		return nil
	}

	return VerifyAuthCode(h.AuthType, password, h.SessionID, h.Sequence, payload, h.Code)
}
