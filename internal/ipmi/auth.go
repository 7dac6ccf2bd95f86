package ipmi

import (
	"crypto/md5" //nolint:gosec // G501: MD5 mandated by IPMI v1.5 Section 22.17.1
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/olle/eipmi/internal/md2"
)

// -------------------------------------------------------------------------
// Authentication Type Codes — IPMI v1.5 Section 22.13
// -------------------------------------------------------------------------

// AuthType identifies the session authentication mechanism
// (IPMI v1.5 Section 22.13). On the wire it occupies the low nibble of
// the first session header byte; the upper nibble is reserved.
type AuthType uint8

const (
	// AuthTypeNone indicates no per-message authentication; the session
	// header carries no authentication code.
	AuthTypeNone AuthType = 0x00

	// AuthTypeMD2 indicates the keyed MD2 authentication code
	// (IPMI v1.5 Section 22.17.1).
	AuthTypeMD2 AuthType = 0x01

	// AuthTypeMD5 indicates the keyed MD5 authentication code
	// (IPMI v1.5 Section 22.17.1).
	AuthTypeMD5 AuthType = 0x02

	// AuthTypePassword indicates the straight password/key is sent as
	// the authentication code, unhashed (IPMI v1.5 Section 22.17).
	AuthTypePassword AuthType = 0x04
)

// authCodeSize is the fixed authentication code width for every type
// except None (IPMI v1.5 Section 22.12: 16 bytes).
const authCodeSize = 16

// passwordSize is the fixed password/key field width. Shorter passwords
// are right-padded with zero bytes (IPMI v1.5 Section 22.17).
const passwordSize = 16

// authTypeMask extracts the auth type nibble from the session header byte.
const authTypeMask = 0x0F

// authTypeNames maps auth type wire codes to human-readable strings.
var authTypeNames = map[AuthType]string{
	AuthTypeNone:     "None",
	AuthTypeMD2:      "MD2",
	AuthTypeMD5:      "MD5",
	AuthTypePassword: "Password",
}

// String returns the human-readable name for the authentication type.
func (a AuthType) String() string {
	if name, ok := authTypeNames[a]; ok {
		return name
	}

	return fmt.Sprintf(unknownFmt, uint8(a))
}

// Code returns the 4-bit wire code for the authentication type.
func (a AuthType) Code() uint8 {
	return uint8(a) & authTypeMask
}

// CodeSize returns the authentication code width in bytes for the type:
// zero for None, 16 for every other supported type.
func (a AuthType) CodeSize() int {
	if a == AuthTypeNone {
		return 0
	}

	return authCodeSize
}

// AuthTypeFromCode maps a wire code to its AuthType. The mapping is total
// over the closed supported set; any other code (including the RMCP+
// format code 0x06) fails with ErrUnsupportedAuthType.
func AuthTypeFromCode(code uint8) (AuthType, error) {
	a := AuthType(code & authTypeMask)
	if _, ok := authTypeNames[a]; !ok {
		return 0, fmt.Errorf("auth type code %#02x: %w", code, ErrUnsupportedAuthType)
	}

	return a, nil
}

// -------------------------------------------------------------------------
// Auth Errors
// -------------------------------------------------------------------------

// Sentinel errors for the authentication transform and its decode-side
// verification.
var (
	// ErrUnsupportedAuthType indicates an authentication type wire code
	// outside the supported set.
	ErrUnsupportedAuthType = errors.New("unsupported authentication type")

	// ErrMissingPassword indicates a non-None authentication type was
	// requested without key material. The transform never substitutes a
	// default for a security-relevant field.
	ErrMissingPassword = errors.New("password required for authentication type")

	// ErrAuthenticationFailed indicates the received authentication code
	// does not match the one recomputed from the caller's key.
	ErrAuthenticationFailed = errors.New("authentication code mismatch")
)

// -------------------------------------------------------------------------
// Authentication Transform — IPMI v1.5 Sections 22.17, 22.17.1
// -------------------------------------------------------------------------

// AuthCode computes the session authentication code for a message.
//
// The result width depends on the type: nil for None, 16 bytes otherwise.
// For the keyed-hash types the digest is computed over
//
//	password(16) ++ sessionID(LE32) ++ payload ++ sequence(LE32) ++ password(16)
//
// with the key material bracketing the payload (IPMI v1.5 Section 22.17.1),
// so a code cannot be replayed against another session or reordered without
// detection. For AuthTypePassword the code is the password normalized to
// 16 bytes, unhashed. The password is right-padded with zeros below 16
// bytes and truncated above.
func AuthCode(typ AuthType, password []byte, sessionID, sequence uint32, payload []byte) ([]byte, error) {
	if typ == AuthTypeNone {
		return nil, nil
	}

	if len(password) == 0 {
		return nil, fmt.Errorf("auth type %s: %w", typ, ErrMissingPassword)
	}

	key := normalizePassword(password)

	switch typ {
	case AuthTypePassword:
		code := make([]byte, authCodeSize)
		copy(code, key[:])

		return code, nil

	case AuthTypeMD2, AuthTypeMD5:
		return keyedDigest(typ, key, sessionID, sequence, payload), nil

	default:
		return nil, fmt.Errorf("auth type code %#02x: %w", uint8(typ), ErrUnsupportedAuthType)
	}
}

// VerifyAuthCode recomputes the expected authentication code and compares
// it against the received one in constant time. A mismatch is
// ErrAuthenticationFailed; this is a security boundary, not a format check.
func VerifyAuthCode(typ AuthType, password []byte, sessionID, sequence uint32, payload, received []byte) error {
	expected, err := AuthCode(typ, password, sessionID, sequence, payload)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare(expected, received) != 1 {
		return fmt.Errorf("auth type %s: %w", typ, ErrAuthenticationFailed)
	}

	return nil
}

// normalizePassword pads or truncates the password to the fixed 16-byte
// key field (IPMI v1.5 Section 22.17).
func normalizePassword(password []byte) [passwordSize]byte {
	var key [passwordSize]byte
	copy(key[:], password)

	return key
}

// keyedDigest computes the MD2 or MD5 keyed digest over the bracketed
// span. Session ID and sequence number are serialized little-endian, the
// same byte order they occupy in the session header.
func keyedDigest(typ AuthType, key [passwordSize]byte, sessionID, sequence uint32, payload []byte) []byte {
	var sid, seq [4]byte
	binary.LittleEndian.PutUint32(sid[:], sessionID)
	binary.LittleEndian.PutUint32(seq[:], sequence)

	if typ == AuthTypeMD2 {
		h := md2.New()
		h.Write(key[:])
		h.Write(sid[:])
		h.Write(payload)
		h.Write(seq[:])
		h.Write(key[:])

		return h.Sum(nil)
	}

	h := md5.New() //nolint:gosec // G401: MD5 mandated by IPMI v1.5 Section 22.17.1
	h.Write(key[:])
	h.Write(sid[:])
	h.Write(payload)
	h.Write(seq[:])
	h.Write(key[:])

	return h.Sum(nil)
}
