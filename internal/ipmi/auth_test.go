package ipmi_test

import (
	"bytes"
	"crypto/md5" //nolint:gosec // test recomputes the mandated legacy digest
	"encoding/binary"
	"errors"
	"testing"

	"github.com/olle/eipmi/internal/ipmi"
	"github.com/olle/eipmi/internal/md2"
)

func TestAuthTypeFromCode(t *testing.T) {
	t.Parallel()

	// The mapping must be a mutual inverse over the closed set.
	for _, typ := range []ipmi.AuthType{
		ipmi.AuthTypeNone,
		ipmi.AuthTypeMD2,
		ipmi.AuthTypeMD5,
		ipmi.AuthTypePassword,
	} {
		got, err := ipmi.AuthTypeFromCode(typ.Code())
		if err != nil {
			t.Errorf("AuthTypeFromCode(%#02x): %v", typ.Code(), err)
			continue
		}
		if got != typ {
			t.Errorf("AuthTypeFromCode(%#02x) = %v, want %v", typ.Code(), got, typ)
		}
	}

	// Everything outside the set is a hard error, including the OEM code
	// 0x05 and the RMCP+ format code 0x06.
	for _, code := range []uint8{0x03, 0x05, 0x06, 0x07, 0x0F} {
		if _, err := ipmi.AuthTypeFromCode(code); !errors.Is(err, ipmi.ErrUnsupportedAuthType) {
			t.Errorf("AuthTypeFromCode(%#02x) err = %v, want ErrUnsupportedAuthType", code, err)
		}
	}
}

func TestAuthTypeCodeSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  ipmi.AuthType
		want int
	}{
		{ipmi.AuthTypeNone, 0},
		{ipmi.AuthTypeMD2, 16},
		{ipmi.AuthTypeMD5, 16},
		{ipmi.AuthTypePassword, 16},
	}

	for _, tt := range tests {
		tt := tt
		if got := tt.typ.CodeSize(); got != tt.want {
			t.Errorf("%v.CodeSize() = %d, want %d", tt.typ, got, tt.want)
		}
	}
}

func TestAuthCodeNone(t *testing.T) {
	t.Parallel()

	code, err := ipmi.AuthCode(ipmi.AuthTypeNone, nil, 0, 0, nil)
	if err != nil {
		t.Fatalf("AuthCode: %v", err)
	}
	if code != nil {
		t.Errorf("AuthCode(None) = % x, want zero-width", code)
	}
}

func TestAuthCodePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password []byte
		want     []byte
	}{
		{
			name:     "short password right-padded",
			password: []byte("admin"),
			want: []byte{
				'a', 'd', 'm', 'i', 'n', 0, 0, 0,
				0, 0, 0, 0, 0, 0, 0, 0,
			},
		},
		{
			name:     "exact 16 bytes",
			password: []byte("0123456789abcdef"),
			want:     []byte("0123456789abcdef"),
		},
		{
			name:     "over 16 bytes truncated",
			password: []byte("0123456789abcdefEXTRA"),
			want:     []byte("0123456789abcdef"),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Session context must not influence the straight password.
			code, err := ipmi.AuthCode(ipmi.AuthTypePassword, tt.password, 0xDEADBEEF, 42, []byte{1, 2, 3})
			if err != nil {
				t.Fatalf("AuthCode: %v", err)
			}
			if !bytes.Equal(code, tt.want) {
				t.Errorf("AuthCode = % x, want % x", code, tt.want)
			}
		})
	}
}

func TestAuthCodeMissingPassword(t *testing.T) {
	t.Parallel()

	for _, typ := range []ipmi.AuthType{
		ipmi.AuthTypePassword,
		ipmi.AuthTypeMD2,
		ipmi.AuthTypeMD5,
	} {
		if _, err := ipmi.AuthCode(typ, nil, 1, 1, nil); !errors.Is(err, ipmi.ErrMissingPassword) {
			t.Errorf("AuthCode(%v, no key) err = %v, want ErrMissingPassword", typ, err)
		}
	}
}

// bracketedSpan builds the hashed concatenation the keyed transforms are
// specified over: pw16 ++ sessionID(LE) ++ payload ++ seq(LE) ++ pw16.
func bracketedSpan(password []byte, sessionID, seq uint32, payload []byte) []byte {
	var pw [16]byte
	copy(pw[:], password)

	var buf bytes.Buffer
	buf.Write(pw[:])
	_ = binary.Write(&buf, binary.LittleEndian, sessionID)
	buf.Write(payload)
	_ = binary.Write(&buf, binary.LittleEndian, seq)
	buf.Write(pw[:])

	return buf.Bytes()
}

func TestAuthCodeKeyedDigests(t *testing.T) {
	t.Parallel()

	const (
		sessionID = uint32(0x0200FACE)
		sequence  = uint32(0x00000007)
	)
	password := []byte("secret")
	payload := []byte{0x20, 0x18, 0xC8, 0x81, 0x00, 0x01, 0x7E}
	span := bracketedSpan(password, sessionID, sequence, payload)

	t.Run("md5", func(t *testing.T) {
		t.Parallel()

		code, err := ipmi.AuthCode(ipmi.AuthTypeMD5, password, sessionID, sequence, payload)
		if err != nil {
			t.Fatalf("AuthCode: %v", err)
		}

		want := md5.Sum(span) //nolint:gosec // independent recomputation
		if !bytes.Equal(code, want[:]) {
			t.Errorf("MD5 code = % x, want % x", code, want)
		}
	})

	t.Run("md2", func(t *testing.T) {
		t.Parallel()

		code, err := ipmi.AuthCode(ipmi.AuthTypeMD2, password, sessionID, sequence, payload)
		if err != nil {
			t.Fatalf("AuthCode: %v", err)
		}

		want := md2.Sum(span)
		if !bytes.Equal(code, want[:]) {
			t.Errorf("MD2 code = % x, want % x", code, want)
		}
	})
}

func TestVerifyAuthCode(t *testing.T) {
	t.Parallel()

	const (
		sessionID = uint32(0x11223344)
		sequence  = uint32(9)
	)
	password := []byte("hunter2")
	payload := []byte{0x81, 0x1C, 0x63, 0x20, 0x24, 0x01, 0x00, 0x97}

	for _, typ := range []ipmi.AuthType{
		ipmi.AuthTypePassword,
		ipmi.AuthTypeMD2,
		ipmi.AuthTypeMD5,
	} {
		typ := typ
		t.Run(typ.String(), func(t *testing.T) {
			t.Parallel()

			code, err := ipmi.AuthCode(typ, password, sessionID, sequence, payload)
			if err != nil {
				t.Fatalf("AuthCode: %v", err)
			}

			if err := ipmi.VerifyAuthCode(typ, password, sessionID, sequence, payload, code); err != nil {
				t.Errorf("VerifyAuthCode with correct key: %v", err)
			}

			err = ipmi.VerifyAuthCode(typ, []byte("wrong"), sessionID, sequence, payload, code)
			if !errors.Is(err, ipmi.ErrAuthenticationFailed) {
				t.Errorf("VerifyAuthCode with wrong key err = %v, want ErrAuthenticationFailed", err)
			}

			// A code computed for one session must not verify against
			// another session ID or sequence number.
			err = ipmi.VerifyAuthCode(typ, password, sessionID+1, sequence, payload, code)
			if typ != ipmi.AuthTypePassword && !errors.Is(err, ipmi.ErrAuthenticationFailed) {
				t.Errorf("VerifyAuthCode with wrong session err = %v, want ErrAuthenticationFailed", err)
			}
		})
	}
}
