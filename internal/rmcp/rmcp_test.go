package rmcp_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/olle/eipmi/internal/rmcp"
)

func TestMarshalPingWireLayout(t *testing.T) {
	t.Parallel()

	hdr := rmcp.Header{
		Version:  rmcp.Version,
		Sequence: rmcp.NoAckSequence,
		Class:    rmcp.ClassASF,
	}

	buf := make([]byte, rmcp.PingSize)
	n, err := rmcp.MarshalPing(hdr, rmcp.Ping{Tag: 7}, buf)
	if err != nil {
		t.Fatalf("MarshalPing: %v", err)
	}

	// RMCP header, then IANA 4542 (0x000011BE), type 0x80, tag 7, two
	// trailing zero bytes (reserved + data length).
	want := []byte{
		0x06, 0x00, 0xFF, 0x06,
		0x00, 0x00, 0x11, 0xBE, 0x80, 0x07, 0x00, 0x00,
	}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("encoded ping = % x, want % x", buf[:n], want)
	}
}

func TestPingRoundTrip(t *testing.T) {
	t.Parallel()

	hdr := rmcp.NewHeader(rmcp.ClassASF)
	hdr.Sequence = 3

	buf := make([]byte, rmcp.PingSize)
	n, err := rmcp.MarshalPing(hdr, rmcp.Ping{Tag: 0xAB}, buf)
	if err != nil {
		t.Fatalf("MarshalPing: %v", err)
	}

	frame, err := rmcp.DecodeFrame(buf[:n], rmcp.DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}

	if frame.Header != hdr {
		t.Errorf("header = %+v, want %+v", frame.Header, hdr)
	}

	ping, ok := frame.Payload.(*rmcp.Ping)
	if !ok {
		t.Fatalf("payload is %T, want *rmcp.Ping", frame.Payload)
	}
	if ping.Tag != 0xAB {
		t.Errorf("tag = %#02x, want 0xAB", ping.Tag)
	}
}

func TestPongRoundTrip(t *testing.T) {
	t.Parallel()

	hdr := rmcp.NewHeader(rmcp.ClassASF)
	pong := rmcp.Pong{
		Tag:      7,
		IANA:     rmcp.ASFIANA,
		OEM:      0,
		Entities: 0x81, // IPMI supported, ASF version 1.0
	}

	buf := make([]byte, rmcp.PongSize)
	n, err := rmcp.MarshalPong(hdr, pong, buf)
	if err != nil {
		t.Fatalf("MarshalPong: %v", err)
	}

	frame, err := rmcp.DecodeFrame(buf[:n], rmcp.DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}

	got, ok := frame.Payload.(*rmcp.Pong)
	if !ok {
		t.Fatalf("payload is %T, want *rmcp.Pong", frame.Payload)
	}

	if *got != pong {
		t.Errorf("pong = %+v, want %+v", *got, pong)
	}
	if !got.SupportsIPMI() {
		t.Error("SupportsIPMI() = false for entities 0x81")
	}
	if got.ASFVersion() != 0x01 {
		t.Errorf("ASFVersion() = %#02x, want 0x01", got.ASFVersion())
	}
}

func TestACKRoundTrip(t *testing.T) {
	t.Parallel()

	hdr := rmcp.Header{
		Version:  rmcp.Version,
		Sequence: 9,
		Class:    rmcp.ClassIPMI, // forced to ASF by MarshalACK
	}

	buf := make([]byte, rmcp.HeaderSize)
	n, err := rmcp.MarshalACK(hdr, buf)
	if err != nil {
		t.Fatalf("MarshalACK: %v", err)
	}

	want := []byte{0x06, 0x00, 0x09, 0x86}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("encoded ack = % x, want % x", buf[:n], want)
	}

	frame, err := rmcp.DecodeFrame(buf[:n], rmcp.DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}

	if _, ok := frame.Payload.(rmcp.ACK); !ok {
		t.Fatalf("payload is %T, want rmcp.ACK", frame.Payload)
	}
	if frame.Header.Sequence != 9 {
		t.Errorf("sequence = %d, want 9", frame.Header.Sequence)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{
			name: "short header",
			buf:  []byte{0x06, 0x00},
			want: rmcp.ErrShortFrame,
		},
		{
			name: "wrong version",
			buf:  []byte{0x07, 0x00, 0xFF, 0x06},
			want: rmcp.ErrUnsupportedFrame,
		},
		{
			name: "unknown class",
			buf:  []byte{0x06, 0x00, 0xFF, 0x05},
			want: rmcp.ErrUnsupportedFrame,
		},
		{
			name: "unknown asf message type",
			buf: []byte{
				0x06, 0x00, 0xFF, 0x06,
				0x00, 0x00, 0x11, 0xBE, 0x41, 0x07, 0x00, 0x00,
			},
			want: rmcp.ErrUnsupportedFrame,
		},
		{
			name: "asf payload truncated",
			buf:  []byte{0x06, 0x00, 0xFF, 0x06, 0x00, 0x00, 0x11},
			want: rmcp.ErrShortFrame,
		},
		{
			name: "asf data length exceeds buffer",
			buf: []byte{
				0x06, 0x00, 0xFF, 0x06,
				0x00, 0x00, 0x11, 0xBE, 0x40, 0x07, 0x00, 0x10,
			},
			want: rmcp.ErrMalformedFrame,
		},
		{
			name: "ack on ipmi class",
			buf:  []byte{0x06, 0x00, 0x09, 0x87},
			want: rmcp.ErrMalformedFrame,
		},
		{
			name: "ack echoing no-ack sequence",
			buf:  []byte{0x06, 0x00, 0xFF, 0x86},
			want: rmcp.ErrMalformedFrame,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := rmcp.DecodeFrame(tt.buf, rmcp.DecodeOptions{}); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
