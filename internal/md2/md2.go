// Package md2 implements the MD2 message-digest algorithm (RFC 1319).
//
// MD2 survives here solely because IPMI v1.5 Section 22.17.1 mandates it
// as one of the two legacy keyed-hash authentication families for
// multi-session channels. It is cryptographically broken and MUST NOT be
// used for anything except interoperating with BMC firmware that requires
// it.
package md2

import "hash"

// Size is the MD2 digest length in bytes.
const Size = 16

// BlockSize is the MD2 block size in bytes.
const BlockSize = 16

// piSubst is the pseudo-random permutation of 0..255 derived from the
// digits of pi (RFC 1319 Section 3.2).
var piSubst = [256]byte{
	41, 46, 67, 201, 162, 216, 124, 1, 61, 54, 84, 161, 236, 240, 6,
	19, 98, 167, 5, 243, 192, 199, 115, 140, 152, 147, 43, 217, 188,
	76, 130, 202, 30, 155, 87, 60, 253, 212, 224, 22, 103, 66, 111, 24,
	138, 23, 229, 18, 190, 78, 196, 214, 218, 158, 222, 73, 160, 251,
	245, 142, 187, 47, 238, 122, 169, 104, 121, 145, 21, 178, 7, 63,
	148, 194, 16, 137, 11, 34, 95, 33, 128, 127, 93, 154, 90, 144, 50,
	39, 53, 62, 204, 231, 191, 247, 151, 3, 255, 25, 48, 179, 72, 165,
	181, 209, 215, 94, 146, 42, 172, 86, 170, 198, 79, 184, 56, 210,
	150, 164, 125, 182, 118, 252, 107, 226, 156, 116, 4, 241, 69, 157,
	112, 89, 100, 113, 135, 32, 134, 91, 207, 101, 230, 45, 168, 2, 27,
	96, 37, 173, 174, 176, 185, 246, 28, 70, 97, 105, 52, 64, 126, 15,
	85, 71, 163, 35, 221, 81, 175, 58, 195, 92, 249, 206, 186, 197,
	234, 38, 44, 83, 13, 110, 133, 40, 132, 9, 211, 223, 205, 244, 65,
	129, 77, 82, 106, 220, 55, 200, 108, 193, 171, 250, 36, 225, 123,
	8, 12, 189, 177, 74, 120, 136, 149, 139, 227, 99, 232, 109, 233,
	203, 213, 254, 59, 0, 29, 57, 242, 239, 183, 14, 102, 88, 208, 228,
	166, 119, 114, 248, 235, 117, 75, 10, 49, 68, 80, 180, 143, 237,
	31, 26, 219, 153, 141, 51, 159, 17, 131, 20,
}

// digest is the running MD2 state.
type digest struct {
	state    [48]byte        // X: 48-byte state array
	checksum [BlockSize]byte // C: running checksum block
	buf      [BlockSize]byte // partial input block
	nbuf     int             // valid bytes in buf
}

// New returns a new hash.Hash computing the MD2 digest.
func New() hash.Hash {
	d := &digest{}
	d.Reset()

	return d
}

// Sum returns the MD2 digest of data.
func Sum(data []byte) [Size]byte {
	d := &digest{}
	d.Reset()
	_, _ = d.Write(data)

	var out [Size]byte
	copy(out[:], d.Sum(nil))

	return out
}

// Reset restores the initial state (RFC 1319 Section 3.3).
func (d *digest) Reset() {
	d.state = [48]byte{}
	d.checksum = [BlockSize]byte{}
	d.buf = [BlockSize]byte{}
	d.nbuf = 0
}

// Size returns the digest length in bytes.
func (d *digest) Size() int { return Size }

// BlockSize returns the MD2 block size in bytes.
func (d *digest) BlockSize() int { return BlockSize }

// Write absorbs p into the running digest. It never returns an error.
func (d *digest) Write(p []byte) (int, error) {
	n := len(p)

	// Complete a partial block first.
	if d.nbuf > 0 {
		c := copy(d.buf[d.nbuf:], p)
		d.nbuf += c
		p = p[c:]

		if d.nbuf == BlockSize {
			d.block(d.buf[:])
			d.nbuf = 0
		}
	}

	// Full blocks straight from p.
	for len(p) >= BlockSize {
		d.block(p[:BlockSize])
		p = p[BlockSize:]
	}

	// Stash the remainder.
	if len(p) > 0 {
		d.nbuf = copy(d.buf[:], p)
	}

	return n, nil
}

// Sum appends the current digest to in without disturbing the running
// state, so callers may keep writing afterwards.
func (d *digest) Sum(in []byte) []byte {
	// Work on a copy: Sum must not alter the running state.
	final := *d

	// RFC 1319 Section 3.1: pad with i bytes of value i to a block
	// boundary. A full block of padding is appended if already aligned.
	pad := BlockSize - final.nbuf
	var padding [BlockSize]byte
	for i := 0; i < pad; i++ {
		padding[i] = byte(pad)
	}
	_, _ = final.Write(padding[:pad])

	// RFC 1319 Section 3.2: append the checksum block.
	cs := final.checksum
	_, _ = final.Write(cs[:])

	return append(in, final.state[:Size]...)
}

// block absorbs one 16-byte block into the state and checksum
// (RFC 1319 Sections 3.2 and 3.4).
func (d *digest) block(p []byte) {
	// Update checksum (Section 3.2). L is the last checksum byte.
	l := d.checksum[BlockSize-1]
	for i := 0; i < BlockSize; i++ {
		d.checksum[i] ^= piSubst[p[i]^l]
		l = d.checksum[i]
	}

	// Update state (Section 3.4).
	for i := 0; i < BlockSize; i++ {
		d.state[16+i] = p[i]
		d.state[32+i] = d.state[16+i] ^ d.state[i]
	}

	var t byte
	for round := 0; round < 18; round++ {
		for i := 0; i < 48; i++ {
			d.state[i] ^= piSubst[t]
			t = d.state[i]
		}
		t += byte(round)
	}
}
