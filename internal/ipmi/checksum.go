package ipmi

// -------------------------------------------------------------------------
// Checksum — IPMI v1.5 Section 22.17, IPMB two's-complement checksum
// -------------------------------------------------------------------------

// Checksum computes the IPMI two's-complement 8-bit checksum over data
// (IPMI v1.5 Section 22.17: "2s-complement checksum of preceding bytes").
//
// The sum is reduced modulo 256 per byte, matching the fixed-point
// arithmetic BMC firmware performs. The result satisfies the invariant
//
//	(sum(data) + Checksum(data)) % 256 == 0
//
// for every byte span, including the empty one (Checksum(nil) == 0).
func Checksum(data []byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b // wraps mod 256 per byte
	}

	return -sum
}

// VerifyChecksum reports whether expected is the valid IPMI checksum
// for data. Used on every decoded message span; pure and deterministic.
func VerifyChecksum(data []byte, expected uint8) bool {
	return Checksum(data) == expected
}
