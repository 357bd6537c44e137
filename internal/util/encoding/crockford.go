package encoding

import (
	"strings"
)

const crockfordBase32Alphabet = "0123456789abcdefghjkmnpqrstvwxyz" // Crockford's Base32 alphabet, lowercase

// EncodeCrockfordB32LC encodes a byte slice using Crockford's Base32 alphabet and returns
// the result in lowercase. The alphabet leaves out easily confused characters, which
// keeps generated image names safe to read aloud and to use in file names and URLs.
//
//nolint:gosec
func EncodeCrockfordB32LC(input []byte) string {
	var (
		result strings.Builder
		bits   uint
		accum  uint
	)

	result.Grow((len(input)*8 + 4) / 5)

	for _, b := range input {
		accum = accum<<8 | uint(b)
		bits += 8

		for bits >= 5 {
			bits -= 5
			result.WriteByte(crockfordBase32Alphabet[(accum>>bits)&0x1F])
		}
	}

	if bits > 0 {
		result.WriteByte(crockfordBase32Alphabet[(accum<<(5-bits))&0x1F])
	}

	return result.String()
}

// NormalizeCrockfordB32LC normalizes a Crockford Base32 string by:
// - Removing all whitespace
// - Converting to lowercase
// - Replacing 'O' with '0'
// - Replacing 'I' and 'L' with '1'
// This helps handle common human transcription errors and variations in input.
func NormalizeCrockfordB32LC(input string) string {
	var result strings.Builder

	for _, char := range strings.ToLower(input) {
		switch char {
		case ' ':
		case 'o':
			result.WriteRune('0')
		case 'i', 'l':
			result.WriteRune('1')
		default:
			result.WriteRune(char)
		}
	}

	return result.String()
}
