package embedding

import (
	"encoding/binary"
	"math"
	"strings"
)

// vectorToBytes encodes a float32 vector as little-endian FLOAT32 bytes,
// the layout FT HNSW indexes expect in hash fields.
func vectorToBytes(vec []float32) string {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return string(buf)
}

// bytesToVector decodes a stored FLOAT32 field back into a vector.
func bytesToVector(s string) []float32 {
	if len(s) < 4 {
		return nil
	}
	vec := make([]float32, len(s)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(s[i*4 : i*4+4])))
	}
	return vec
}

// tagEscaper escapes FT TAG query metacharacters (uuids carry hyphens).
var tagEscaper = strings.NewReplacer(
	"-", "\\-", ".", "\\.", ":", "\\:", "{", "\\{", "}", "\\}",
	"|", "\\|", "@", "\\@", " ", "\\ ",
)

func escapeTag(v string) string {
	return tagEscaper.Replace(v)
}
