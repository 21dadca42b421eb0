package sqlite

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/flemzord/confidant/internal/embedding"
)

// encodeVector packs v as little-endian float32. An empty vector encodes
// to NULL.
func encodeVector(v embedding.Vector) any {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(blob []byte) (embedding.Vector, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("sqlite: vector blob of %d bytes is not a float32 array", len(blob))
	}
	v := make(embedding.Vector, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v, nil
}
