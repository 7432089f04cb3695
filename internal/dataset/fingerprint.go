package dataset

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint hashes the header and every cell with BLAKE2b-256. Two
// datasets with the same shape, names and cells share a fingerprint
// regardless of their source name.
func (d *Dataset) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	var buf [8]byte

	writeField := func(s string, null bool) {
		if null {
			h.Write([]byte{0})
			return
		}
		binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write([]byte{1})
		h.Write(buf[:])
		h.Write([]byte(s))
	}

	binary.BigEndian.PutUint64(buf[:], uint64(len(d.columns)))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(d.rows))
	h.Write(buf[:])
	for _, c := range d.columns {
		writeField(c.Name, false)
	}
	for i := 0; i < d.rows; i++ {
		for _, c := range d.columns {
			v := c.Values[i]
			writeField(v.Raw, v.Null)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
