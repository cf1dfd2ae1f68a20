package tournament

import (
	"crypto/rand"
	"encoding/binary"
	"os"
	"time"
)

const golden = 0x9E3779B97F4A7C15

// splitmix64 at position n of the stream starting at base. Stateless so that
// concurrent workers derive the same hand for the same game index.
func seedAt(base uint64, n int) uint64 {
	z := base + uint64(n+1)*golden
	z ^= z >> 30
	z *= 0xBF58476D1CE4E5B9
	z ^= z >> 27
	z *= 0x94D049BB133111EB
	z ^= z >> 31
	return z
}

// SecureBaseSeed picks a fresh stream base when none was configured.
func SecureBaseSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return binary.LittleEndian.Uint64(b[:]) ^ uint64(time.Now().UnixNano()) ^ uint64(os.Getpid())
	}
	return uint64(time.Now().UnixNano()) ^ 0xA5A5A5A5A5A5A5A5
}
