package id

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sync"

	"github.com/benbjohnson/clock"
)

// ID is a 128-bit, lexicographically sortable identifier encoded as 16 bytes
// big-endian: [8 bytes ms_timestamp][8 bytes sequence].
type ID [16]byte

// Bytes returns a copy of the raw 16-byte representation.
func (i ID) Bytes() []byte { b := make([]byte, 16); copy(b, i[:]); return b }

// String returns the hex encoding.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// Millis returns the timestamp component.
func (i ID) Millis() int64 { return int64(binary.BigEndian.Uint64(i[0:8])) }

// Seq returns the sequence component.
func (i ID) Seq() uint64 { return binary.BigEndian.Uint64(i[8:16]) }

// Compare returns -1, 0, 1 based on lexical comparison.
func (i ID) Compare(other ID) int {
	for idx := 0; idx < 16; idx++ {
		if i[idx] < other[idx] {
			return -1
		}
		if i[idx] > other[idx] {
			return 1
		}
	}
	return 0
}

// FromBytes parses a 16-byte key.
func FromBytes(b []byte) (ID, error) {
	var i ID
	if len(b) != len(i) {
		return i, fmt.Errorf("id: want 16 bytes, got %d", len(b))
	}
	copy(i[:], b)
	return i, nil
}

// Generator produces strictly increasing IDs per process.
type Generator struct {
	clock clock.Clock

	mu       sync.Mutex
	lastMs   int64
	sequence uint64
}

// NewGenerator creates a Generator reading time from clk (nil means wall clock).
func NewGenerator(clk clock.Clock) *Generator {
	if clk == nil {
		clk = clock.New()
	}
	return &Generator{clock: clk, lastMs: math.MinInt64}
}

// Resume makes later IDs sort after last. Used when reopening a store.
func (g *Generator) Resume(last ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if last.Millis() > g.lastMs || (last.Millis() == g.lastMs && last.Seq() > g.sequence) {
		g.lastMs = last.Millis()
		g.sequence = last.Seq()
	}
}

// Next returns a new ID. A regressing clock pins to the last seen
// millisecond; an exhausted sequence rolls over into the next millisecond.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.clock.Now().UnixMilli()
	if ms <= g.lastMs {
		ms = g.lastMs
		if g.sequence == math.MaxUint64 {
			ms++
			g.sequence = 0
		} else {
			g.sequence++
		}
	} else {
		g.sequence = 0
	}
	g.lastMs = ms
	return makeID(ms, g.sequence)
}

func makeID(ms int64, seq uint64) ID {
	var id ID
	binary.BigEndian.PutUint64(id[0:8], uint64(ms))
	binary.BigEndian.PutUint64(id[8:16], seq)
	return id
}
