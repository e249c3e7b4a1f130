package dedup

import (
	"encoding/binary"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
)

// BloomFilter is an optional, memory-bounded backing for the URL-seen set
// (spec §4.4, design note (a)). False positives are acceptable: a collision
// only causes a skip of re-enqueueing an already-known URL, never a missed
// dedup of genuinely new content. It uses the classic double-hashing
// technique (Kirsch-Mitzenmacher) over a single xxhash-64 to derive k
// independent bit positions without k separate hash functions.
type BloomFilter struct {
	bits *bitset.BitSet
	m    uint
	k    uint
}

// NewBloomFilter builds a filter sized for expectedItems at the given false
// positive rate (e.g. 0.01 for 1%).
func NewBloomFilter(expectedItems uint, falsePositiveRate float64) *BloomFilter {
	m, k := optimalParams(expectedItems, falsePositiveRate)
	return &BloomFilter{
		bits: bitset.New(m),
		m:    m,
		k:    k,
	}
}

func optimalParams(n uint, p float64) (m, k uint) {
	if n == 0 {
		n = 1
	}
	if p <= 0 || p >= 1 {
		p = 0.01
	}
	// m = -(n * ln(p)) / (ln(2)^2); k = (m/n) * ln(2)
	const ln2Squared = 0.4804530139182014
	const ln2 = 0.6931471805599453
	mf := -float64(n) * math.Log(p) / ln2Squared
	m = uint(mf) + 1
	kf := (float64(m) / float64(n)) * ln2
	k = uint(kf)
	if k < 1 {
		k = 1
	}
	if k > 16 {
		k = 16
	}
	return m, k
}

// Add inserts key into the filter.
func (f *BloomFilter) Add(key string) {
	h1, h2 := splitHash(key)
	for i := uint(0); i < f.k; i++ {
		pos := (h1 + uint64(i)*h2) % uint64(f.m)
		f.bits.Set(uint(pos))
	}
}

// MightContain reports whether key may have been added. A false return is
// definitive; a true return may be a false positive.
func (f *BloomFilter) MightContain(key string) bool {
	h1, h2 := splitHash(key)
	for i := uint(0); i < f.k; i++ {
		pos := (h1 + uint64(i)*h2) % uint64(f.m)
		if !f.bits.Test(uint(pos)) {
			return false
		}
	}
	return true
}

func splitHash(key string) (h1, h2 uint64) {
	sum := xxhash.Sum64String(key)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], sum)
	h1 = xxhash.Sum64(buf[:4])
	h2 = xxhash.Sum64(buf[4:])
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}
