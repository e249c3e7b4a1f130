// Package dedup implements the Dedup Index (spec §4.4): URL-seen and
// content-hash membership sets, plus the SimHash near-duplicate registry.
// It has no teacher analogue (the teacher never deduplicates); the exact
// membership sets follow the teacher's plain-map idiom seen throughout
// internal/crawler, and the bloom/simhash pieces are built fresh per spec.
package dedup

import "sync"

// Index backs the three Dedup Index queries from spec §4.4: seenURL,
// seenContent, and nearDuplicateHTML. It is owned exclusively by the
// single-threaded orchestrator (spec §5) so no internal locking is strictly
// required, but mutexes are kept cheap insurance since processors and the
// Scheduler both read/mutate it per spec §3's ownership note.
type Index struct {
	mu        sync.Mutex
	urlSeen   map[string]struct{}
	hashSeen  map[string]struct{}
	bloom     *BloomFilter
	simhash   *SimHashRegistry
}

// Options configures an Index.
type Options struct {
	// UseBloom backs the URL-seen set with a Bloom filter instead of a
	// strict set (spec §4.4, design note (a)). False positives only skip a
	// re-enqueue of an already-known URL; they never affect correctness
	// elsewhere, but tests that assert exact dedup counts should leave this
	// false (spec §9 design note).
	UseBloom          bool
	BloomExpectedItems uint
	BloomFalsePositive float64
	SimHashThreshold  float64
}

// New builds an Index per Options.
func New(opts Options) *Index {
	idx := &Index{
		urlSeen:  make(map[string]struct{}),
		hashSeen: make(map[string]struct{}),
		simhash:  NewSimHashRegistry(opts.SimHashThreshold),
	}
	if opts.UseBloom {
		idx.bloom = NewBloomFilter(opts.BloomExpectedItems, opts.BloomFalsePositive)
	}
	return idx
}

// SeenURL reports whether url_key has already been recorded.
func (idx *Index) SeenURL(urlKey string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.bloom != nil {
		return idx.bloom.MightContain(urlKey)
	}
	_, ok := idx.urlSeen[urlKey]
	return ok
}

// MarkURL records url_key as seen.
func (idx *Index) MarkURL(urlKey string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.bloom != nil {
		idx.bloom.Add(urlKey)
		return
	}
	idx.urlSeen[urlKey] = struct{}{}
}

// SeenContent reports whether sha256 has already been recorded.
func (idx *Index) SeenContent(sha256Hex string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.hashSeen[sha256Hex]
	return ok
}

// MarkContent records sha256 as seen.
func (idx *Index) MarkContent(sha256Hex string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.hashSeen[sha256Hex] = struct{}{}
}

// NearDuplicateHTML reports whether fp is a near-duplicate of any
// previously registered HTML SimHash fingerprint.
func (idx *Index) NearDuplicateHTML(fp uint64) bool {
	return idx.simhash.NearDuplicate(fp)
}

// RegisterHTML records fp for future near-duplicate comparisons.
func (idx *Index) RegisterHTML(fp uint64) {
	idx.simhash.Add(fp)
}

// URLCount returns the number of distinct URL keys recorded (0 when backed
// by a Bloom filter, which tracks no exact count).
func (idx *Index) URLCount() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.urlSeen)
}

// ContentCount returns the number of distinct content hashes recorded.
func (idx *Index) ContentCount() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.hashSeen)
}
