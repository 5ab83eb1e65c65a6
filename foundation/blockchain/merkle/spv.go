package merkle

import "sync"

// Header is the part of a block header a light client needs to check an
// inclusion proof.
type Header struct {
	MerkleRoot  string `json:"merkle_root"`
	BlockHeight uint64 `json:"block_height"`
	TimeStamp   int64  `json:"timestamp"`
}

// SPV caches block headers and verifies transaction inclusion against them
// without access to the full blocks.
type SPV struct {
	mu      sync.RWMutex
	headers map[string]Header
}

// NewSPV constructs an empty header cache.
func NewSPV() *SPV {
	return &SPV{
		headers: make(map[string]Header),
	}
}

// AddHeader records the header for the block hash.
func (s *SPV) AddHeader(blockHash string, header Header) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.headers[blockHash] = header
}

// VerifyInclusion checks the proof for the transaction against the cached
// header of the block.
func (s *SPV) VerifyInclusion(txID string, blockHash string, proof Proof) bool {
	s.mu.RLock()
	header, exists := s.headers[blockHash]
	s.mu.RUnlock()

	if !exists {
		return false
	}

	if proof.MerkleRoot != header.MerkleRoot || proof.TargetHash != txID {
		return false
	}

	return VerifyProof(proof)
}

// SPVStats describes the content of the header cache.
type SPVStats struct {
	CachedHeaders     int    `json:"cached_block_headers"`
	LatestBlockHeight uint64 `json:"latest_block_height"`
}

// Stats returns the cache statistics.
func (s *SPV) Stats() SPVStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := SPVStats{CachedHeaders: len(s.headers)}
	for _, h := range s.headers {
		if h.BlockHeight > stats.LatestBlockHeight {
			stats.LatestBlockHeight = h.BlockHeight
		}
	}

	return stats
}
