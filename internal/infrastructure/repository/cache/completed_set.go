package cache

import (
	"encoding/binary"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const completedSetFalsePositiveRate = 0.001

// CompletedSet is a bloom filter of completed match ids guarded for
// concurrent workers.
type CompletedSet struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

func NewCompletedSet(expected uint) *CompletedSet {
	if expected < 1 {
		expected = 1
	}
	return &CompletedSet{filter: bloom.NewWithEstimates(expected, completedSetFalsePositiveRate)}
}

func (s *CompletedSet) Add(matchID int64) {
	key := matchKey(matchID)
	s.mu.Lock()
	s.filter.Add(key[:])
	s.mu.Unlock()
}

func (s *CompletedSet) MayContain(matchID int64) bool {
	key := matchKey(matchID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Test(key[:])
}

func matchKey(matchID int64) [8]byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(matchID))
	return key
}
