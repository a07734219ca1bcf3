package cache

import (
	"sync"
	"testing"
)

func TestCompletedSet_NoFalseNegatives(t *testing.T) {
	t.Parallel()

	set := NewCompletedSet(1000)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(offset int64) {
			defer wg.Done()
			for id := offset; id < 1000; id += 4 {
				set.Add(1_400_000 + id)
			}
		}(int64(w))
	}
	wg.Wait()

	for id := int64(0); id < 1000; id++ {
		if !set.MayContain(1_400_000 + id) {
			t.Fatalf("expected added id %d to test positive", 1_400_000+id)
		}
	}
}

func TestCompletedSet_RejectsMostAbsentIDs(t *testing.T) {
	t.Parallel()

	set := NewCompletedSet(100)
	for id := int64(1); id <= 100; id++ {
		set.Add(id)
	}

	positives := 0
	for id := int64(10_000); id < 11_000; id++ {
		if set.MayContain(id) {
			positives++
		}
	}
	if positives > 20 {
		t.Fatalf("expected few false positives, got=%d of 1000", positives)
	}
}

func TestCompletedSet_ZeroExpected(t *testing.T) {
	t.Parallel()

	set := NewCompletedSet(0)
	set.Add(42)
	if !set.MayContain(42) {
		t.Fatalf("expected added id to test positive")
	}
}
