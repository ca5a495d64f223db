package audit

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionGeneratorNext(t *testing.T) {
	t.Run("sequential versions strictly increase", func(t *testing.T) {
		gen := NewVersionGenerator()
		prev := gen.Next()
		for i := 0; i < 1000; i++ {
			next := gen.Next()
			assert.Equal(t, -1, CompareVersions(prev, next))
			prev = next
		}
	})

	t.Run("clock component tracks wall clock", func(t *testing.T) {
		gen := NewVersionGenerator()
		before := time.Now().Add(-time.Second)
		issued, err := VersionTime(gen.Next())
		require.NoError(t, err)
		assert.True(t, issued.After(before))
		assert.True(t, issued.Before(time.Now().Add(time.Second)))
	})
}

func TestVersionGeneratorConcurrency(t *testing.T) {
	const writers = 16
	const perWriter = 200

	gen := NewVersionGenerator()
	var mu sync.Mutex
	var wg sync.WaitGroup
	versions := make([]string, 0, writers*perWriter)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWriter)
			for i := 0; i < perWriter; i++ {
				local = append(local, gen.Next())
			}
			mu.Lock()
			versions = append(versions, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Pairwise distinct
	seen := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		_, dup := seen[v]
		require.False(t, dup, "duplicate version issued: %s", v)
		seen[v] = struct{}{}
	}

	// Lexical sort of the clock component equals issuance order
	sorted := make([]string, len(versions))
	copy(sorted, versions)
	sort.Strings(sorted)
	for i := 1; i < len(sorted); i++ {
		assert.Equal(t, -1, CompareVersions(sorted[i-1], sorted[i]))
	}
}

func TestVersionTime(t *testing.T) {
	t.Run("round trips the issuance instant", func(t *testing.T) {
		gen := NewVersionGenerator()
		before := time.Now()
		issued, err := VersionTime(gen.Next())
		require.NoError(t, err)
		assert.WithinDuration(t, before, issued, time.Second)
	})

	t.Run("rejects malformed versions", func(t *testing.T) {
		_, err := VersionTime("not-a-clock-component")
		require.Error(t, err)
		_, err = VersionTime("noseparator")
		require.Error(t, err)
	})
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, 0, CompareVersions("0001-aa", "0001-aa"))
	assert.Equal(t, -1, CompareVersions("0001-ff", "0002-00"))
	assert.Equal(t, 1, CompareVersions("0002-00", "0001-ff"))
	// Same instant: suffix breaks the tie
	assert.Equal(t, -1, CompareVersions("0001-aa", "0001-bb"))
}
