package audit

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// versionSuffixBytes is the number of random bytes appended to a version.
// The suffix only disambiguates same-instant issuance; it carries no
// ordering meaning.
const versionSuffixBytes = 3

// VersionGenerator issues calculation version identifiers.
//
// A version is "{clock}-{suffix}" where clock is the issuance instant in
// microseconds since the Unix epoch, zero-padded hex so lexical order equals
// numeric order, and suffix is random hex. Versions are strictly increasing
// in issuance order within a generator: a mutex-guarded floor advances the
// clock component past the last issued value even if the wall clock stalls
// or steps backwards.
type VersionGenerator struct {
	mu         sync.Mutex
	lastMicros int64
}

// NewVersionGenerator creates a new version generator
func NewVersionGenerator() *VersionGenerator {
	return &VersionGenerator{}
}

// Next issues the next calculation version
func (g *VersionGenerator) Next() string {
	g.mu.Lock()
	micros := time.Now().UnixMicro()
	if micros <= g.lastMicros {
		micros = g.lastMicros + 1
	}
	g.lastMicros = micros
	g.mu.Unlock()

	suffix := make([]byte, versionSuffixBytes)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand never fails on supported platforms; fall back to the
		// clock's low bits rather than issuing an empty suffix.
		return fmt.Sprintf("%016x-%06x", micros, micros&0xffffff)
	}
	return fmt.Sprintf("%016x-%s", micros, hex.EncodeToString(suffix))
}

// VersionTime extracts the issuance instant encoded in a version
func VersionTime(version string) (time.Time, error) {
	clock, _, ok := strings.Cut(version, "-")
	if !ok {
		return time.Time{}, fmt.Errorf("malformed calculation version %q", version)
	}
	micros, err := strconv.ParseInt(clock, 16, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed calculation version %q: %w", version, err)
	}
	return time.UnixMicro(micros), nil
}

// CompareVersions orders two versions by their clock component; the random
// suffix breaks ties only between same-instant issuances. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	clockA, suffixA, _ := strings.Cut(a, "-")
	clockB, suffixB, _ := strings.Cut(b, "-")
	if clockA != clockB {
		if clockA < clockB {
			return -1
		}
		return 1
	}
	if suffixA != suffixB {
		if suffixA < suffixB {
			return -1
		}
		return 1
	}
	return 0
}
