package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"feedcurator/internal/feed"
)

// DefaultMax is the number of leading items that contribute to a fingerprint.
const DefaultMax = feed.DefaultMaxItems

// Compute returns the fingerprint of the first max items (DefaultMax when
// max <= 0). URLs are taken verbatim, so two sets share a fingerprint
// exactly when their sorted URL lists are equal. Empty input yields "".
func Compute(items []feed.CandidateItem, max int) string {
	if max <= 0 {
		max = DefaultMax
	}
	if len(items) > max {
		items = items[:max]
	}
	return FromURLs(feed.URLs(items))
}

// FromURLs fingerprints an already capped URL list.
func FromURLs(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	sorted := slices.Clone(urls)
	slices.Sort(sorted)

	hasher := sha256.New()
	for _, url := range sorted {
		writeComponent(hasher, url)
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

func writeComponent(hasher hashWriter, value string) {
	_, _ = hasher.Write([]byte(value))
	_, _ = hasher.Write([]byte{0})
}

type hashWriter interface {
	Write(p []byte) (int, error)
}
