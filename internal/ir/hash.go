package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content identity. The version suffix allows a future
// algorithm migration.
const (
	DomainScenario = "storyboard/scenario/v1"
	DomainStory    = "storyboard/story/v1"
	DomainFiring   = "storyboard/firing/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null separator
// keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash canonicalizes v and hashes it under domain.
func ContentHash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("content hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// ScenarioHash identifies a compiled scenario. Two scenarios with the same
// stories in the same order hash equal regardless of how they were written.
func ScenarioHash(sc Scenario) (string, error) {
	return ContentHash(DomainScenario, DescribeScenario(sc))
}

// StoryHash identifies a single story spec.
func StoryHash(s Story) (string, error) {
	return ContentHash(DomainStory, DescribeStory(s))
}

// MustScenarioHash is like ScenarioHash but panics on error.
// Use only in tests or when the scenario is known to be valid.
func MustScenarioHash(sc Scenario) string {
	h, err := ScenarioHash(sc)
	if err != nil {
		panic(err)
	}
	return h
}
