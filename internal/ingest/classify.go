package ingest

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

// Rule maps a path suffix to an artifact kind.
//
// Suffix is a slash-separated pattern matched against the trailing
// segments of an entry path. A final "*" segment matches any single
// segment and captures it as the device ID; rules without a wildcard
// match fleet-scoped artifacts that belong to the whole capture rather
// than one device. Specificity is the number of suffix segments.
type Rule struct {
	Suffix string
	Kind   capture.ArtifactKind
}

// DefaultRules returns the classification rules for the standard
// diagnostic bundle layout (logcapture-<host>/lighting/...).
func DefaultRules() []Rule {
	return []Rule{
		{Suffix: "lighting/NetworkDevice/*", Kind: capture.ArtifactNetwork},
		{Suffix: "lighting/SystemHealth/*", Kind: capture.ArtifactHealth},
		{Suffix: "lighting/CrashReporter/*", Kind: capture.ArtifactCrash},
		{Suffix: "lighting/lightingHistory/*", Kind: capture.ArtifactLightingHistory},
		{Suffix: "lighting/lightingHistory.sqlite", Kind: capture.ArtifactLightingHistory},
		{Suffix: "lighting/wifilist.out", Kind: capture.ArtifactWifi},
		{Suffix: "lighting/systemstats", Kind: capture.ArtifactSystemStats},
	}
}

// Classification is the outcome of matching one entry path.
type Classification struct {
	Kind capture.ArtifactKind

	// DeviceID is the captured device segment, or empty for
	// fleet-scoped artifacts.
	DeviceID string
}

// Classifier applies an ordered rule list to entry paths.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier from an ordered rule list.
// A nil or empty list falls back to DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify matches a cleaned entry path against the rules.
//
// The most specific match (longest suffix in segments) wins. Matches of
// equal specificity are ambiguous: the earliest rule in declaration
// order wins deterministically and a warning is recorded for each rule
// it shadowed. ok is false when no rule matches at all.
func (c *Classifier) Classify(entryPath string) (Classification, []capture.Warning, bool) {
	segments := strings.Split(entryPath, "/")

	var (
		best     Classification
		bestRule Rule
		bestLen  int
		matched  bool
		warnings []capture.Warning
	)
	for _, rule := range c.rules {
		cls, specificity, ok := matchRule(rule, segments)
		if !ok {
			continue
		}
		switch {
		case !matched || specificity > bestLen:
			best, bestRule, bestLen, matched = cls, rule, specificity, true
		case specificity == bestLen:
			warnings = append(warnings, capture.Warning{
				Code: warnAmbiguous,
				Path: entryPath,
				Message: fmt.Sprintf("path matches %q and %q with equal specificity; using %q",
					bestRule.Suffix, rule.Suffix, bestRule.Suffix),
			})
		}
	}

	if !matched {
		return Classification{}, warnings, false
	}
	return best, warnings, true
}

// matchRule matches a single rule against pre-split path segments.
// It returns the classification, the rule's specificity, and whether the
// rule matched.
func matchRule(rule Rule, segments []string) (Classification, int, bool) {
	pattern := strings.Split(rule.Suffix, "/")
	if len(pattern) == 0 || len(segments) < len(pattern) {
		return Classification{}, 0, false
	}

	tail := segments[len(segments)-len(pattern):]

	var deviceID string
	for i, want := range pattern {
		// Only a final "*" is a wildcard; elsewhere it is a literal.
		if want == "*" && i == len(pattern)-1 {
			deviceID = tail[i]
			continue
		}
		if want != tail[i] {
			return Classification{}, 0, false
		}
	}

	return Classification{Kind: rule.Kind, DeviceID: deviceID}, len(pattern), true
}
