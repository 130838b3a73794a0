package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Modes.
const (
	ModeAuto = "auto" // admit specs passing the allow and block lists (default)
	ModeDeny = "deny" // admit nothing
)

// ErrDenied is returned for a spec the policy does not admit.
var ErrDenied = errors.New("policy: spec not allowed")

// Policy filters spec ids. Allow and Block entries are case-insensitive
// glob patterns, e.g. "reports-*". A nil *Policy admits everything.
type Policy struct {
	Mode  string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Allow []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	Block []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// Validate checks the mode and patterns.
func (p *Policy) Validate() error {
	if p == nil {
		return nil
	}
	switch p.Mode {
	case "", ModeAuto, ModeDeny:
	default:
		return fmt.Errorf("policy: unsupported mode %q", p.Mode)
	}
	for _, pattern := range append(append([]string{}, p.Allow...), p.Block...) {
		if !doublestar.ValidatePattern(strings.ToLower(pattern)) {
			return fmt.Errorf("policy: invalid pattern %q", pattern)
		}
	}
	return nil
}

// IsAllowed reports whether specID may be submitted. Block has priority;
// an empty Allow admits every spec not blocked.
func (p *Policy) IsAllowed(specID string) bool {
	if p == nil {
		return true
	}
	if p.Mode == ModeDeny {
		return false
	}
	normalized := strings.ToLower(specID)
	if matchAny(p.Block, normalized) {
		return false
	}
	return len(p.Allow) == 0 || matchAny(p.Allow, normalized)
}

// Check returns ErrDenied when specID is not allowed.
func (p *Policy) Check(specID string) error {
	if p.IsAllowed(specID) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrDenied, specID)
}

func matchAny(patterns []string, specID string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(strings.ToLower(pattern), specID); ok {
			return true
		}
	}
	return false
}
