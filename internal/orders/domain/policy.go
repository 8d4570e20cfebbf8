package domain

import (
	"fmt"
	"os"

	"salesops_backend/platform/apperr"

	"gopkg.in/yaml.v3"
)

// Policy decides whether an order may move between two statuses.
//
// The zero-configuration policy only checks the vocabulary: any known status
// may follow any other, branch states are always reachable, and Replacement
// is terminal. A deployment may restrict pipeline moves per source status
// with a YAML table:
//
//	orders:
//	  LocatePending: [POPending]
//	  POPending: [POSent, LocatePending]
//
// Unlisted source statuses stay unrestricted.
type Policy struct {
	restricted map[Status]map[Status]struct{}
}

type policyFile struct {
	Orders map[string][]string `yaml:"orders"`
}

// Unrestricted returns the vocabulary-only policy.
func Unrestricted() *Policy {
	return &Policy{restricted: map[Status]map[Status]struct{}{}}
}

// LoadPolicy reads a policy file. An empty path yields Unrestricted.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return Unrestricted(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read order transition policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy parses a YAML policy table.
func ParsePolicy(data []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse order transition policy: %w", err)
	}

	p := Unrestricted()
	for from, targets := range file.Orders {
		src := Status(from)
		if !src.IsKnown() {
			return nil, fmt.Errorf("order transition policy: unknown status %q", from)
		}
		allowed := make(map[Status]struct{}, len(targets))
		for _, to := range targets {
			dst := Status(to)
			if !dst.IsKnown() {
				return nil, fmt.Errorf("order transition policy: unknown target %q for %q", to, from)
			}
			allowed[dst] = struct{}{}
		}
		p.restricted[src] = allowed
	}
	return p, nil
}

// Check returns nil when from → to is legal. Same-status requests are the
// caller's concern (they are treated as no-ops before reaching here).
func (p *Policy) Check(from, to Status) error {
	if !to.IsKnown() {
		return apperr.Validation(fmt.Sprintf("unknown order status %q", to))
	}
	if from.IsTerminal() {
		return apperr.InvalidPredecessor(string(from), string(to))
	}
	if to.IsBranch() {
		return nil
	}
	allowed, ok := p.restricted[from]
	if !ok {
		return nil
	}
	if _, ok := allowed[to]; !ok {
		return apperr.InvalidPredecessor(string(from), string(to))
	}
	return nil
}
