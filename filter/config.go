package filter

import (
	"io"

	"gopkg.in/yaml.v2"
)

// PartitionConfig carries the dataset-specific knobs the partitioner
// (C5/§4.7) needs: a blocklist of field prefixes that can never be
// classified simple (because they name denormalized array collections)
// and an allowlist of prefixes that are simple even though they are
// sub-paths rather than top-level scalars. §9's Open Questions flagged
// both lists as dataset-specific; this type is how they get promoted out
// of hardcoded literals into configuration.
type PartitionConfig struct {
	BlockedPrefixes []string `yaml:"blockedPrefixes"`
	AllowedPrefixes []string `yaml:"allowedPrefixes"`
}

// DefaultPartitionConfig matches the reference behavior described in
// §4.7: "prv_candidates", "fp_hists" are blocked; "candidate" is
// explicitly allowed as a sub-path prefix.
func DefaultPartitionConfig() PartitionConfig {
	return PartitionConfig{
		BlockedPrefixes: []string{"prv_candidates", "fp_hists"},
		AllowedPrefixes: []string{"candidate"},
	}
}

// LoadPartitionConfig parses a PartitionConfig from YAML, of the shape:
//
//	blockedPrefixes: [prv_candidates, fp_hists]
//	allowedPrefixes: [candidate]
func LoadPartitionConfig(r io.Reader) (PartitionConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return PartitionConfig{}, err
	}
	var cfg PartitionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return PartitionConfig{}, err
	}
	return cfg, nil
}

// IsBlocked reports whether field begins with one of cfg's blocked
// prefixes.
func (cfg PartitionConfig) IsBlocked(field string) bool {
	for _, p := range cfg.BlockedPrefixes {
		if hasPrefixSegment(field, p) {
			return true
		}
	}
	return false
}

// IsAllowedSubPath reports whether field begins with one of cfg's
// explicitly allowed sub-path prefixes (e.g. "candidate.mag").
func (cfg PartitionConfig) IsAllowedSubPath(field string) bool {
	for _, p := range cfg.AllowedPrefixes {
		if hasPrefixSegment(field, p) {
			return true
		}
	}
	return false
}

// hasPrefixSegment reports whether field is exactly prefix or begins
// with "prefix.", so "candidate" matches "candidate.mag" but not
// "candidate2".
func hasPrefixSegment(field, prefix string) bool {
	if field == prefix {
		return true
	}
	if len(field) > len(prefix) && field[:len(prefix)] == prefix && field[len(prefix)] == '.' {
		return true
	}
	return false
}
