package chartconfig

import (
	"crypto/sha256"
	"fmt"
)

// ComputeVersion returns cfg.Version when set, otherwise a short hash of the
// chart's YAML encoding. Map keys are encoded sorted, so equal charts hash
// equally.
func ComputeVersion(cfg *ChartConfig) string {
	if cfg.Version != "" {
		return cfg.Version
	}
	data, err := Marshal(cfg)
	if err != nil {
		return "unversioned"
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:8])
}
