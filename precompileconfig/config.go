// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package precompileconfig defines the JSON-config plumbing shared by all
// stateful precompile modules: each module's config is keyed in the chain
// config file and carries an activation/deactivation upgrade schedule.
package precompileconfig

// Config is implemented by each precompile's config struct.
type Config interface {
	// Key returns the unique key for this precompile in the chain config json.
	Key() string
	// Timestamp returns the activation timestamp, or nil if never enabled.
	Timestamp() *uint64
	// IsDisabled returns true if this config disables the precompile.
	IsDisabled() bool
	// Equal reports whether the given config is semantically identical.
	Equal(Config) bool
	// Verify checks the config is self-consistent before it is applied.
	Verify(chainConfig ChainConfig) error
}

// ChainConfig exposes the chain-wide settings a config may need to verify
// itself against.
type ChainConfig interface {
	// IsPrecompileEnabled reports whether the precompile at the given config
	// key is active at the given block timestamp.
	IsPrecompileEnabled(configKey string, timestamp uint64) bool
}

// Upgrade schedules when a precompile activates or deactivates.
type Upgrade struct {
	BlockTimestamp *uint64 `json:"blockTimestamp,omitempty"`
	Disable        bool    `json:"disable,omitempty"`
}

// Timestamp returns the upgrade activation timestamp.
func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

// Equal reports whether two upgrade schedules are identical.
func (u *Upgrade) Equal(other *Upgrade) bool {
	if other == nil {
		return false
	}
	if u.Disable != other.Disable {
		return false
	}
	if (u.BlockTimestamp == nil) != (other.BlockTimestamp == nil) {
		return false
	}
	if u.BlockTimestamp != nil && *u.BlockTimestamp != *other.BlockTimestamp {
		return false
	}
	return true
}
