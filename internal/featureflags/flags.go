// Package featureflags provides runtime switches read by the navigation
// service, backed by memory or PostgreSQL.
package featureflags

import (
	"sort"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagInstructionProviderDisabled forces self-computed voice
	// instructions regardless of INSTRUCTION_SOURCE.
	FlagInstructionProviderDisabled = "instruction_provider_disabled"

	// FlagShareCycleDisabled rejects share-cycle route requests.
	FlagShareCycleDisabled = "share_cycle_disabled"
)

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FlagList is a key-ordered list of flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// NewFlagList orders flags by key.
func NewFlagList(flags map[string]*Flag) FlagList {
	items := make([]Flag, 0, len(flags))
	for _, f := range flags {
		items = append(items, *f)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return FlagList{Items: items}
}

// BoolValue returns the flag value as a boolean.
// Returns the default value if the flag is nil or not a boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON numbers decode as float64
		return v != 0
	case string:
		switch v {
		case "true", "1", "on":
			return true
		case "false", "0", "off":
			return false
		}
	}
	return defaultValue
}

// DefaultFlags returns the flags used when the repository has no value.
func DefaultFlags() map[string]*Flag {
	var epoch time.Time
	return map[string]*Flag{
		FlagInstructionProviderDisabled: {
			Key:       FlagInstructionProviderDisabled,
			Value:     false,
			UpdatedAt: epoch,
		},
		FlagShareCycleDisabled: {
			Key:       FlagShareCycleDisabled,
			Value:     false,
			UpdatedAt: epoch,
		},
	}
}
