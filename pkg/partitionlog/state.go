// Copyright 2025 Takhin Data, Inc.

// Package partitionlog binds one Kafka partition to its underlying log
// store and producer-state manager, owning the lifecycle that takes a
// partition from cold storage to serving reads and writes, and back.
package partitionlog

// State is the lifecycle stage of a PartitionLog.
type State int32

const (
	// Uninitialised is the state before Initialise has ever been called.
	Uninitialised State = iota
	// Recovering means a recovery pass (snapshot load + replay) is under way;
	// Append and Fetch return ErrNotReady until it completes, while
	// CompleteTxn waits for it via AwaitInitialisation.
	Recovering
	// Ready means the partition has a consistent producer-state view and
	// serves Append/Fetch.
	Ready
	// Unloaded means the partition was taken offline (e.g. the broker lost
	// leadership); a subsequent Initialise moves it back to Recovering.
	Unloaded
)

func (s State) String() string {
	switch s {
	case Uninitialised:
		return "Uninitialised"
	case Recovering:
		return "Recovering"
	case Ready:
		return "Ready"
	case Unloaded:
		return "Unloaded"
	default:
		return "Unknown"
	}
}
