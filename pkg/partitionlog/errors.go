// Copyright 2025 Takhin Data, Inc.

package partitionlog

import "errors"

var (
	// ErrNotReady is returned by Append/Fetch when the partition is not yet
	// (or no longer) in the Ready state.
	ErrNotReady = errors.New("partitionlog: partition not ready")
	// ErrUnloaded is returned by operations attempted against an unloaded
	// partition.
	ErrUnloaded = errors.New("partitionlog: partition is unloaded")
	// ErrAlreadyInitialising is returned when Initialise is called on a
	// partition that is already recovering.
	ErrAlreadyInitialising = errors.New("partitionlog: already recovering")
	// ErrSnapshotTopicMismatch means the most recent snapshot belongs to a
	// different topic incarnation (the topic was deleted and recreated)
	// and must be discarded in favor of a full replay.
	ErrSnapshotTopicMismatch = errors.New("partitionlog: snapshot topic uuid mismatch")
)
