// Package statesync maintains a versioned, checksummed local state,
// applies optimistic mutations, and detects conflicts against state
// versions announced by the producer.
package statesync

import (
	"encoding/json"
	"sync"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/mathonsunday/agentic-ui-lab-sub001/envelope"
	"github.com/mathonsunday/agentic-ui-lab-sub001/errors"
)

// VersionedState is a snapshot of the synchronized state. Version
// increments on every accepted local or remote mutation; Checksum is a
// deterministic function of Payload only.
type VersionedState struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	Payload  json.RawMessage `json:"payload"`
}

// SyncResult reports the outcome of reconciling with a remote state.
type SyncResult struct {
	HasConflict   bool
	LocalVersion  int
	RemoteVersion int
}

// Synchronizer applies optimistic patch operations locally and reconciles
// against producer-announced state. Conflict resolution policy belongs to
// the caller: on conflict the local state is reported, never overwritten.
type Synchronizer struct {
	mu    sync.Mutex
	state VersionedState
}

// NewSynchronizer creates a synchronizer over an initial payload at
// version 0.
func NewSynchronizer(initial any) (*Synchronizer, error) {
	raw, err := json.Marshal(initial)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Synchronizer", "NewSynchronizer", "initial marshal")
	}
	sum, err := Checksum(raw)
	if err != nil {
		return nil, err
	}
	return &Synchronizer{
		state: VersionedState{Version: 0, Checksum: sum, Payload: raw},
	}, nil
}

// State returns a copy of the current versioned state.
func (s *Synchronizer) State() VersionedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Payload = append(json.RawMessage(nil), s.state.Payload...)
	return out
}

// Version returns the current local version.
func (s *Synchronizer) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Version
}

// OptimisticUpdate applies patch operations locally and increments the
// version. Operations use the RFC 6902 vocabulary carried by STATE_DELTA
// envelopes. A failed patch leaves the state untouched.
func (s *Synchronizer) OptimisticUpdate(ops []envelope.PatchOp) error {
	if len(ops) == 0 {
		return nil
	}

	patchDoc, err := json.Marshal(ops)
	if err != nil {
		return errors.WrapInvalid(err, "Synchronizer", "OptimisticUpdate", "ops marshal")
	}
	patch, err := jsonpatch.DecodePatch(patchDoc)
	if err != nil {
		return errors.WrapInvalid(err, "Synchronizer", "OptimisticUpdate", "patch decode")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	applied, err := patch.Apply(s.state.Payload)
	if err != nil {
		return errors.WrapInvalid(errors.ErrPatchFailed, "Synchronizer", "OptimisticUpdate", err.Error())
	}
	sum, err := Checksum(applied)
	if err != nil {
		return err
	}

	s.state = VersionedState{
		Version:  s.state.Version + 1,
		Checksum: sum,
		Payload:  applied,
	}
	return nil
}

// SyncWithServer compares the remote version against the local one. A
// strictly greater local version reports a conflict and keeps the local
// state; otherwise the remote state is adopted.
func (s *Synchronizer) SyncWithServer(remote VersionedState) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := SyncResult{
		LocalVersion:  s.state.Version,
		RemoteVersion: remote.Version,
	}

	if s.state.Version > remote.Version {
		result.HasConflict = true
		return result, nil
	}

	// Verify the announced checksum before adopting, when present
	if remote.Checksum != "" {
		sum, err := Checksum(remote.Payload)
		if err != nil {
			return result, err
		}
		if sum != remote.Checksum {
			return result, errors.WrapInvalid(errors.ErrChecksumMismatch,
				"Synchronizer", "SyncWithServer", "remote payload digest")
		}
	}

	s.state = VersionedState{
		Version:  remote.Version,
		Checksum: remote.Checksum,
		Payload:  append(json.RawMessage(nil), remote.Payload...),
	}
	result.LocalVersion = remote.Version
	return result, nil
}

// PayloadAs decodes the current payload into out.
func (s *Synchronizer) PayloadAs(out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := json.Unmarshal(s.state.Payload, out); err != nil {
		return errors.WrapInvalid(err, "Synchronizer", "PayloadAs", "decode")
	}
	return nil
}
