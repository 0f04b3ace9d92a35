// Package persist reads and writes versioned store snapshots.
//
// A snapshot is stored as {"state": <partial state>, "version": <n>}.
// Blobs written with an older version are passed through the owner's
// migration before decoding; blobs from a newer version are refused.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/storage"
)

// Envelope is the on-disk shape of a snapshot.
type Envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// Migrate rewrites a state written at version from into the current shape.
type Migrate func(state json.RawMessage, from int) (json.RawMessage, error)

// Identity is a Migrate that keeps the state as is.
func Identity(state json.RawMessage, _ int) (json.RawMessage, error) {
	return state, nil
}

// Snapshotter persists values of type T under one key.
type Snapshotter[T any] struct {
	kv      storage.Storage
	key     string
	version int
	migrate Migrate
}

// New creates a Snapshotter for key. version is the version written by Save
// and the highest version Load accepts. A nil migrate means Identity.
func New[T any](kv storage.Storage, key string, version int, migrate Migrate) *Snapshotter[T] {
	if migrate == nil {
		migrate = Identity
	}
	return &Snapshotter[T]{
		kv:      kv,
		key:     key,
		version: version,
		migrate: migrate,
	}
}

// Key returns the storage key.
func (s *Snapshotter[T]) Key() string {
	return s.key
}

// Version returns the version written by Save.
func (s *Snapshotter[T]) Version() int {
	return s.version
}

// Load reads and decodes the snapshot. found is false when the key is absent.
// Returns CORRUPT_SNAPSHOT or UNSUPPORTED_SNAPSHOT_VERSION for blobs that
// cannot be used.
func (s *Snapshotter[T]) Load(ctx context.Context) (T, bool, error) {
	var zero T

	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if ctx.Err() != nil {
			return zero, false, errors.NewCancelled("load snapshot")
		}
		return zero, false, errors.NewInternal(fmt.Errorf("reading snapshot %q: %w", s.key, err))
	}
	if !found {
		return zero, false, nil
	}

	state, err := s.Decode(raw)
	if err != nil {
		return zero, false, err
	}
	return state, true, nil
}

// Decode parses an envelope blob, migrating it when it is older than the
// current version.
func (s *Snapshotter[T]) Decode(raw []byte) (T, error) {
	var zero T

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, errors.NewCorruptSnapshot(s.key, err)
	}
	if len(env.State) == 0 || bytes.Equal(bytes.TrimSpace(env.State), []byte("null")) {
		return zero, errors.NewCorruptSnapshot(s.key, fmt.Errorf("missing state"))
	}
	if env.Version > s.version {
		return zero, errors.NewUnsupportedSnapshotVersion(s.key, env.Version, s.version)
	}
	if env.Version < 0 {
		return zero, errors.NewCorruptSnapshot(s.key, fmt.Errorf("negative version %d", env.Version))
	}

	state := env.State
	if env.Version < s.version {
		migrated, err := s.migrate(state, env.Version)
		if err != nil {
			return zero, errors.NewCorruptSnapshot(s.key, fmt.Errorf("migrating from version %d: %w", env.Version, err))
		}
		state = migrated
	}

	var out T
	if err := json.Unmarshal(state, &out); err != nil {
		return zero, errors.NewCorruptSnapshot(s.key, err)
	}
	return out, nil
}

// Encode wraps state in an envelope carrying the current version.
func (s *Snapshotter[T]) Encode(state T) ([]byte, error) {
	body, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{State: body, Version: s.version})
}

// Save writes state under the key, replacing the previous snapshot.
func (s *Snapshotter[T]) Save(ctx context.Context, state T) error {
	data, err := s.Encode(state)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("encoding snapshot %q: %w", s.key, err))
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		if ctx.Err() != nil {
			return errors.NewCancelled("save snapshot")
		}
		return errors.NewInternal(fmt.Errorf("writing snapshot %q: %w", s.key, err))
	}
	return nil
}

// Clear removes the snapshot. In-memory state is not affected.
func (s *Snapshotter[T]) Clear(ctx context.Context) error {
	if err := s.kv.Remove(ctx, s.key); err != nil {
		if ctx.Err() != nil {
			return errors.NewCancelled("clear snapshot")
		}
		return errors.NewInternal(fmt.Errorf("removing snapshot %q: %w", s.key, err))
	}
	return nil
}

// IsInvalidSnapshot reports whether err means the stored blob is unusable
// (as opposed to the storage backend failing).
func IsInvalidSnapshot(err error) bool {
	return errors.Is(err, errors.ErrCorruptSnapshot) || errors.Is(err, errors.ErrUnsupportedSnapshotVersion)
}
