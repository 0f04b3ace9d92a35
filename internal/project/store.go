package project

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"

	"github.com/archiai/studio/internal/errors"
	"github.com/archiai/studio/internal/persist"
	"github.com/archiai/studio/internal/storage"
	"github.com/archiai/studio/internal/store"
)

const (
	// StorageKey is the key the persisted snapshot lives under.
	StorageKey = "project-storage"

	// SnapshotVersion is the envelope version written by this package.
	SnapshotVersion = 1
)

// State is the Project Store state.
type State struct {
	Projects       []Project `json:"projects"`
	CurrentProject *Project  `json:"currentProject"`
	Loading        bool      `json:"loading"`
	Error          *string   `json:"error"`
}

// snapshot is the persisted subset of State.
type snapshot struct {
	Projects       []Project `json:"projects"`
	CurrentProject *Project  `json:"currentProject"`
}

func defaultState() State {
	return State{Projects: []Project{}}
}

func cloneState(s State) State {
	out := s
	out.Projects = cloneProjects(s.Projects)
	out.CurrentProject = cloneProjectPtr(s.CurrentProject)
	if s.Error != nil {
		msg := *s.Error
		out.Error = &msg
	}
	return out
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	strictIDs bool
}

// WithLogger sets the logger used for rehydration warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStrictIDs makes AddProject and SetProjects reject duplicate ids.
func WithStrictIDs(strict bool) Option {
	return func(o *options) {
		o.strictIDs = strict
	}
}

// Store is the Project Store. It is safe for concurrent use.
type Store struct {
	c         *store.Container[State]
	snap      *persist.Snapshotter[snapshot]
	logger    *slog.Logger
	strictIDs bool
}

// Open creates a Store backed by kv and rehydrates it from the persisted
// snapshot. An unreadable or too-new snapshot is logged and ignored; a
// failing backend is returned as an error.
func Open(ctx context.Context, kv storage.Storage, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{
		snap:      persist.New[snapshot](kv, StorageKey, SnapshotVersion, migrate),
		logger:    o.logger,
		strictIDs: o.strictIDs,
	}
	s.c = store.New(defaultState(), cloneState, s.persist)

	if err := s.Rehydrate(ctx); err != nil {
		if !persist.IsInvalidSnapshot(err) {
			return nil, err
		}
		s.logger.Warn("ignoring unusable project snapshot, starting empty", "key", StorageKey, "error", err)
	}
	return s, nil
}

// migrate upgrades older snapshots. Version 0 blobs have the current shape.
func migrate(state json.RawMessage, _ int) (json.RawMessage, error) {
	return state, nil
}

func (s *Store) persist(ctx context.Context, st State) error {
	return s.snap.Save(ctx, snapshot{
		Projects:       st.Projects,
		CurrentProject: st.CurrentProject,
	})
}

// Rehydrate replaces the persisted fields with the stored snapshot.
// Loading and Error are left alone. A missing snapshot changes nothing.
func (s *Store) Rehydrate(ctx context.Context) error {
	snap, found, err := s.snap.Load(ctx)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if snap.Projects == nil {
		snap.Projects = []Project{}
	}
	s.c.Hydrate(func(st *State) {
		st.Projects = snap.Projects
		st.CurrentProject = snap.CurrentProject
	})
	s.logger.Debug("rehydrated project store", "projects", len(snap.Projects), "has_current", snap.CurrentProject != nil)
	return nil
}

// ClearStorage removes the persisted snapshot. The in-memory state is kept
// and is written again by the next mutation.
func (s *Store) ClearStorage(ctx context.Context) error {
	return s.snap.Clear(ctx)
}

// State returns a copy of the current state.
func (s *Store) State() State {
	return s.c.Get()
}

// Find returns the first project with the given id.
func (s *Store) Find(id string) (Project, bool) {
	st := s.c.Get()
	for _, p := range st.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// Subscribe registers fn to receive every committed state.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.c.Subscribe(store.Listener[State](fn))
}

// SetProjects replaces the project list. The selection is not touched.
func (s *Store) SetProjects(ctx context.Context, list []Project) error {
	if s.strictIDs {
		seen := make(map[string]bool, len(list))
		for _, p := range list {
			if seen[p.ID] {
				return errors.NewDuplicateID(p.ID)
			}
			seen[p.ID] = true
		}
	}
	list = cloneProjects(list)
	if list == nil {
		list = []Project{}
	}
	return s.c.Update(ctx, func(st *State) error {
		st.Projects = list
		return nil
	})
}

// SetCurrentProject replaces the selection. nil clears it. The project does
// not have to be in the list.
func (s *Store) SetCurrentProject(ctx context.Context, p *Project) error {
	p = cloneProjectPtr(p)
	return s.c.Update(ctx, func(st *State) error {
		st.CurrentProject = p
		return nil
	})
}

// AddProject appends p. It does not become the selection.
func (s *Store) AddProject(ctx context.Context, p Project) error {
	p = p.Clone()
	return s.c.Update(ctx, func(st *State) error {
		if s.strictIDs {
			for _, existing := range st.Projects {
				if existing.ID == p.ID {
					return errors.NewDuplicateID(p.ID)
				}
			}
		}
		st.Projects = append(st.Projects, p)
		return nil
	})
}

// UpdateProject merges patch onto every project with the given id, and onto
// the selection if it has that id. Updating a missing id is not an error.
func (s *Store) UpdateProject(ctx context.Context, id string, patch Patch) error {
	return s.c.Update(ctx, func(st *State) error {
		for i, p := range st.Projects {
			if p.ID == id {
				st.Projects[i] = patch.Apply(p)
			}
		}
		if st.CurrentProject != nil && st.CurrentProject.ID == id {
			cur := patch.Apply(*st.CurrentProject)
			st.CurrentProject = &cur
		}
		return nil
	})
}

// DeleteProject removes every project with the given id and clears the
// selection if it has that id.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.c.Update(ctx, func(st *State) error {
		st.Projects = slices.DeleteFunc(st.Projects, func(p Project) bool {
			return p.ID == id
		})
		if st.CurrentProject != nil && st.CurrentProject.ID == id {
			st.CurrentProject = nil
		}
		return nil
	})
}

// SetLoading sets the loading flag. It is never persisted.
func (s *Store) SetLoading(ctx context.Context, loading bool) error {
	return s.c.Update(ctx, func(st *State) error {
		st.Loading = loading
		return nil
	})
}

// SetError sets or clears (nil) the error message. It is never persisted.
func (s *Store) SetError(ctx context.Context, msg *string) error {
	if msg != nil {
		v := *msg
		msg = &v
	}
	return s.c.Update(ctx, func(st *State) error {
		st.Error = msg
		return nil
	})
}
