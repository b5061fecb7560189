package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type key struct{ problem, code string }

// Memory is an in-process repository. It stores copies, so callers may keep
// mutating the states they pass in.
type Memory struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*State
	byCode map[key]uuid.UUID
	order  []uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{
		byID:   make(map[uuid.UUID]*State),
		byCode: make(map[key]uuid.UUID),
	}
}

func (m *Memory) FindByCode(ctx context.Context, problem, code string) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byCode[key{problem, code}]
	if !ok {
		return nil, ErrNotFound
	}
	return m.byID[id].Clone(), nil
}

func (m *Memory) Get(ctx context.Context, id uuid.UUID) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return st.Clone(), nil
}

func (m *Memory) Save(ctx context.Context, st *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{st.Problem, st.Code}
	if id, ok := m.byCode[k]; ok {
		st.ID = id
		st.Count = m.byID[id].Count
	} else {
		if st.ID == uuid.Nil {
			st.ID = uuid.New()
		}
		if old, ok := m.byID[st.ID]; ok {
			// the state was re-rendered under a new code
			delete(m.byCode, key{old.Problem, old.Code})
			st.Count = old.Count
		} else {
			m.order = append(m.order, st.ID)
		}
		m.byCode[k] = st.ID
	}
	m.byID[st.ID] = st.Clone()
	return nil
}

func (m *Memory) Increment(ctx context.Context, id uuid.UUID, n int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	st.Count += n
	return st.Count, nil
}

func (m *Memory) Goals(ctx context.Context, problem string) ([]*State, error) {
	return m.list(ctx, problem, true)
}

func (m *Memory) States(ctx context.Context, problem string) ([]*State, error) {
	return m.list(ctx, problem, false)
}

func (m *Memory) list(ctx context.Context, problem string, goalsOnly bool) ([]*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*State
	for _, id := range m.order {
		st := m.byID[id]
		if st.Problem != problem || (goalsOnly && !st.IsGoal()) {
			continue
		}
		out = append(out, st.Clone())
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
