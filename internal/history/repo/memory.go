package repo

import (
	"context"
	"slices"
	"sync"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/history/entity"
)

type record struct {
	seq   int64
	owner int64
	entry entity.Entry
}

// MemoryRepo keeps history in process. Reads take a snapshot under the
// read lock.
type MemoryRepo struct {
	mu        sync.RWMutex
	seq       int64
	records   []record
	analogies map[string]*entity.Analogy
	ids       map[string]struct{}
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		analogies: make(map[string]*entity.Analogy),
		ids:       make(map[string]struct{}),
	}
}

func (r *MemoryRepo) appendLocked(owner int64, e entity.Entry) {
	r.seq++
	r.records = append(r.records, record{seq: r.seq, owner: owner, entry: e})
	r.ids[e.ID] = struct{}{}
}

func (r *MemoryRepo) AppendAnalogy(_ context.Context, a *entity.Analogy) error {
	cp := *a
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[cp.ID]; ok {
		return ErrDuplicate
	}
	r.analogies[cp.ID] = &cp
	r.appendLocked(cp.Owner, entity.AnalogyEntry(&cp))
	return nil
}

func (r *MemoryRepo) AppendQuiz(_ context.Context, q *entity.Quiz) error {
	cp := *q
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[cp.ID]; ok {
		return ErrDuplicate
	}
	src, ok := r.analogies[cp.SourceAnalogy]
	if !ok || src.Owner != cp.Owner {
		return ErrNotFound
	}
	r.appendLocked(cp.Owner, entity.QuizEntry(&cp))
	return nil
}

func (r *MemoryRepo) GetAnalogy(_ context.Context, id string) (*entity.Analogy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analogies[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepo) ListForUser(_ context.Context, owner int64, kind entity.Kind) ([]entity.Entry, error) {
	r.mu.RLock()
	var picked []record
	for _, rec := range r.records {
		if rec.owner != owner || (kind != "" && rec.entry.Kind != kind) {
			continue
		}
		picked = append(picked, rec)
	}
	r.mu.RUnlock()

	slices.SortStableFunc(picked, func(a, b record) int {
		if c := b.entry.CreatedAt.Compare(a.entry.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.seq > b.seq:
			return -1
		case a.seq < b.seq:
			return 1
		}
		return 0
	})
	out := make([]entity.Entry, len(picked))
	for i, rec := range picked {
		out[i] = rec.entry
	}
	return out, nil
}
