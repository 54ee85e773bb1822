package repo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/user/entity"
)

// MemoryRepo is an in-process Repository used with STORAGE_BACKEND=memory
// and in tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	byID     map[int64]*entity.User
	byHandle map[string]int64
	now      func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:     make(map[int64]*entity.User),
		byHandle: make(map[string]int64),
		now:      time.Now,
	}
}

func (r *MemoryRepo) Create(_ context.Context, u *entity.User) error {
	key := strings.ToLower(u.Handle)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHandle[key]; ok {
		return ErrDuplicateHandle
	}
	if _, ok := r.byID[u.ID]; ok {
		return ErrDuplicateHandle
	}
	u.CreatedAt = r.now().UTC()
	cp := *u
	r.byID[u.ID] = &cp
	r.byHandle[key] = u.ID
	return nil
}

func (r *MemoryRepo) GetByHandle(_ context.Context, handle string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byHandle[strings.ToLower(handle)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepo) UpdatePassword(_ context.Context, id int64, hash, algo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	now := r.now().UTC()
	u.PasswordHash = hash
	u.PasswordAlgo = algo
	u.PasswordUpdatedAt = &now
	return nil
}
