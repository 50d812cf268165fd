package item

import (
	"cmp"
	"context"
	"slices"
	"sort"
	"sync"
)

// MemoryRepository is a process-local Repository for development and tests.
// Contents are lost on restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	items   map[int64]Item
	pending []pendingDeletion
}

type pendingDeletion struct {
	key       string
	attempts  int
	lastError string
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[int64]Item)}
}

func (r *MemoryRepository) ListAll(_ context.Context) ([]Item, error) {
	return r.list(func(Item) bool { return true }), nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, owner string) ([]Item, error) {
	return r.list(func(it Item) bool { return it.OwnerID == owner }), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneItem(it), nil
}

func (r *MemoryRepository) Create(_ context.Context, it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	it.ID = r.nextID
	r.items[it.ID] = *cloneItem(*it)
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[it.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Name = it.Name
	stored.Category = it.Category
	stored.Quantity = it.Quantity
	r.items[it.ID] = stored
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	if it.ImagePath != nil && *it.ImagePath != "" && r.pendingIndex(*it.ImagePath) < 0 {
		r.pending = append(r.pending, pendingDeletion{key: *it.ImagePath})
	}
	return nil
}

func (r *MemoryRepository) PendingImageDeletions(_ context.Context, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	queue := slices.Clone(r.pending)
	slices.SortStableFunc(queue, func(a, b pendingDeletion) int {
		return cmp.Compare(a.attempts, b.attempts)
	})

	keys := make([]string, 0, min(limit, len(queue)))
	for _, p := range queue[:min(limit, len(queue))] {
		keys = append(keys, p.key)
	}
	return keys, nil
}

func (r *MemoryRepository) ResolveImageDeletion(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.pendingIndex(key); i >= 0 {
		r.pending = append(r.pending[:i], r.pending[i+1:]...)
	}
	return nil
}

func (r *MemoryRepository) RecordImageDeletionFailure(_ context.Context, key string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.pendingIndex(key); i >= 0 {
		r.pending[i].attempts++
		r.pending[i].lastError = cause.Error()
	}
	return nil
}

func (r *MemoryRepository) list(keep func(Item) bool) []Item {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		if keep(it) {
			items = append(items, *cloneItem(it))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// pendingIndex must be called with mu held.
func (r *MemoryRepository) pendingIndex(key string) int {
	for i, p := range r.pending {
		if p.key == key {
			return i
		}
	}
	return -1
}

func cloneItem(it Item) *Item {
	if it.ImagePath != nil {
		p := *it.ImagePath
		it.ImagePath = &p
	}
	return &it
}
