package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu       sync.RWMutex
	products map[uuid.UUID]Product
	seq      []uuid.UUID
}

// NewMemoryRepository constructs an in-memory product repository for tests
// and development mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{products: make(map[uuid.UUID]Product)}
}

func (r *memoryRepository) Create(_ context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	r.seq = append(r.seq, p.ID)
	return nil
}

func (r *memoryRepository) Update(_ context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return ErrNotFound
	}
	r.products[p.ID] = p
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id uuid.UUID) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) List(_ context.Context, activeOnly bool) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var products []Product
	for i := len(r.seq) - 1; i >= 0; i-- {
		p := r.products[r.seq[i]]
		if activeOnly && !p.Active {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}
