package topup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soko-digital/soko/internal/ledger"
)

// MemoryStore keeps top-up requests in memory, crediting the in-memory
// ledger on approval. The store mutex makes each review transition atomic
// with respect to concurrent reviews.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*Request
	seq      []uuid.UUID
	ledger   *ledger.MemoryStore
}

// NewMemoryStore creates an in-memory top-up store crediting the given
// ledger.
func NewMemoryStore(l *ledger.MemoryStore) *MemoryStore {
	return &MemoryStore{requests: make(map[uuid.UUID]*Request), ledger: l}
}

// Create inserts a new pending request.
func (s *MemoryStore) Create(_ context.Context, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := req
	s.requests[req.ID] = &r
	s.seq = append(s.seq, req.ID)
	return nil
}

// Get fetches one request by identifier.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return *r, nil
}

// ListByAccount lists the account's requests, newest first.
func (s *MemoryStore) ListByAccount(_ context.Context, accountID uuid.UUID, limit int) ([]Request, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var requests []Request
	for i := len(s.seq) - 1; i >= 0 && len(requests) < limit; i-- {
		if r := s.requests[s.seq[i]]; r.AccountID == accountID {
			requests = append(requests, *r)
		}
	}
	return requests, nil
}

// ListPending lists pending requests across accounts, oldest first.
func (s *MemoryStore) ListPending(_ context.Context, limit int) ([]Request, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var requests []Request
	for _, id := range s.seq {
		if len(requests) == limit {
			break
		}
		if r := s.requests[id]; r.Status == StatusPending {
			requests = append(requests, *r)
		}
	}
	return requests, nil
}

// CountPending counts the account's pending requests.
func (s *MemoryStore) CountPending(_ context.Context, accountID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.seq {
		if r := s.requests[id]; r.AccountID == accountID && r.Status == StatusPending {
			n++
		}
	}
	return n, nil
}

// Approve transitions the request to approved and credits the ledger. Both
// happen under the store mutex, so a concurrent second approval observes the
// terminal state and fails ErrNotPending without a second credit.
func (s *MemoryStore) Approve(ctx context.Context, id, reviewerID uuid.UUID, finalAmount decimal.Decimal) (Request, ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return Request{}, ledger.Entry{}, ErrNotFound
	}
	if r.Status != StatusPending {
		return Request{}, ledger.Entry{}, ErrNotPending
	}

	amount := finalAmount
	if amount.IsZero() {
		amount = r.Amount
	}

	_ = s.ledger.EnsureWallet(ctx, r.AccountID)
	entry, err := s.ledger.Append(r.AccountID, ledger.KindCredit, amount, ledger.Details{
		Source:    "topup",
		RequestID: r.ID.String(),
	})
	if err != nil {
		return Request{}, ledger.Entry{}, err
	}

	now := time.Now().UTC()
	r.Status = StatusApproved
	r.Amount = amount
	r.ReviewerID = &reviewerID
	r.ReviewedAt = &now
	return *r, entry, nil
}

// Reject transitions the request to rejected.
func (s *MemoryStore) Reject(_ context.Context, id, reviewerID uuid.UUID, note string) (Request, error) {
	return s.transition(id, StatusRejected, &reviewerID, note, nil)
}

// Cancel transitions a still-pending request to cancelled on behalf of its
// owner.
func (s *MemoryStore) Cancel(_ context.Context, id, accountID uuid.UUID) (Request, error) {
	return s.transition(id, StatusCancelled, nil, "", &accountID)
}

func (s *MemoryStore) transition(id uuid.UUID, status string, reviewerID *uuid.UUID, note string, ownerID *uuid.UUID) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	if ownerID != nil && r.AccountID != *ownerID {
		return Request{}, ErrNotOwner
	}
	if r.Status != StatusPending {
		return Request{}, ErrNotPending
	}

	now := time.Now().UTC()
	r.Status = status
	r.ReviewerID = reviewerID
	r.ReviewNote = note
	r.ReviewedAt = &now
	return *r, nil
}
