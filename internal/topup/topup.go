package topup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soko-digital/soko/internal/ledger"
	"github.com/soko-digital/soko/internal/notification"
)

var (
	// ErrNotFound indicates no top-up request exists for the identifier.
	ErrNotFound = errors.New("top-up request not found")
	// ErrNotPending guards every review transition: a request that already
	// reached a terminal state can never be re-reviewed or re-cancelled.
	ErrNotPending = errors.New("top-up request is not pending")
	// ErrNotOwner indicates the caller does not own the request being
	// cancelled.
	ErrNotOwner = errors.New("not owner of top-up request")
	// ErrTooManyPending indicates the account hit the pending-request cap.
	ErrTooManyPending = errors.New("too many pending top-up requests")
)

// Request states. Pending is the only non-terminal state.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// Request is one admin-mediated wallet top-up. It transitions from pending to
// exactly one terminal state; approval additionally credits the ledger.
type Request struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Amount     decimal.Decimal
	Method     string
	Status     string
	ReviewerID *uuid.UUID
	ReviewNote string
	ReviewedAt *time.Time
	CreatedAt  time.Time
}

// Store persists top-up requests. Approve performs the state transition and
// the ledger credit as one unit: both succeed or neither does.
type Store interface {
	Create(ctx context.Context, req Request) error
	Get(ctx context.Context, id uuid.UUID) (Request, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]Request, error)
	ListPending(ctx context.Context, limit int) ([]Request, error)
	CountPending(ctx context.Context, accountID uuid.UUID) (int, error)
	Approve(ctx context.Context, id, reviewerID uuid.UUID, finalAmount decimal.Decimal) (Request, ledger.Entry, error)
	Reject(ctx context.Context, id, reviewerID uuid.UUID, note string) (Request, error)
	Cancel(ctx context.Context, id, accountID uuid.UUID) (Request, error)
}

// Service applies the business policy around the top-up state machine:
// amount validation, the per-account pending cap, and post-decision
// notifications.
type Service struct {
	store      Store
	notifier   notification.Notifier
	maxPending int
}

// NewService constructs a top-up service.
func NewService(store Store, notifier notification.Notifier, maxPending int) *Service {
	if maxPending <= 0 {
		maxPending = 3
	}
	return &Service{store: store, notifier: notifier, maxPending: maxPending}
}

// Submit files a new pending top-up request for the account.
func (s *Service) Submit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, method string) (Request, error) {
	if amount.Sign() <= 0 {
		return Request{}, fmt.Errorf("top-up amount must be positive")
	}
	if method == "" {
		return Request{}, fmt.Errorf("top-up method is required")
	}

	pending, err := s.store.CountPending(ctx, accountID)
	if err != nil {
		return Request{}, err
	}
	if pending >= s.maxPending {
		return Request{}, ErrTooManyPending
	}

	req := Request{
		ID:        uuid.New(),
		AccountID: accountID,
		Amount:    amount,
		Method:    method,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Approve transitions the request to approved and credits the account's
// ledger with finalAmount. A zero finalAmount approves the requested amount.
func (s *Service) Approve(ctx context.Context, id, reviewerID uuid.UUID, finalAmount decimal.Decimal) (Request, ledger.Entry, error) {
	if finalAmount.Sign() < 0 {
		return Request{}, ledger.Entry{}, fmt.Errorf("final amount must not be negative")
	}
	req, entry, err := s.store.Approve(ctx, id, reviewerID, finalAmount)
	if err != nil {
		return Request{}, ledger.Entry{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTopupApproved,
			Destination: req.AccountID.String(),
			Body:        fmt.Sprintf("Top-up %s approved for %s", req.ID, entry.Amount),
		})
	}
	return req, entry, nil
}

// Reject transitions the request to rejected. No ledger effect.
func (s *Service) Reject(ctx context.Context, id, reviewerID uuid.UUID, note string) (Request, error) {
	req, err := s.store.Reject(ctx, id, reviewerID, note)
	if err != nil {
		return Request{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTopupRejected,
			Destination: req.AccountID.String(),
			Body:        fmt.Sprintf("Top-up %s rejected: %s", req.ID, note),
		})
	}
	return req, nil
}

// Cancel lets the owning account withdraw a still-pending request.
func (s *Service) Cancel(ctx context.Context, id, accountID uuid.UUID) (Request, error) {
	return s.store.Cancel(ctx, id, accountID)
}

// Get fetches one request.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	return s.store.Get(ctx, id)
}

// ListByAccount lists the account's requests, newest first.
func (s *Service) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]Request, error) {
	return s.store.ListByAccount(ctx, accountID, limit)
}

// ListPending lists pending requests across accounts for the review queue.
func (s *Service) ListPending(ctx context.Context, limit int) ([]Request, error) {
	return s.store.ListPending(ctx, limit)
}
