package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soko-digital/soko/internal/catalog"
	"github.com/soko-digital/soko/internal/inventory"
	"github.com/soko-digital/soko/internal/ledger"
	"github.com/soko-digital/soko/internal/notification"
	"github.com/soko-digital/soko/internal/order"
)

type testNotifier struct {
	mu   sync.Mutex
	last notification.Message
	sent int
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = msg
	n.sent++
	return nil
}

type fixture struct {
	ledger    *ledger.MemoryStore
	inventory *inventory.MemoryStore
	orders    *order.MemoryStore
	catalog   catalog.Repository
	notifier  *testNotifier
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	led := ledger.NewMemoryStore()
	inv := inventory.NewMemoryStore()
	orders := order.NewMemoryStore()
	repo := catalog.NewMemoryRepository()
	notifier := &testNotifier{}
	settler := NewMemorySettler(led, inv, orders)
	svc := NewService(repo, settler, notifier, nil, 0)
	return &fixture{ledger: led, inventory: inv, orders: orders, catalog: repo, notifier: notifier, svc: svc}
}

func (f *fixture) addProduct(t *testing.T, price int64, payloads ...string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	p := catalog.Product{
		ID:        uuid.New(),
		Name:      "license key",
		UnitPrice: decimal.NewFromInt(price),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.catalog.Create(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if len(payloads) > 0 {
		if _, err := f.inventory.Import(ctx, p.ID, payloads); err != nil {
			t.Fatalf("import stock: %v", err)
		}
	}
	return p.ID
}

func TestPurchaseSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := uuid.New()
	ledger.Seed(f.ledger, buyer, decimal.NewFromInt(250))
	product := f.addProduct(t, 100, "key-1", "key-2", "key-3")

	receipt, err := f.svc.Purchase(ctx, buyer, product, 2)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	if !receipt.Total.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected total 200, got %s", receipt.Total)
	}
	if !receipt.NewBalance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected new balance 50, got %s", receipt.NewBalance)
	}
	if len(receipt.Payloads) != 2 || receipt.Payloads[0] != "key-1" || receipt.Payloads[1] != "key-2" {
		t.Fatalf("expected the two oldest payloads, got %v", receipt.Payloads)
	}

	o, err := f.orders.Get(ctx, receipt.OrderID)
	if err != nil {
		t.Fatalf("order not recorded: %v", err)
	}
	if o.AccountID != buyer || o.Quantity != 2 || !o.Total.Equal(receipt.Total) {
		t.Fatalf("unexpected order: %+v", o)
	}

	count, _ := f.inventory.CountAvailable(ctx, product)
	if count != 1 {
		t.Fatalf("expected 1 unit left, got %d", count)
	}

	if f.notifier.last.Kind != notification.KindPurchase {
		t.Fatalf("expected purchase notification, got %+v", f.notifier.last)
	}
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := uuid.New()
	ledger.Seed(f.ledger, buyer, decimal.NewFromInt(250))
	product := f.addProduct(t, 100, "key-1", "key-2", "key-3")

	if _, err := f.svc.Purchase(ctx, buyer, product, 2); err != nil {
		t.Fatalf("first purchase: %v", err)
	}

	_, err := f.svc.Purchase(ctx, buyer, product, 1)
	var balErr *InsufficientBalanceError
	if !errors.As(err, &balErr) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if !balErr.Balance.Equal(decimal.NewFromInt(50)) || !balErr.Required.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected error detail: %+v", balErr)
	}

	// the failed attempt wrote nothing
	count, _ := f.inventory.CountAvailable(ctx, product)
	if count != 1 {
		t.Fatalf("failed purchase consumed stock: %d left", count)
	}
	balance, _ := f.ledger.Balance(ctx, buyer)
	if !balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("failed purchase moved balance: %s", balance)
	}
	orders, _ := f.orders.ListByAccount(ctx, buyer, 10)
	if len(orders) != 1 {
		t.Fatalf("expected only the first order, got %d", len(orders))
	}
}

func TestPurchaseInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := uuid.New()
	ledger.Seed(f.ledger, buyer, decimal.NewFromInt(1_000))
	product := f.addProduct(t, 100, "key-1", "key-2")

	_, err := f.svc.Purchase(ctx, buyer, product, 3)
	var stockErr *inventory.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 3 {
		t.Fatalf("unexpected error detail: %+v", stockErr)
	}

	balance, _ := f.ledger.Balance(ctx, buyer)
	if !balance.Equal(decimal.NewFromInt(1_000)) {
		t.Fatalf("failed purchase moved balance: %s", balance)
	}
}

func TestPurchaseInvalidQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := uuid.New()
	product := f.addProduct(t, 100)

	for _, quantity := range []int{0, -1, 101} {
		_, err := f.svc.Purchase(ctx, buyer, product, quantity)
		var qtyErr *InvalidQuantityError
		if !errors.As(err, &qtyErr) {
			t.Fatalf("quantity %d: expected InvalidQuantityError, got %v", quantity, err)
		}
	}
}

func TestPurchaseWalletMissing(t *testing.T) {
	f := newFixture(t)
	product := f.addProduct(t, 100, "key-1")

	if _, err := f.svc.Purchase(context.Background(), uuid.New(), product, 1); err != ledger.ErrWalletMissing {
		t.Fatalf("expected ErrWalletMissing, got %v", err)
	}
}

func TestPurchaseUnknownOrInactiveProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := uuid.New()
	ledger.Seed(f.ledger, buyer, decimal.NewFromInt(100))

	if _, err := f.svc.Purchase(ctx, buyer, uuid.New(), 1); err != catalog.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	inactive := catalog.Product{ID: uuid.New(), Name: "retired", UnitPrice: decimal.NewFromInt(10), Active: false}
	if err := f.catalog.Create(ctx, inactive); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := f.svc.Purchase(ctx, buyer, inactive.ID, 1); err != catalog.ErrInactive {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

// Five buyers race for three units. Exactly three purchases commit, each sold
// unit goes to exactly one buyer, and every failure is an out-of-stock error.
func TestPurchaseConcurrentNeverOversells(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.addProduct(t, 100, "key-1", "key-2", "key-3")

	const buyers = 5
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		receipts []Receipt
		failures []error
	)
	for i := 0; i < buyers; i++ {
		buyer := uuid.New()
		ledger.Seed(f.ledger, buyer, decimal.NewFromInt(100))
		wg.Add(1)
		go func(buyer uuid.UUID) {
			defer wg.Done()
			receipt, err := f.svc.Purchase(ctx, buyer, product, 1)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			receipts = append(receipts, receipt)
		}(buyer)
	}
	wg.Wait()

	if len(receipts) != 3 || len(failures) != 2 {
		t.Fatalf("expected 3 commits and 2 failures, got %d/%d", len(receipts), len(failures))
	}
	for _, err := range failures {
		var stockErr *inventory.InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("expected out-of-stock failure, got %v", err)
		}
	}

	seen := map[string]bool{}
	for _, r := range receipts {
		if len(r.Payloads) != 1 {
			t.Fatalf("expected 1 payload per receipt, got %v", r.Payloads)
		}
		if seen[r.Payloads[0]] {
			t.Fatalf("payload %q delivered twice", r.Payloads[0])
		}
		seen[r.Payloads[0]] = true
	}

	count, _ := f.inventory.CountAvailable(ctx, product)
	if count != 0 {
		t.Fatalf("expected pool exhausted, got %d available", count)
	}
}
