package application

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/auth"
)

type fakeCart struct {
	cart     domain.CartSnapshot
	fetchErr error
	clearErr error
	fetches  int
	clears   int
	tokens   []string
}

func (f *fakeCart) FetchCart(_ context.Context, p auth.Principal) (domain.CartSnapshot, error) {
	f.fetches++
	f.tokens = append(f.tokens, p.Token)
	return f.cart, f.fetchErr
}

func (f *fakeCart) ClearCart(_ context.Context, p auth.Principal) error {
	f.clears++
	f.tokens = append(f.tokens, p.Token)
	return f.clearErr
}

// fakeInventory behaves like the remote service: last write wins, no floor.
type fakeInventory struct {
	records   map[int64]domain.InventoryRecord
	fetchErr  map[int64]error
	updateErr map[int64]error
	fetched   []int64
	updated   []int64
}

func newFakeInventory(recs ...domain.InventoryRecord) *fakeInventory {
	f := &fakeInventory{
		records:   map[int64]domain.InventoryRecord{},
		fetchErr:  map[int64]error{},
		updateErr: map[int64]error{},
	}
	for _, r := range recs {
		f.records[r.ItemID] = r
	}
	return f
}

func (f *fakeInventory) FetchStock(_ context.Context, _ auth.Principal, itemID int64) (domain.InventoryRecord, error) {
	f.fetched = append(f.fetched, itemID)
	if err := f.fetchErr[itemID]; err != nil {
		return domain.InventoryRecord{}, err
	}
	rec, ok := f.records[itemID]
	if !ok {
		return domain.InventoryRecord{}, &domain.ItemNotFoundError{ItemID: itemID}
	}
	return rec, nil
}

func (f *fakeInventory) UpdateStock(_ context.Context, _ auth.Principal, rec domain.InventoryRecord) (domain.InventoryRecord, error) {
	f.updated = append(f.updated, rec.ItemID)
	if err := f.updateErr[rec.ItemID]; err != nil {
		return domain.InventoryRecord{}, err
	}
	f.records[rec.ItemID] = rec
	return rec, nil
}

type savedEvent struct {
	eventType   string
	payload     []byte
	traceparent string
}

type fakeRepo struct {
	mu      sync.Mutex
	orders  map[string]domain.Order
	events  []savedEvent
	saveErr error
	saves   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[string]domain.Order{}}
}

func (f *fakeRepo) SaveWithOutbox(_ context.Context, o domain.Order, eventType string, payload []byte, _ map[string]string, traceparent string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.orders[o.ID] = o
	f.events = append(f.events, savedEvent{eventType: eventType, payload: payload, traceparent: traceparent})
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeRepo) ListByUsername(_ context.Context, username string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if o.Username == username {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	return out, nil
}

var errBoom = errors.New("boom")
