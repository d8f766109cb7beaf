package orders

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/pricing"
)

type memVariant struct {
	name  string
	price *pricing.Cents
	stock int
}

type memProduct struct {
	name     string
	price    pricing.Cents
	stock    int
	active   bool
	variants map[string]memVariant
}

// memStore serializes transactions on one mutex and restores a snapshot
// when the callback fails, like a rolled back database transaction.
type memStore struct {
	mu        sync.Mutex
	products  map[string]memProduct
	orders    map[string]Order
	addresses map[string][]Address
	clock     time.Time
	// touched records every stock row write as "product/variant".
	touched []string
}

func newMemStore() *memStore {
	return &memStore{
		products:  map[string]memProduct{},
		orders:    map[string]Order{},
		addresses: map[string][]Address{},
		clock:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) put(id string, p memProduct) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.variants == nil {
		p.variants = map[string]memVariant{}
	}
	m.products[id] = p
}

func (m *memStore) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].stock
}

func (m *memStore) variantStock(id, vid string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].variants[vid].stock
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	products := map[string]memProduct{}
	for id, p := range m.products {
		p.variants = maps.Clone(p.variants)
		products[id] = p
	}
	orders := maps.Clone(m.orders)
	addresses := maps.Clone(m.addresses)

	if err := fn(&memTx{m: m}); err != nil {
		m.products, m.orders, m.addresses = products, orders, addresses
		return err
	}
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *memStore) ByIdempotencyKey(_ context.Context, userID, key string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			return &o, nil
		}
	}
	return nil, nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if (f.UserID == "" || o.UserID == f.UserID) && (f.Status == "" || o.Status == f.Status) {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type memTx struct{ m *memStore }

func (t *memTx) PriceBook(_ context.Context, ids []string) (map[string]PricedProduct, error) {
	book := map[string]PricedProduct{}
	for _, id := range ids {
		p, ok := t.m.products[id]
		if !ok {
			continue
		}
		pp := PricedProduct{ID: id, Name: p.name, Price: p.price, Active: p.active, Variants: map[string]PricedVariant{}}
		for vid, v := range p.variants {
			pp.Variants[vid] = PricedVariant{ID: vid, Name: v.name, Price: v.price}
		}
		book[id] = pp
	}
	return book, nil
}

func (t *memTx) Decrement(_ context.Context, productID, variantID string, qty int) (int, bool, error) {
	t.m.touched = append(t.m.touched, productID+"/"+variantID)
	p, ok := t.m.products[productID]
	if !ok || p.stock < qty {
		return 0, false, nil
	}
	left := p.stock - qty
	if variantID != "" {
		v, ok := p.variants[variantID]
		if !ok || v.stock < qty {
			return 0, false, nil
		}
		v.stock -= qty
		p.variants[variantID] = v
		left = v.stock
	}
	p.stock -= qty
	t.m.products[productID] = p
	return left, true, nil
}

func (t *memTx) Restock(_ context.Context, productID, variantID string, qty int) error {
	t.m.touched = append(t.m.touched, productID+"/"+variantID)
	p := t.m.products[productID]
	if v, ok := p.variants[variantID]; ok {
		v.stock += qty
		p.variants[variantID] = v
	}
	p.stock += qty
	t.m.products[productID] = p
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, o *Order) error {
	if o.IdempotencyKey != "" {
		for _, prev := range t.m.orders {
			if prev.UserID == o.UserID && prev.IdempotencyKey == o.IdempotencyKey {
				return ErrDuplicateIdempotencyKey
			}
		}
	}
	t.m.clock = t.m.clock.Add(time.Minute)
	o.CreatedAt, o.UpdatedAt = t.m.clock, t.m.clock
	cp := *o
	cp.Items = slices.Clone(o.Items)
	t.m.orders[o.ID] = cp
	return nil
}

func (t *memTx) SaveAddress(_ context.Context, userID string, a Address) error {
	t.m.addresses[userID] = append(slices.Clone(t.m.addresses[userID]), a)
	return nil
}

func (t *memTx) LockOrder(_ context.Context, id string) (*Order, error) {
	o, ok := t.m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (t *memTx) SetStatus(_ context.Context, id string, s Status, p PaymentStatus) error {
	o := t.m.orders[id]
	o.Status, o.PaymentStatus = s, p
	t.m.orders[id] = o
	return nil
}

type memIdem struct {
	mu   sync.Mutex
	keys map[string]string
}

func (i *memIdem) Lookup(_ context.Context, userID, key string) (string, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id, ok := i.keys[userID+"/"+key]
	return id, ok, nil
}

func (i *memIdem) Remember(_ context.Context, userID, key, orderID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.keys[userID+"/"+key] = orderID
	return nil
}

type sentEvent struct {
	topic, eventType string
	key, value       []byte
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []sentEvent
}

func (p *recordingPublisher) Publish(topic string, key, value []byte, eventType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sentEvent{topic: topic, eventType: eventType, key: key, value: value})
}
