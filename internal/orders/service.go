package orders

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/pricing"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrDuplicateIdempotencyKey is returned by Tx.InsertOrder when the user
// already placed an order with the same key.
var ErrDuplicateIdempotencyKey = errors.New("order with this idempotency key already exists")

// Tx is the unit of work for placement and status changes. Any error
// returned from the InTx callback rolls back every write made through it.
type Tx interface {
	// PriceBook returns the stored products among ids, keyed by id.
	PriceBook(ctx context.Context, ids []string) (map[string]PricedProduct, error)
	// Decrement takes qty from the product, and from the variant when
	// variantID is set, only if enough remains. ok is false otherwise.
	Decrement(ctx context.Context, productID, variantID string, qty int) (remaining int, ok bool, err error)
	Restock(ctx context.Context, productID, variantID string, qty int) error
	InsertOrder(ctx context.Context, o *Order) error
	SaveAddress(ctx context.Context, userID string, a Address) error
	// LockOrder returns nil, nil for an unknown id.
	LockOrder(ctx context.Context, id string) (*Order, error)
	SetStatus(ctx context.Context, id string, s Status, p PaymentStatus) error
}

type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	// Get and ByIdempotencyKey return nil, nil when nothing matches.
	Get(ctx context.Context, id string) (*Order, error)
	ByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
}

// Idempotency remembers which order a user's idempotency key produced.
type Idempotency interface {
	Lookup(ctx context.Context, userID, key string) (orderID string, ok bool, err error)
	Remember(ctx context.Context, userID, key, orderID string) error
}

type StatusCache interface {
	Get(ctx context.Context, orderID string) (*StatusView, bool, error)
	Set(ctx context.Context, v StatusView) error
}

// Publisher is satisfied by kafka.Producer.
type Publisher interface {
	Publish(topic string, key, value []byte, eventType string)
}

type StatusView struct {
	OrderID       string        `json:"order_id"`
	UserID        string        `json:"user_id"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type Option func(*Service)

func WithIdempotency(i Idempotency) Option { return func(s *Service) { s.idem = i } }
func WithStatusCache(c StatusCache) Option { return func(s *Service) { s.status = c } }

// WithPublisher enables order events; producer names the emitting service.
func WithPublisher(p Publisher, producer string) Option {
	return func(s *Service) { s.pub, s.producer = p, producer }
}

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

type Service struct {
	store    Store
	policy   pricing.Policy
	idem     Idempotency
	status   StatusCache
	pub      Publisher
	producer string
	log      *zap.Logger
	validate *validator.Validate
}

func NewService(store Store, policy pricing.Policy, opts ...Option) *Service {
	s := &Service{store: store, policy: policy, log: zap.NewNop(), validate: apperr.NewValidator()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Place reprices every line from the store, takes the stock and records
// the order in one transaction. Any missing product or variant is
// NotFound and any shortfall is Conflict; neither leaves a trace. With an
// idempotency key a repeated call returns the first order and existed=true.
func (s *Service) Place(ctx context.Context, userID, idemKey string, in PlaceInput) (o *Order, existed bool, err error) {
	if userID == "" {
		return nil, false, apperr.Unauthorized("sign in to place an order")
	}
	if len(in.Items) == 0 {
		return nil, false, apperr.Validation("cart is empty")
	}
	if err := apperr.Check(s.validate, in); err != nil {
		return nil, false, err
	}
	idemKey = strings.TrimSpace(idemKey)
	if idemKey != "" {
		if prev, err := s.replay(ctx, userID, idemKey); err != nil || prev != nil {
			return prev, prev != nil, err
		}
	}

	items := mergeItems(in.Items)
	o = &Order{
		ID:              uuid.NewString(),
		Number:          newOrderNumber(),
		UserID:          userID,
		Status:          StatusPending,
		PaymentStatus:   PaymentPaid,
		ShippingAddress: in.ShippingAddress,
		Notes:           strings.TrimSpace(in.Notes),
		IdempotencyKey:  idemKey,
	}

	var levels []StockLevel
	err = s.store.InTx(ctx, func(tx Tx) error {
		levels = levels[:0]
		book, err := tx.PriceBook(ctx, productIDs(items))
		if err != nil {
			return fmt.Errorf("load prices: %w", err)
		}
		if o.Items, err = reprice(book, items); err != nil {
			return err
		}
		var subtotal pricing.Cents
		for _, it := range o.Items {
			subtotal += it.LineTotal()
		}
		t := s.policy.Quote(subtotal)
		o.Subtotal, o.Shipping, o.Tax, o.Total = t.Subtotal, t.Shipping, t.Tax, t.Total

		for _, it := range lockOrder(o.Items) {
			left, ok, err := tx.Decrement(ctx, it.ProductID, it.VariantID, it.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if !ok {
				return apperr.Conflictf("insufficient stock for %s", it.Name)
			}
			levels = append(levels, StockLevel{ProductID: it.ProductID, VariantID: it.VariantID, Remaining: left})
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		return tx.SaveAddress(ctx, userID, in.ShippingAddress)
	})
	if errors.Is(err, ErrDuplicateIdempotencyKey) {
		prev, rerr := s.store.ByIdempotencyKey(ctx, userID, idemKey)
		if rerr != nil || prev == nil {
			return nil, false, apperr.Wrap(apperr.KindConflict, "order already being placed", err)
		}
		return prev, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.Number),
		zap.String("user_id", userID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.Total.String()))

	if idemKey != "" && s.idem != nil {
		if err := s.idem.Remember(ctx, userID, idemKey, o.ID); err != nil {
			s.log.Warn("remember idempotency key failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	s.cacheStatus(ctx, o)
	s.publish(TopicOrderPlaced, EventOrderPlaced, o.ID, placedPayload(o, levels))
	return o, false, nil
}

func (s *Service) replay(ctx context.Context, userID, key string) (*Order, error) {
	if s.idem != nil {
		id, ok, err := s.idem.Lookup(ctx, userID, key)
		if err != nil {
			s.log.Warn("idempotency lookup failed", zap.Error(err))
		} else if ok {
			o, err := s.store.Get(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("get order: %w", err)
			}
			if o != nil {
				return o, nil
			}
		}
	}
	o, err := s.store.ByIdempotencyKey(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("get order by key: %w", err)
	}
	return o, nil
}

// mergeItems sums quantities of repeated product/variant pairs, keeping
// first-seen order.
func mergeItems(in []ItemInput) []ItemInput {
	out := make([]ItemInput, 0, len(in))
	idx := map[[2]string]int{}
	for _, it := range in {
		k := [2]string{it.ProductID, it.VariantID}
		if i, ok := idx[k]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		idx[k] = len(out)
		out = append(out, it)
	}
	return out
}

// lockOrder returns the lines sorted by product then variant. Stock rows
// are always touched in this order so concurrent checkouts and
// cancellations cannot deadlock.
func lockOrder(items []Item) []Item {
	out := slices.Clone(items)
	slices.SortFunc(out, func(a, b Item) int {
		return cmp.Or(cmp.Compare(a.ProductID, b.ProductID), cmp.Compare(a.VariantID, b.VariantID))
	})
	return out
}

func productIDs(items []ItemInput) []string {
	seen := map[string]bool{}
	var ids []string
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	return ids
}

// reprice resolves every line against the stored prices. A variant's price
// override wins over the product price.
func reprice(book map[string]PricedProduct, items []ItemInput) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, in := range items {
		p, ok := book[in.ProductID]
		if !ok || !p.Active {
			return nil, apperr.NotFoundf("product %s not found", in.ProductID)
		}
		it := Item{
			ID:        uuid.NewString(),
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  in.Quantity,
		}
		if in.VariantID != "" {
			v, ok := p.Variants[in.VariantID]
			if !ok {
				return nil, apperr.NotFoundf("variant %s of product %s not found", in.VariantID, in.ProductID)
			}
			it.VariantID = v.ID
			it.VariantName = v.Name
			it.UnitPrice = pricing.EffectivePrice(p.Price, v.Price)
		}
		out = append(out, it)
	}
	return out, nil
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newOrderNumber returns "SF-" and eight characters without look-alikes.
func newOrderNumber() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		copy(b[:], strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	for i := range b {
		b[i] = orderNumberAlphabet[int(b[i])%len(orderNumberAlphabet)]
	}
	return "SF-" + string(b[:])
}

// Get returns the order to its owner or to an admin.
func (s *Service) Get(ctx context.Context, id, viewerID string, admin bool) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil {
		return nil, apperr.NotFoundf("order %s not found", id)
	}
	if !admin && o.UserID != viewerID {
		return nil, apperr.Forbidden("order belongs to another user")
	}
	return o, nil
}

// Status serves the order status from cache, falling back to the store.
func (s *Service) Status(ctx context.Context, id, viewerID string, admin bool) (*StatusView, error) {
	if s.status != nil {
		v, ok, err := s.status.Get(ctx, id)
		if err != nil {
			s.log.Warn("read order status cache failed", zap.String("order_id", id), zap.Error(err))
		} else if ok && (admin || v.UserID == viewerID) {
			return v, nil
		}
	}
	o, err := s.Get(ctx, id, viewerID, admin)
	if err != nil {
		return nil, err
	}
	v := s.cacheStatus(ctx, o)
	return &v, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.list(ctx, ListFilter{UserID: userID})
}

// ListAll is the back office view, optionally narrowed to one status.
func (s *Service) ListAll(ctx context.Context, status Status, limit int) ([]Order, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validationf("unknown status %q", status)
	}
	return s.list(ctx, ListFilter{Status: status, Limit: limit})
}

func (s *Service) list(ctx context.Context, f ListFilter) ([]Order, error) {
	list, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if list == nil {
		list = []Order{}
	}
	return list, nil
}

// Transition moves the order along the status machine. Cancelling puts
// the stock back and refunds a paid order.
func (s *Service) Transition(ctx context.Context, id string, to Status) (*Order, error) {
	if !to.Valid() {
		return nil, apperr.Validationf("unknown status %q", to)
	}
	var (
		o    *Order
		from Status
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		o, err = tx.LockOrder(ctx, id)
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if o == nil {
			return apperr.NotFoundf("order %s not found", id)
		}
		from = o.Status
		if !CanTransition(from, to) {
			return apperr.Conflictf("cannot move order from %s to %s", from, to)
		}
		if to == StatusCancelled {
			for _, it := range lockOrder(o.Items) {
				if err := tx.Restock(ctx, it.ProductID, it.VariantID, it.Quantity); err != nil {
					return fmt.Errorf("restock: %w", err)
				}
			}
			if o.PaymentStatus == PaymentPaid {
				o.PaymentStatus = PaymentRefunded
			}
		}
		o.Status = to
		o.UpdatedAt = time.Now().UTC()
		return tx.SetStatus(ctx, id, o.Status, o.PaymentStatus)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order status changed", zap.String("order_id", id),
		zap.String("from", string(from)), zap.String("to", string(to)))
	s.cacheStatus(ctx, o)
	s.publish(TopicOrderStatusChanged, EventOrderStatusChanged, id,
		OrderStatusChangedPayload{OrderID: id, From: from, To: to})
	return o, nil
}

func (s *Service) cacheStatus(ctx context.Context, o *Order) StatusView {
	v := StatusView{OrderID: o.ID, UserID: o.UserID, Status: o.Status, PaymentStatus: o.PaymentStatus, UpdatedAt: o.UpdatedAt}
	if s.status != nil {
		if err := s.status.Set(ctx, v); err != nil {
			s.log.Warn("cache order status failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	return v
}

func (s *Service) publish(topic, eventType, orderID string, payload any) {
	if s.pub == nil {
		return
	}
	env, err := NewEnvelope(eventType, s.producer, orderID, payload)
	if err != nil {
		s.log.Error("build event failed", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	b, err := json.Marshal(env)
	if err != nil {
		s.log.Error("encode event failed", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	s.pub.Publish(topic, PartitionKey(orderID), b, eventType)
}
