package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/rocketcart/internal/domain"
	"github.com/fjod/rocketcart/internal/notify"
	"github.com/fjod/rocketcart/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultKey is where the serialized cart lives in persistent storage.
const DefaultKey = "@RocketShoes:cart"

// Catalog is the remote stock/product API. Consumers define this interface, not the HTTP client.
type Catalog interface {
	GetStock(ctx context.Context, productID int64) (domain.Stock, error)
	GetProduct(ctx context.Context, productID int64) (domain.Product, error)
}

var errInvalidCart = errors.New("transition would break cart invariants")

// transition computes the next cart from the previous one. changed=false leaves state and storage untouched.
type transition func(prev domain.Cart) (next domain.Cart, changed bool)

// Store owns the session cart. Operations never return errors: failures are reported to the
// notifier and leave the cart as it was.
//
// No lock is held while the catalog is being queried, so concurrent operations interleave;
// each state transition and its commit run atomically against the latest cart.
type Store struct {
	mu   sync.Mutex
	cart domain.Cart

	// serializes transitions with their deliveries, always taken before mu
	subMu   sync.Mutex
	subs    map[int]func(domain.Cart)
	nextSub int

	key      string
	storage  storage.Store
	catalog  Catalog
	notifier notify.Notifier
	log      *zap.Logger
	tracer   trace.Tracer
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// New loads the persisted cart, or starts empty when nothing was stored yet.
func New(ctx context.Context, st storage.Store, catalog Catalog, opts ...Option) (*Store, error) {
	s := &Store{
		key:      DefaultKey,
		storage:  st,
		catalog:  catalog,
		notifier: notify.Nop{},
		log:      zap.NewNop(),
		tracer:   otel.Tracer("github.com/fjod/rocketcart/internal/cart"),
		subs:     make(map[int]func(domain.Cart)),
	}
	for _, opt := range opts {
		opt(s)
	}

	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.cart = c
	return s, nil
}

func (s *Store) load(ctx context.Context) (domain.Cart, error) {
	data, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var c domain.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		s.log.Warn("stored cart is not valid JSON, starting empty", zap.String("key", s.key), zap.Error(err))
		if err := s.storage.Delete(ctx, s.key); err != nil {
			s.log.Warn("failed to discard unreadable cart", zap.String("key", s.key), zap.Error(err))
		}
		return domain.Cart{}, nil
	}
	if c == nil {
		return domain.Cart{}, nil
	}
	if !c.Valid() {
		s.log.Warn("stored cart breaks invariants, dropping bad entries", zap.String("key", s.key))
		c = sanitize(c)
	}
	return c, nil
}

func sanitize(c domain.Cart) domain.Cart {
	out := make(domain.Cart, 0, len(c))
	for _, p := range c {
		if p.Amount >= 1 && out.IndexOf(p.ID) < 0 {
			out = append(out, p)
		}
	}
	return out
}

// Cart returns a copy of the current cart.
func (s *Store) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Subscribe registers fn to receive a copy of the cart after every committed change.
// fn may read the store but must not mutate it or (un)subscribe.
func (s *Store) Subscribe(fn func(domain.Cart)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) AddProduct(ctx context.Context, productID int64) {
	ctx, span := s.tracer.Start(ctx, "cart.AddProduct", trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	stock, err := s.catalog.GetStock(ctx, productID)
	if err != nil {
		s.fail(ctx, span, notify.NetworkFailure, productID, msgAddFailure, err)
		return
	}

	if existing, ok := s.Cart().Find(productID); ok {
		if stock.Amount <= existing.Amount+1 {
			s.fail(ctx, span, notify.OutOfStock, productID, msgOutOfStock, nil)
			return
		}
		// re-adding resets the line to a single unit
		err = s.apply(ctx, func(prev domain.Cart) (domain.Cart, bool) {
			if prev.IndexOf(productID) < 0 {
				return prev, false
			}
			return prev.WithAmount(productID, 1), true
		})
		if err != nil {
			s.fail(ctx, span, notify.AddFailure, productID, msgAddFailure, err)
		}
		return
	}

	if stock.Amount <= 0 {
		s.fail(ctx, span, notify.OutOfStock, productID, msgOutOfStock, nil)
		return
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		s.fail(ctx, span, notify.AddFailure, productID, msgAddFailure, err)
		return
	}
	product.ID = productID
	product.Amount = 1

	err = s.apply(ctx, func(prev domain.Cart) (domain.Cart, bool) {
		// a concurrent add got here first: last write wins, ids stay unique
		if i := prev.IndexOf(productID); i >= 0 {
			next := prev.Clone()
			next[i] = product
			return next, true
		}
		return prev.Append(product), true
	})
	if err != nil {
		s.fail(ctx, span, notify.AddFailure, productID, msgAddFailure, err)
	}
}

// RemoveProduct drops the entry for productID. Unknown ids are a no-op.
func (s *Store) RemoveProduct(ctx context.Context, productID int64) {
	ctx, span := s.tracer.Start(ctx, "cart.RemoveProduct", trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	err := s.apply(ctx, func(prev domain.Cart) (domain.Cart, bool) {
		if prev.IndexOf(productID) < 0 {
			return prev, false
		}
		return prev.Without(productID), true
	})
	if err != nil {
		s.fail(ctx, span, notify.RemoveFailure, productID, msgRemoveFailure, err)
	}
}

// UpdateProductAmount sets the quantity of an entry already in the cart when stock allows it.
// Non-positive amounts and ids missing from the cart are no-ops.
func (s *Store) UpdateProductAmount(ctx context.Context, productID int64, amount int) {
	if amount <= 0 {
		return
	}

	ctx, span := s.tracer.Start(ctx, "cart.UpdateProductAmount", trace.WithAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int("amount", amount),
	))
	defer span.End()

	stock, err := s.catalog.GetStock(ctx, productID)
	if err != nil {
		s.fail(ctx, span, notify.NetworkFailure, productID, msgUpdateFailure, err)
		return
	}
	if stock.Amount < amount {
		s.fail(ctx, span, notify.OutOfStock, productID, msgOutOfStock, nil)
		return
	}

	err = s.apply(ctx, func(prev domain.Cart) (domain.Cart, bool) {
		if prev.IndexOf(productID) < 0 {
			return prev, false
		}
		return prev.WithAmount(productID, amount), true
	})
	if err != nil {
		s.fail(ctx, span, notify.UpdateFailure, productID, msgUpdateFailure, err)
	}
}

// apply runs fn against the latest cart and commits the result.
// Lock order is subMu then mu; mu is released before subscribers run so they can call Cart.
func (s *Store) apply(ctx context.Context, fn transition) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.mu.Lock()
	next, changed := fn(s.cart)
	if !changed {
		s.mu.Unlock()
		return nil
	}
	if !next.Valid() {
		s.mu.Unlock()
		return errInvalidCart
	}
	s.cart = next
	s.commit(ctx, next)
	s.mu.Unlock()

	for _, sub := range s.subs {
		sub(next.Clone())
	}
	return nil
}

// commit mirrors c into storage. A failed write keeps the in-memory state.
func (s *Store) commit(ctx context.Context, c domain.Cart) {
	data, err := json.Marshal(c)
	if err != nil {
		s.log.Warn("failed to serialize cart", zap.Error(err))
		return
	}
	if err := s.storage.Set(context.WithoutCancel(ctx), s.key, data); err != nil {
		s.log.Warn("failed to persist cart", zap.String("key", s.key), zap.Error(err))
	}
}

func (s *Store) fail(ctx context.Context, span trace.Span, kind notify.ErrorKind, productID int64, msg string, err error) {
	if err != nil {
		span.RecordError(err)
		s.log.Debug("cart operation failed",
			zap.String("kind", string(kind)),
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
	}
	span.SetStatus(codes.Error, string(kind))
	s.notifier.Notify(ctx, notify.New(kind, productID, msg))
}
