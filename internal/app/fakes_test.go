package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shadowcc/keyshop/internal/domain"
	"github.com/shadowcc/keyshop/internal/keysource"
)

type fakeKeyStore struct {
	mu          sync.Mutex
	queues      map[domain.ProductID][]string
	fingerprint string
	hasFP       bool
	err         error
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{queues: make(map[domain.ProductID][]string)}
}

func (f *fakeKeyStore) QueueLen(_ context.Context, product domain.ProductID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return len(f.queues[product]), nil
}

func (f *fakeKeyStore) PopKey(_ context.Context, product domain.ProductID) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	q := f.queues[product]
	if len(q) == 0 {
		return "", false, nil
	}
	f.queues[product] = q[1:]
	return q[0], true, nil
}

func (f *fakeKeyStore) PushKeys(_ context.Context, product domain.ProductID, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.queues[product] = append(f.queues[product], keys...)
	return nil
}

func (f *fakeKeyStore) ClearQueue(_ context.Context, product domain.ProductID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.queues, product)
	return nil
}

func (f *fakeKeyStore) Fingerprint(_ context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	return f.fingerprint, f.hasFP, nil
}

func (f *fakeKeyStore) SetFingerprint(_ context.Context, fp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.fingerprint = fp
	f.hasFP = true
	return nil
}

func (f *fakeKeyStore) queue(product domain.ProductID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queues[product]...)
}

type fakeKeySource struct {
	mu    sync.Mutex
	snap  keysource.Snapshot
	err   error
	loads int
}

func newFakeKeySource(content string) *fakeKeySource {
	s := &fakeKeySource{}
	s.set(content)
	return s
}

func (s *fakeKeySource) set(content string) {
	entries := keysource.Parse([]byte(content))
	s.mu.Lock()
	s.snap = keysource.Snapshot{Entries: entries, Fingerprint: keysource.Fingerprint([]byte(content))}
	s.mu.Unlock()
}

func (s *fakeKeySource) Load(_ context.Context) (keysource.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return keysource.Snapshot{}, s.err
	}
	return s.snap, nil
}

func (s *fakeKeySource) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

type storedOrder struct {
	order     domain.Order
	expiresAt time.Time
}

// fakeOrderStore applies the pending->confirmed transition under a mutex,
// like a compare-and-set in the real backends.
type fakeOrderStore struct {
	mu     sync.Mutex
	now    func() time.Time
	orders map[string]storedOrder
	calls  int
	err    error
}

func newFakeOrderStore(now func() time.Time) *fakeOrderStore {
	return &fakeOrderStore{now: now, orders: make(map[string]storedOrder)}
}

func (f *fakeOrderStore) CreateOrder(_ context.Context, order domain.Order, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.orders[order.ID] = storedOrder{order: order, expiresAt: f.now().Add(ttl)}
	return nil
}

func (f *fakeOrderStore) GetOrder(_ context.Context, id string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.Order{}, f.err
	}
	rec, ok := f.orders[id]
	if !ok || !rec.expiresAt.After(f.now()) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return rec.order, nil
}

func (f *fakeOrderStore) ConfirmOrder(_ context.Context, id string, confirmedAt time.Time, ttl time.Duration) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.Order{}, f.err
	}
	rec, ok := f.orders[id]
	if !ok || !rec.expiresAt.After(f.now()) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if rec.order.Status == domain.OrderStatusConfirmed {
		return rec.order, domain.ErrOrderAlreadyConfirmed
	}
	rec.order.Status = domain.OrderStatusConfirmed
	at := confirmedAt
	rec.order.ConfirmedAt = &at
	rec.expiresAt = f.now().Add(ttl)
	f.orders[id] = rec
	return rec.order, nil
}

func (f *fakeOrderStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu          sync.Mutex
	requests    []domain.ConfirmationRequest
	alerts      []domain.Order
	alertCtxErr []error
	requestErr  error
	alertErr    error
}

func (n *recordingNotifier) SendConfirmationRequest(_ context.Context, req domain.ConfirmationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.requestErr != nil {
		return n.requestErr
	}
	n.requests = append(n.requests, req)
	return nil
}

func (n *recordingNotifier) SendNewOrderAlert(ctx context.Context, order domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, order)
	n.alertCtxErr = append(n.alertCtxErr, ctx.Err())
	return n.alertErr
}

func (n *recordingNotifier) alertCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

var errBackendDown = errors.New("backend down")

// blockingKeySource holds every Load until release is closed or the load
// context ends.
type blockingKeySource struct {
	inner   *fakeKeySource
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingKeySource(content string) *blockingKeySource {
	return &blockingKeySource{
		inner:   newFakeKeySource(content),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *blockingKeySource) Load(ctx context.Context) (keysource.Snapshot, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return s.inner.Load(ctx)
	case <-ctx.Done():
		return keysource.Snapshot{}, ctx.Err()
	}
}
