package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"travel-booking/internal/client"
	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"

	"go.uber.org/zap"
)

// memStore stands in for Postgres. txMu serialises whole transactions, which
// is what the FOR UPDATE locks on a shared trip row amount to. Every row read
// is recorded so tests can check which rows were locked, and in what order.
type memStore struct {
	txMu sync.Mutex

	mu       sync.Mutex
	users    map[string]entity.User
	trips    map[int64]entity.Trip
	bookings map[int64]entity.Booking
	nextID   int64
	reads    []rowRead
}

// rowRead is one FindBy* call against the store.
type rowRead struct {
	table  string
	key    string
	forUpd bool
	inTx   bool
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]entity.User{},
		trips:    map[int64]entity.Trip{},
		bookings: map[int64]entity.Booking{},
	}
}

func (s *memStore) repository() *repository.Repository {
	return s.bind(false)
}

func (s *memStore) bind(inTx bool) *repository.Repository {
	return &repository.Repository{
		User:    &memUserRepo{s: s, tx: inTx},
		Trip:    &memTripRepo{s: s, tx: inTx},
		Booking: &memBookingRepo{s: s, tx: inTx},
	}
}

// record must be called with mu held.
func (s *memStore) record(table string, key any, lock, inTx bool) {
	s.reads = append(s.reads, rowRead{table: table, key: fmt.Sprint(key), forUpd: lock, inTx: inTx})
}

func (s *memStore) resetReads() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = nil
}

func (s *memStore) rowReads() []rowRead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rowRead(nil), s.reads...)
}

func (s *memStore) WithTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	users, trips, bookings, nextID := cloneMap(s.users), cloneMap(s.trips), cloneMap(s.bookings), s.nextID
	s.mu.Unlock()

	if err := fn(s.bind(true)); err != nil {
		s.mu.Lock()
		s.users, s.trips, s.bookings, s.nextID = users, trips, bookings, nextID
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) tripCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trips)
}

func (s *memStore) activeSum(tripID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, b := range s.bookings {
		if b.TripID == tripID && !b.Cancelled {
			sum += int64(b.Amount)
		}
	}
	return sum
}

type memUserRepo struct {
	s  *memStore
	tx bool
}

func (r *memUserRepo) Ensure(ctx context.Context, username string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[username]; ok {
		return false, nil
	}
	r.s.users[username] = entity.User{Username: username, CreatedAt: time.Now()}
	return true, nil
}

func (r *memUserRepo) FindByUsername(ctx context.Context, username string, lock bool) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("users", username, lock, r.tx)
	u, ok := r.s.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type memTripRepo struct {
	s  *memStore
	tx bool
}

func (r *memTripRepo) Ensure(ctx context.Context, id int64) (bool, error) {
	return r.insert(id, false), nil
}

func (r *memTripRepo) EnsureCancelled(ctx context.Context, id int64) (bool, error) {
	return r.insert(id, true), nil
}

func (r *memTripRepo) insert(id int64, cancelled bool) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.trips[id]; ok {
		return false
	}
	now := time.Now()
	r.s.trips[id] = entity.Trip{ID: id, Cancelled: cancelled, Timestamps: entity.Timestamps{CreatedAt: now, UpdatedAt: now}}
	return true
}

func (r *memTripRepo) FindByID(ctx context.Context, id int64, lock bool) (*entity.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("trips", id, lock, r.tx)
	t, ok := r.s.trips[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *memTripRepo) MarkCancelled(ctx context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.trips[id]
	if !ok || t.Cancelled {
		return false, nil
	}
	t.Cancelled = true
	t.UpdatedAt = time.Now()
	r.s.trips[id] = t
	return true, nil
}

func (r *memTripRepo) ListActiveIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []int64
	for id, t := range r.s.trips {
		if !t.Cancelled && id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type memBookingRepo struct {
	s  *memStore
	tx bool
}

func (r *memBookingRepo) Create(ctx context.Context, b *entity.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[b.Username]; !ok {
		return fmt.Errorf("create booking: user %s violates foreign key", b.Username)
	}
	if _, ok := r.s.trips[b.TripID]; !ok {
		return fmt.Errorf("create booking: trip %d violates foreign key", b.TripID)
	}
	r.s.nextID++
	now := time.Now()
	b.ID = r.s.nextID
	b.Cancelled = false
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.bookings[b.ID] = *b
	return nil
}

func (r *memBookingRepo) FindByID(ctx context.Context, id int64, lock bool) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("bookings", id, lock, r.tx)
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *memBookingRepo) FindPageByUsername(ctx context.Context, username string, afterID int64, limit int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Booking
	for id, b := range r.s.bookings {
		if b.Username == username && id > afterID {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memBookingRepo) UpdateAmount(ctx context.Context, id int64, amount int32) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return fmt.Errorf("booking %d not found", id)
	}
	b.Amount = amount
	b.UpdatedAt = time.Now()
	r.s.bookings[id] = b
	return nil
}

func (r *memBookingRepo) SumActiveAmountByTrip(ctx context.Context, tripID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sum int64
	for _, b := range r.s.bookings {
		if b.TripID == tripID && !b.Cancelled {
			sum += int64(b.Amount)
		}
	}
	return sum, nil
}

func (r *memBookingRepo) Cancel(ctx context.Context, id int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return 0, nil
	}
	if !b.Cancelled {
		b.Cancelled = true
		b.UpdatedAt = time.Now()
		r.s.bookings[id] = b
	}
	return 1, nil
}

func (r *memBookingRepo) CancelByTrip(ctx context.Context, tripID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []int64
	for id, b := range r.s.bookings {
		if b.TripID == tripID && !b.Cancelled {
			b.Cancelled = true
			b.UpdatedAt = time.Now()
			r.s.bookings[id] = b
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// fakeTrips is the Trip service. Unknown ids answer 404.
type fakeTrips struct {
	mu         sync.Mutex
	capacities map[int64]int64
	failing    map[int64]bool
	down       bool
}

func newFakeTrips() *fakeTrips {
	return &fakeTrips{capacities: map[int64]int64{}, failing: map[int64]bool{}}
}

func (f *fakeTrips) set(id, capacity int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capacities[id] = capacity
}

func (f *fakeTrips) answer(id int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down || f.failing[id] {
		return 0, fmt.Errorf("%w: connection refused", client.ErrUnavailable)
	}
	c, ok := f.capacities[id]
	if !ok {
		return 0, client.ErrTripNotFound
	}
	return c, nil
}

func (f *fakeTrips) Capacity(ctx context.Context, id int64) (int64, error) {
	return f.answer(id)
}

func (f *fakeTrips) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := f.answer(id)
	if errors.Is(err, client.ErrTripNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type publishedEvent struct {
	key   string
	event BookingEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishJSON(ctx context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{key: key, event: v.(BookingEvent)})
	return nil
}

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

type testEnv struct {
	store *memStore
	trips *fakeTrips
	pub   *fakePublisher
	svc   *Service
}

func newTestEnv() *testEnv {
	store := newMemStore()
	trips := newFakeTrips()
	pub := &fakePublisher{}
	return &testEnv{
		store: store,
		trips: trips,
		pub:   pub,
		svc:   newService(store, store.repository(), trips, pub, zap.NewNop()),
	}
}
