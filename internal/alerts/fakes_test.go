package alerts

import (
	"context"
	"errors"
	"sync"
	"time"

	"swellwatch/internal/db"
	"swellwatch/internal/notifications"
	"swellwatch/internal/types"
)

// memStore backs checks, notifications and inbox entries, keyed the way
// the database unique constraints are.
type memStore struct {
	mu            sync.Mutex
	checks        map[string]types.AlertCheck
	notifications map[string]types.AlertNotification
	inbox         []types.UserNotification
	existsErr     error
}

func newMemStore() *memStore {
	return &memStore{
		checks:        make(map[string]types.AlertCheck),
		notifications: make(map[string]types.AlertNotification),
	}
}

func dayKey(id string, day time.Time) string {
	return id + "|" + types.Day(day).Format(types.DateLayout)
}

func (s *memStore) ExistsForDay(_ context.Context, alertID string, day time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.checks[dayKey(alertID, day)]
	return ok, nil
}

func (s *memStore) Record(_ context.Context, c *types.AlertCheck, _ []types.PropertyComparison) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[dayKey(c.AlertID, c.CheckedOn)] = *c
	return nil
}

func (s *memStore) MarkProcessed(_ context.Context, c *types.AlertCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := dayKey(c.AlertID, c.CheckedOn)
	if _, ok := s.checks[k]; !ok {
		s.checks[k] = *c
	}
	return nil
}

func (s *memStore) Create(_ context.Context, n *types.AlertNotification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := dayKey(n.AlertID, n.SentOn)
	if _, ok := s.notifications[k]; ok {
		return false, nil
	}
	s.notifications[k] = *n
	return true, nil
}

func (s *memStore) Complete(_ context.Context, n *types.AlertNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := dayKey(n.AlertID, n.SentOn)
	cur, ok := s.notifications[k]
	if !ok || cur.ID != n.ID || cur.Status != types.NotificationPending {
		return errors.New("notification is not pending")
	}
	s.notifications[k] = *n
	return nil
}

func (s *memStore) CreateUserNotification(_ context.Context, un *types.UserNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox = append(s.inbox, *un)
	return nil
}

// notificationGate exposes the notification half of memStore as the gate.
type notificationGate struct{ s *memStore }

func (g notificationGate) ExistsForDay(_ context.Context, alertID string, day time.Time) (bool, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	_, ok := g.s.notifications[dayKey(alertID, day)]
	return ok, nil
}

// barrierGate holds every caller until n have asked, then reports nothing
// sent, so all of them race past the gate together.
type barrierGate struct{ wg *sync.WaitGroup }

func newBarrierGate(n int) barrierGate {
	wg := &sync.WaitGroup{}
	wg.Add(n)
	return barrierGate{wg: wg}
}

func (g barrierGate) ExistsForDay(context.Context, string, time.Time) (bool, error) {
	g.wg.Done()
	g.wg.Wait()
	return false, nil
}

// memTx runs fn directly; writes are not rolled back.
type memTx struct{}

func (*memTx) RunInTx(ctx context.Context, fn func(ctx context.Context, q db.DBTX) error) error {
	return fn(ctx, nil)
}

func memWriters(s *memStore) WritersFunc {
	return func(db.DBTX) TxWriters {
		return TxWriters{Notifications: s, Checks: s}
	}
}

type fakeSender struct {
	mu    sync.Mutex
	calls int
	err   error
	inApp bool
}

func (f *fakeSender) Send(_ context.Context, alert *types.Alert, msg notifications.Message) (notifications.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return notifications.Receipt{}, f.err
	}
	rc := notifications.Receipt{ProviderMsgID: "msg-1"}
	if f.inApp {
		rc.InApp = &types.UserNotification{ID: "un-1", UserID: alert.UserID, AlertID: alert.ID, Title: msg.Subject}
	}
	return rc, nil
}

type fakeLocations struct {
	byID  map[string]types.LocationProfile
	err   error
	calls int
}

func (f *fakeLocations) GetByID(_ context.Context, id string) (*types.LocationProfile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	loc, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

type fakeAlerts struct {
	alerts []types.Alert
	err    error
}

func (f *fakeAlerts) ListActiveByUser(context.Context, string) ([]types.Alert, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]types.Alert, len(f.alerts))
	copy(out, f.alerts)
	return out, nil
}

type fakeForecasts struct {
	byRegion map[string]*types.ForecastSnapshot
	errs     map[string]error
	calls    map[string]int
}

func (f *fakeForecasts) GetForecast(_ context.Context, regionID string, _ time.Time) (*types.ForecastSnapshot, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[regionID]++
	if err := f.errs[regionID]; err != nil {
		return nil, err
	}
	return f.byRegion[regionID], nil
}

type fakeScores struct {
	byRegion map[string]map[string]types.DailyScore
	err      error
	calls    int
}

func (f *fakeScores) GetOrComputeWithForecast(_ context.Context, regionID string, _ time.Time, forecast *types.ForecastSnapshot) (map[string]types.DailyScore, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if forecast == nil {
		return map[string]types.DailyScore{}, nil
	}
	return f.byRegion[regionID], nil
}

type panicDispatcher struct{}

func (panicDispatcher) Dispatch(context.Context, *types.Alert, *types.MatchResult, time.Time) (bool, error) {
	panic("boom")
}

type recordedRun struct {
	stats types.RunStats
	calls int
}

func (r *recordedRun) RecordRun(_ context.Context, stats types.RunStats, _ time.Duration) {
	r.stats = stats
	r.calls++
}

var errDB = errors.New("connection refused")
