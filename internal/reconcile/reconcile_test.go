package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookshop/internal/carrier"
	"bookshop/internal/events"
	"bookshop/internal/metrics"
	"bookshop/internal/model"
	"bookshop/internal/repository/mocks"
	"bookshop/internal/settings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type staticSettings struct {
	snapshot *settings.Snapshot
}

func (s staticSettings) Load(context.Context) (*settings.Snapshot, error) {
	return s.snapshot, nil
}

var withKey = staticSettings{snapshot: &settings.Snapshot{CarrierAPIKey: "np-key"}}

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) TrackDocument(ctx context.Context, apiKey, trackingNumber, phone string) (*carrier.TrackingStatus, error) {
	args := m.Called(ctx, apiKey, trackingNumber, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*carrier.TrackingStatus), args.Error(1)
}

type fakeLock struct {
	held       bool
	err        error
	releases   int
	releaseErr error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return f.releaseErr
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func shippedOrder(id, tracking, phone string) model.Order {
	return model.Order{ID: id, TrackingNumber: &tracking, CustomerPhone: phone, Status: model.OrderStatusShipped}
}

func TestReconciler_Run_MixedOutcomes(t *testing.T) {
	ctx := context.Background()
	orders := new(mocks.MockOrderRepository)
	tracker := new(MockTracker)
	publisher := &recordingPublisher{}
	reg := prometheus.NewRegistry()

	orders.On("ListShipped", ctx).Return([]model.Order{
		shippedOrder("100001", "TN-A", "0501111111"),
		shippedOrder("100002", "TN-B", "0502222222"),
		shippedOrder("100003", "TN-C", "0503333333"),
	}, nil)
	tracker.On("TrackDocument", ctx, "np-key", "TN-A", "0501111111").Return(&carrier.TrackingStatus{StatusCode: "9", Status: "Delivered"}, nil)
	tracker.On("TrackDocument", ctx, "np-key", "TN-B", "0502222222").Return(&carrier.TrackingStatus{StatusCode: "103", Status: "In transit"}, nil)
	tracker.On("TrackDocument", ctx, "np-key", "TN-C", "0503333333").Return(nil, errors.New("dial tcp: connection refused"))
	orders.On("MarkDelivered", ctx, "100001", "TN-A").Return(true, nil)

	r := New(orders, withKey, tracker, 0, zerolog.Nop(), WithPublisher(publisher), WithMetrics(metrics.NewShop(reg)))

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 1, summary.Updated)
	require.Len(t, summary.Results, 3)

	assert.Equal(t, model.ReconcileUpdated, summary.Results[0].Outcome)
	assert.Equal(t, "9", summary.Results[0].StatusCode)
	assert.Equal(t, model.ReconcileInTransit, summary.Results[1].Outcome)
	assert.Equal(t, "In transit", summary.Results[1].Status)
	assert.Equal(t, model.ReconcileLookupFailed, summary.Results[2].Outcome)
	assert.Contains(t, summary.Results[2].Error, "connection refused")

	require.Len(t, publisher.events, 1)
	assert.Equal(t, events.OrderDelivered, publisher.events[0].Type)
	assert.Equal(t, "100001", publisher.events[0].OrderID)

	count, err := testutil.GatherAndCount(reg, "bookshop_reconcile_results_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	orders.AssertNotCalled(t, "MarkDelivered", mock.Anything, "100002", mock.Anything)
	orders.AssertExpectations(t)
	tracker.AssertExpectations(t)
}

func TestReconciler_Run_UpdateFailures(t *testing.T) {
	ctx := context.Background()
	orders := new(mocks.MockOrderRepository)
	tracker := new(MockTracker)

	orders.On("ListShipped", ctx).Return([]model.Order{
		shippedOrder("100001", "TN-A", ""),
		shippedOrder("100002", "TN-B", ""),
	}, nil)
	tracker.On("TrackDocument", ctx, "np-key", mock.Anything, "").Return(&carrier.TrackingStatus{StatusCode: "106"}, nil)
	orders.On("MarkDelivered", ctx, "100001", "TN-A").Return(false, errors.New("deadlock"))
	orders.On("MarkDelivered", ctx, "100002", "TN-B").Return(false, nil)

	summary, err := New(orders, withKey, tracker, 0, zerolog.Nop()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 0, summary.Updated)
	for _, res := range summary.Results {
		assert.Equal(t, model.ReconcileUpdateFailed, res.Outcome)
		assert.NotEmpty(t, res.Error)
	}
}

func TestReconciler_Run_NoShippedOrders(t *testing.T) {
	ctx := context.Background()
	orders := new(mocks.MockOrderRepository)
	orders.On("ListShipped", ctx).Return([]model.Order{}, nil)

	summary, err := New(orders, withKey, new(MockTracker), time.Second, zerolog.Nop()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Checked)
	assert.NotNil(t, summary.Results)
}

func TestReconciler_Run_PacesCarrierCalls(t *testing.T) {
	ctx := context.Background()
	orders := new(mocks.MockOrderRepository)
	tracker := new(MockTracker)

	orders.On("ListShipped", ctx).Return([]model.Order{
		shippedOrder("100001", "TN-A", ""),
		shippedOrder("100002", "TN-B", ""),
		shippedOrder("100003", "TN-C", ""),
	}, nil)
	tracker.On("TrackDocument", ctx, "np-key", mock.Anything, "").Return(&carrier.TrackingStatus{StatusCode: "4"}, nil)

	start := time.Now()
	summary, err := New(orders, withKey, tracker, 50*time.Millisecond, zerolog.Nop()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Checked)
	// The first call goes out at once, the next two wait one interval each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestReconciler_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	orders := new(mocks.MockOrderRepository)
	tracker := new(MockTracker)

	orders.On("ListShipped", ctx).Return([]model.Order{
		shippedOrder("100001", "TN-A", ""),
		shippedOrder("100002", "TN-B", ""),
	}, nil)
	tracker.On("TrackDocument", ctx, "np-key", "TN-A", "").
		Run(func(mock.Arguments) { cancel() }).
		Return(&carrier.TrackingStatus{StatusCode: "4"}, nil)

	summary, err := New(orders, withKey, tracker, time.Hour, zerolog.Nop()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Checked)
	tracker.AssertNotCalled(t, "TrackDocument", mock.Anything, mock.Anything, "TN-B", mock.Anything)
}

func TestReconciler_Run_Lock(t *testing.T) {
	ctx := context.Background()

	t.Run("Concurrent run is rejected", func(t *testing.T) {
		lock := &fakeLock{held: true}
		orders := new(mocks.MockOrderRepository)

		summary, err := New(orders, withKey, new(MockTracker), 0, zerolog.Nop(), WithLock(lock)).Run(ctx)
		assert.Nil(t, summary)
		assert.ErrorIs(t, err, model.ErrReconcileInProgress)
		assert.Equal(t, 0, lock.releases)
		orders.AssertNotCalled(t, "ListShipped", mock.Anything)
	})

	t.Run("Lock is released after the run", func(t *testing.T) {
		lock := &fakeLock{}
		orders := new(mocks.MockOrderRepository)
		orders.On("ListShipped", ctx).Return([]model.Order{}, nil)

		_, err := New(orders, withKey, new(MockTracker), 0, zerolog.Nop(), WithLock(lock)).Run(ctx)
		require.NoError(t, err)
		assert.False(t, lock.held)
		assert.Equal(t, 1, lock.releases)
	})

	t.Run("Lock backend failure", func(t *testing.T) {
		lock := &fakeLock{err: errors.New("redis down")}

		_, err := New(new(mocks.MockOrderRepository), withKey, new(MockTracker), 0, zerolog.Nop(), WithLock(lock)).Run(ctx)
		require.Error(t, err)
		_, ok := model.AsDomainError(err)
		assert.False(t, ok)
	})
}

func TestReconciler_Run_MissingAPIKey(t *testing.T) {
	orders := new(mocks.MockOrderRepository)
	lock := &fakeLock{}

	_, err := New(orders, staticSettings{snapshot: &settings.Snapshot{}}, new(MockTracker), 0, zerolog.Nop(), WithLock(lock)).Run(context.Background())
	assert.ErrorIs(t, err, model.ErrCarrierAPIKeyMissing)
	assert.Equal(t, 1, lock.releases)
	orders.AssertNotCalled(t, "ListShipped", mock.Anything)
}
