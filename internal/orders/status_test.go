package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kitchen-orders-backend/internal/model"
	"kitchen-orders-backend/internal/store"
	"kitchen-orders-backend/internal/store/storetest"
)

type published struct {
	channel string
	event   string
	data    any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (b *recordingBroadcaster) Broadcast(channel, event string, data any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{channel: channel, event: event, data: data})
	return b.err
}

func (b *recordingBroadcaster) published() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.events...)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(st store.Store, b Broadcaster, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(st, b, opts...)
}

func storedOrder(status model.OrderStatus) *model.Order {
	return &model.Order{
		ID:           "o1",
		Number:       7,
		RestaurantID: "r1",
		Status:       status,
		Restaurant:   model.Restaurant{ID: "r1", Slug: "demo-deli"},
	}
}

func TestUpdateStatus_Success(t *testing.T) {
	st := new(storetest.MockStore)
	b := &recordingBroadcaster{}
	svc := newTestService(st, b)

	note := "up next"
	st.On("UpdateOrderStatus", mock.Anything, mock.MatchedBy(func(c store.StatusChange) bool {
		return c.OrderID == "o1" && c.Status == model.StatusReady &&
			c.Note != nil && *c.Note == note && c.At.Equal(fixedNow)
	})).Return(storedOrder(model.StatusPending), nil).Once()

	result, err := svc.UpdateStatus(context.Background(), "o1", StatusUpdate{Status: "READY", Note: &note})
	require.NoError(t, err)

	want := &StatusResult{ID: "o1", Number: 7, Status: model.StatusReady}
	assert.Equal(t, want, result)

	events := b.published()
	require.Len(t, events, 1, "exactly one broadcast per committed change")
	assert.Equal(t, "demo-deli", events[0].channel)
	assert.Equal(t, EventOrderUpdated, events[0].event)
	assert.Equal(t, want, events[0].data)
	st.AssertExpectations(t)
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	for _, raw := range []string{"", "DONE", "ready", " READY"} {
		t.Run(raw, func(t *testing.T) {
			st := new(storetest.MockStore)
			b := &recordingBroadcaster{}
			svc := newTestService(st, b)

			_, err := svc.UpdateStatus(context.Background(), "o1", StatusUpdate{Status: raw})

			assert.ErrorIs(t, err, ErrValidation)
			st.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything)
			assert.Empty(t, b.published())
		})
	}
}

func TestUpdateStatus_RequiresOrderID(t *testing.T) {
	st := new(storetest.MockStore)
	svc := newTestService(st, &recordingBroadcaster{})

	_, err := svc.UpdateStatus(context.Background(), "", StatusUpdate{Status: "READY"})

	assert.ErrorIs(t, err, ErrValidation)
	st.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	st := new(storetest.MockStore)
	b := &recordingBroadcaster{}
	svc := newTestService(st, b)
	st.On("UpdateOrderStatus", mock.Anything, mock.Anything).Return(nil, store.ErrOrderNotFound)

	result, err := svc.UpdateStatus(context.Background(), "missing", StatusUpdate{Status: "READY"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrPersistence)
	assert.Empty(t, b.published())
}

func TestUpdateStatus_PersistenceFailure(t *testing.T) {
	st := new(storetest.MockStore)
	b := &recordingBroadcaster{}
	svc := newTestService(st, b)
	cause := errors.New("disk full")
	st.On("UpdateOrderStatus", mock.Anything, mock.Anything).Return(nil, cause)

	result, err := svc.UpdateStatus(context.Background(), "o1", StatusUpdate{Status: "CANCELED"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, b.published(), "nothing is announced when the write fails")
}

func TestUpdateStatus_BroadcastErrorDoesNotFailUpdate(t *testing.T) {
	st := new(storetest.MockStore)
	b := &recordingBroadcaster{err: errors.New("encode failed")}
	svc := newTestService(st, b)
	st.On("UpdateOrderStatus", mock.Anything, mock.Anything).Return(storedOrder(model.StatusPending), nil)

	result, err := svc.UpdateStatus(context.Background(), "o1", StatusUpdate{Status: "CONFIRMED"})

	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, result.Status)
	assert.Len(t, b.published(), 1)
}

func TestUpdateStatus_WithoutBroadcaster(t *testing.T) {
	st := new(storetest.MockStore)
	svc := newTestService(st, nil)
	st.On("UpdateOrderStatus", mock.Anything, mock.Anything).Return(storedOrder(model.StatusPending), nil)

	_, err := svc.UpdateStatus(context.Background(), "o1", StatusUpdate{Status: "READY"})
	assert.NoError(t, err)
}

func TestUpdateStatus_TerminalOrdersReopenByDefault(t *testing.T) {
	st := new(storetest.MockStore)
	b := &recordingBroadcaster{}
	svc := newTestService(st, b)
	st.On("UpdateOrderStatus", mock.Anything, mock.Anything).Return(storedOrder(model.StatusCanceled), nil)

	result, err := svc.UpdateStatus(context.Background(), "o1", StatusUpdate{Status: "PENDING"})

	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, result.Status)
}

func TestUpdateStatus_TerminalLockedPolicy(t *testing.T) {
	st := new(storetest.MockStore)
	b := &recordingBroadcaster{}
	svc := newTestService(st, b, WithPolicy(TerminalLocked))
	st.On("UpdateOrderStatus", mock.Anything, mock.Anything).Return(storedOrder(model.StatusCompleted), nil)

	result, err := svc.UpdateStatus(context.Background(), "o1", StatusUpdate{Status: "READY"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, b.published())
}

func TestTransitionPolicies(t *testing.T) {
	tests := []struct {
		from, to model.OrderStatus
		locked   bool
	}{
		{model.StatusPending, model.StatusReady, true},
		{model.StatusReady, model.StatusPending, true},
		{model.StatusOutForDelivery, model.StatusCompleted, true},
		{model.StatusCompleted, model.StatusCompleted, true},
		{model.StatusCompleted, model.StatusReady, false},
		{model.StatusCanceled, model.StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.True(t, AnyTransition(tt.from, tt.to))
			assert.Equal(t, tt.locked, TerminalLocked(tt.from, tt.to))
		})
	}
}
