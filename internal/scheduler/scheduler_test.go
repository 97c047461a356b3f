package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
	"github.com/tartampluch/go-birthday-bot/internal/scheduler"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) DispatchForDate(ctx context.Context, today time.Time) (int, error) {
	args := m.Called(ctx, today)
	return args.Int(0), args.Error(1)
}

type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

type staticConfig struct {
	cfg engine.AppConfig
	err error
}

func (s staticConfig) Load() (engine.AppConfig, error) {
	return s.cfg, s.err
}

func losAngeles(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return loc
}

// -----------------------------------------------------------------------------
// Catch-up
// -----------------------------------------------------------------------------

func TestCatchUp(t *testing.T) {
	tests := []struct {
		desc     string
		now      time.Time
		wantRun  bool
		wantDate time.Time
	}{
		{"After send time", time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC), true, engine.Date(2026, 3, 7)},
		{"Exactly at send time", time.Date(2026, 3, 7, 17, 0, 0, 0, time.UTC), true, engine.Date(2026, 3, 7)},
		{"Before send time", time.Date(2026, 3, 7, 16, 59, 0, 0, time.UTC), false, time.Time{}},
		{"UTC already tomorrow", time.Date(2026, 3, 8, 3, 0, 0, 0, time.UTC), true, engine.Date(2026, 3, 7)},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			d := new(MockDispatcher)
			if tt.wantRun {
				d.On("DispatchForDate", mock.Anything, tt.wantDate).Return(1, nil).Once()
			}
			s := scheduler.New(d, nil, MockClock{CurrentTime: tt.now})

			ran := s.CatchUp(context.Background(), losAngeles(t), 9, 0)

			assert.Equal(t, tt.wantRun, ran)
			d.AssertExpectations(t)
			if !tt.wantRun {
				d.AssertNotCalled(t, "DispatchForDate", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestRunOnce_FailureStillRunsHook(t *testing.T) {
	d := new(MockDispatcher)
	d.On("DispatchForDate", mock.Anything, engine.Date(2026, 3, 7)).Return(0, errors.New("telegram down"))

	s := scheduler.New(d, nil, MockClock{CurrentTime: time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC)})
	hooked := 0
	s.AfterDispatch = func(context.Context) { hooked++ }

	s.RunOnce(context.Background(), losAngeles(t))

	assert.Equal(t, 1, hooked)
	d.AssertExpectations(t)
}

// -----------------------------------------------------------------------------
// Run
// -----------------------------------------------------------------------------

func TestRun_CatchesUpThenStops(t *testing.T) {
	dispatched := make(chan struct{})
	d := new(MockDispatcher)
	d.On("DispatchForDate", mock.Anything, engine.Date(2026, 3, 7)).
		Run(func(mock.Arguments) { close(dispatched) }).
		Return(2, nil).Once()

	cfg := engine.AppConfig{Timezone: "America/Los_Angeles", DailySendTime: "09:00", LeapDayRule: engine.LeapFeb28}
	s := scheduler.New(d, staticConfig{cfg: cfg}, MockClock{CurrentTime: time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-dispatched:
	case <-time.After(2 * time.Second):
		t.Fatal("catch-up dispatch did not run")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	d.AssertExpectations(t)
}

func TestRun_ConfigErrors(t *testing.T) {
	loadErr := errors.New("config file not found")

	tests := []struct {
		desc   string
		loader staticConfig
	}{
		{"Load failure", staticConfig{err: loadErr}},
		{"Unknown timezone", staticConfig{cfg: engine.AppConfig{Timezone: "Mars/Olympus", DailySendTime: "09:00"}}},
		{"Bad send time", staticConfig{cfg: engine.AppConfig{Timezone: "UTC", DailySendTime: "25:00"}}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			d := new(MockDispatcher)
			s := scheduler.New(d, tt.loader, MockClock{CurrentTime: time.Now()})

			err := s.Run(context.Background())

			require.Error(t, err)
			d.AssertNotCalled(t, "DispatchForDate", mock.Anything, mock.Anything)
		})
	}
}
