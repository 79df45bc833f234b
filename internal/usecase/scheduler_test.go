package usecase

import (
	"context"
	"testing"
	"time"

	"TrendTracker/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticGate struct{ open bool }

func (g staticGate) IsOpen(context.Context) bool { return g.open }

type panicGate struct{}

func (panicGate) IsOpen(context.Context) bool { panic("provider exploded") }

type schedFixture struct {
	quotes *scriptedQuotes
	store  *memStore
	email  *fakeEmail
	sched  *RefreshScheduler
}

func newSchedFixture(gate Gate) *schedFixture {
	f := &schedFixture{
		quotes: newScriptedQuotes(map[string]string{"AAPL": "150", "MSFT": "300"}),
		store:  newMemStore(),
		email:  &fakeEmail{},
	}
	f.store.symbols = []string{"AAPL", "MSFT"}
	f.store.alerts = []*models.Alert{alert(1, "AAPL", "150", models.DirectionUp, models.ChannelEmail)}

	refresher := NewPriceRefresher(f.quotes, f.store, nil, nopMetrics{}, testLog,
		RefreshConfig{BatchSize: 25}, WithSleep((&sleepRecorder{}).Sleep))
	evaluator := NewAlertEvaluator(f.store, f.quotes, NewDispatcher(f.email, nil, nopMetrics{}, testLog), nil, nopMetrics{}, testLog)
	f.sched = NewRefreshScheduler(SchedulerConfig{
		RefreshEnabled:  true,
		RefreshInterval: time.Hour,
		AlertsEnabled:   true,
		AlertInterval:   time.Hour,
	}, gate, f.store, refresher, evaluator, nopMetrics{}, testLog)
	return f
}

func TestRefreshCycleUpdatesPricesThenEvaluates(t *testing.T) {
	f := newSchedFixture(staticGate{open: true})

	f.sched.RunRefreshCycle(context.Background())

	st := f.sched.Status()
	assert.False(t, st.Refreshing)
	assert.Equal(t, int64(1), st.Cycles)
	require.NotNil(t, st.LastRefresh)
	assert.Equal(t, []string{"AAPL", "MSFT"}, st.LastRefresh.Updated)
	require.NotNil(t, st.LastEvaluation)
	assert.Equal(t, []int64{1}, st.LastEvaluation.Triggered)
	assert.Len(t, f.email.Sent(), 1)
	assert.Len(t, f.store.prices, 2)
}

func TestRefreshCycleSkipsWhenMarketClosed(t *testing.T) {
	f := newSchedFixture(staticGate{open: false})

	f.sched.RunRefreshCycle(context.Background())

	assert.Empty(t, f.quotes.Calls())
	st := f.sched.Status()
	assert.Nil(t, st.LastRefresh)
	assert.False(t, st.Refreshing)
}

func TestOverlappingRefreshIsDropped(t *testing.T) {
	f := newSchedFixture(staticGate{open: true})
	f.quotes.block = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.sched.RunRefreshCycle(context.Background())
	}()

	require.Eventually(t, func() bool { return f.sched.Status().Cycles == 1 }, time.Second, time.Millisecond)
	assert.True(t, f.sched.Status().Refreshing)

	// Second firing returns immediately without touching the provider.
	f.sched.RunRefreshCycle(context.Background())
	st := f.sched.Status()
	assert.Equal(t, int64(1), st.Cycles)
	assert.Equal(t, int64(1), st.Dropped)

	close(f.quotes.block)
	<-done
	assert.False(t, f.sched.Status().Refreshing)
	assert.Equal(t, 1, f.quotes.CallCount("MSFT"))
}

func TestRefreshCyclePanicReleasesGuard(t *testing.T) {
	f := newSchedFixture(panicGate{})

	assert.NotPanics(t, func() { f.sched.RunRefreshCycle(context.Background()) })
	assert.False(t, f.sched.Status().Refreshing)

	// The guard is free for the next firing.
	assert.True(t, f.sched.guard.TryStart())
	f.sched.guard.Finish()
}

func TestCheckNowRunsInBackground(t *testing.T) {
	f := newSchedFixture(staticGate{open: true})

	f.sched.CheckNow()
	f.sched.wg.Wait()

	assert.Len(t, f.email.Sent(), 1)
	assert.False(t, f.sched.Status().Refreshing)
	assert.Equal(t, int64(0), f.sched.Status().Cycles)
}

func TestStopWaitsForManualCheck(t *testing.T) {
	f := newSchedFixture(staticGate{open: true})
	f.quotes.block = make(chan struct{})
	require.NoError(t, f.sched.Start(context.Background()))

	f.sched.CheckNow()
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		f.sched.Stop()
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a manual check was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.quotes.block)
	<-stopped
	assert.Len(t, f.email.Sent(), 1)
}

func TestCheckNowAfterStopIsIgnored(t *testing.T) {
	f := newSchedFixture(staticGate{open: true})
	require.NoError(t, f.sched.Start(context.Background()))
	f.sched.Stop()

	f.sched.CheckNow()
	f.sched.wg.Wait()

	assert.Empty(t, f.quotes.Calls())
	assert.Empty(t, f.email.Sent())
	assert.Nil(t, f.sched.Status().LastEvaluation)
}

func TestRunAlertCheckRecordsEvaluation(t *testing.T) {
	f := newSchedFixture(staticGate{open: true})

	f.sched.RunAlertCheck(context.Background())

	st := f.sched.Status()
	require.NotNil(t, st.LastEvaluation)
	assert.Equal(t, 1, st.LastEvaluation.Alerts)
	assert.Nil(t, st.LastRefresh)
}

func TestStartRejectsBadCron(t *testing.T) {
	f := newSchedFixture(staticGate{open: true})
	f.sched.cfg.RefreshCron = "not a cron"

	err := f.sched.Start(context.Background())
	assert.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	f := newSchedFixture(staticGate{open: true})
	f.sched.cfg.RefreshCron = "*/10 * * * *"

	require.NoError(t, f.sched.Start(context.Background()))
	f.sched.Stop()

	// Jobs wait for their first tick.
	assert.Empty(t, f.quotes.Calls())
}

func TestRefreshGuard(t *testing.T) {
	var g RefreshGuard
	assert.True(t, g.TryStart())
	assert.False(t, g.TryStart())
	assert.True(t, g.Running())
	g.Finish()
	assert.False(t, g.Running())
	assert.True(t, g.TryStart())
}
