package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/directory-crawler/internal/checkpoint"
	"github.com/JakeFAU/directory-crawler/internal/crawler"
	"github.com/JakeFAU/directory-crawler/internal/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type extractFunc func(ctx context.Context, call int, unit crawler.SearchUnit) ([]crawler.Listing, error)

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	units []crawler.SearchUnit
	fn    extractFunc
}

func (f *fakeExtractor) Extract(ctx context.Context, unit crawler.SearchUnit) ([]crawler.Listing, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.units = append(f.units, unit)
	f.mu.Unlock()
	return f.fn(ctx, call, unit)
}

type fakeSession struct {
	mu     sync.Mutex
	closed int
}

func (s *fakeSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSession) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func noSleep(context.Context, time.Duration) error { return nil }

func makeUnits(n int) []crawler.SearchUnit {
	units := make([]crawler.SearchUnit, n)
	for i := range units {
		units[i] = crawler.SearchUnit{Area: "Madrid", Category: fmt.Sprintf("Category %02d", i), PostalHint: "28001"}
	}
	return units
}

func oneListing(_ context.Context, _ int, unit crawler.SearchUnit) ([]crawler.Listing, error) {
	return []crawler.Listing{{Category: unit.Category, Name: "Shop " + unit.Category, City: unit.Area, Hours: crawler.NewHours()}}, nil
}

func newScheduler(sink crawler.Sink) *checkpoint.Scheduler {
	return checkpoint.New(checkpoint.Config{Interval: 10, Duration: time.Hour, Prefix: "business_data"},
		sink, fixedClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}, nil)
}

func kinds(writes []memory.Write) []string {
	out := make([]string, 0, len(writes))
	for _, w := range writes {
		switch {
		case strings.Contains(w.Path, "_partial_"):
			out = append(out, "partial")
		case strings.Contains(w.Path, "_interrupted_"):
			out = append(out, "interrupted")
		case strings.Contains(w.Path, "_final_"):
			out = append(out, "final")
		default:
			out = append(out, "complete")
		}
	}
	return out
}

func TestRunCompletesWithPlainSnapshot(t *testing.T) {
	t.Parallel()

	sink := memory.NewSink()
	session := &fakeSession{}
	ex := &fakeExtractor{fn: oneListing}
	r := New(makeUnits(12), ex, newScheduler(sink), session, Config{UnitPause: time.Second}, nil, WithSleep(noSleep))

	require.NoError(t, r.Run(context.Background()))

	writes := sink.Writes()
	assert.Equal(t, []string{"partial", "complete"}, kinds(writes))
	assert.Len(t, writes[1].Rows, 12)
	assert.Equal(t, 1, session.Closed())

	st := r.Status()
	assert.Equal(t, StateCompleted, st.State)
	assert.Equal(t, 12, st.UnitsProcessed)
	assert.Equal(t, 12, st.TotalUnits)
	assert.Empty(t, st.CurrentUnit)
}

func TestRunInterruptedWritesOneInterruptedSnapshot(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := memory.NewSink()
	session := &fakeSession{}
	ex := &fakeExtractor{fn: func(ctx context.Context, call int, unit crawler.SearchUnit) ([]crawler.Listing, error) {
		if call == 38 {
			cancel()
			return nil, ctx.Err()
		}
		return oneListing(ctx, call, unit)
	}}
	r := New(makeUnits(100), ex, newScheduler(sink), session, Config{}, nil, WithSleep(noSleep))

	err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	writes := sink.Writes()
	require.Equal(t, []string{"partial", "partial", "partial", "interrupted"}, kinds(writes))
	assert.Len(t, writes[3].Rows, 37)
	assert.Equal(t, 1, session.Closed())
	assert.Equal(t, 38, ex.calls)
	assert.Equal(t, StateInterrupted, r.Status().State)
}

func TestRunSoftUnitFailuresContinue(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	sink := memory.NewSink()
	ex := &fakeExtractor{fn: func(ctx context.Context, call int, unit crawler.SearchUnit) ([]crawler.Listing, error) {
		if call%2 == 0 {
			return nil, crawler.ErrNoResults
		}
		return oneListing(ctx, call, unit)
	}}
	r := New(makeUnits(4), ex, newScheduler(sink), nil, Config{}, zap.New(core), WithSleep(noSleep))

	require.NoError(t, r.Run(context.Background()))

	writes := sink.Writes()
	require.Len(t, writes, 1)
	assert.Len(t, writes[0].Rows, 2)
	assert.Equal(t, 2, r.Status().Failed)
	assert.Equal(t, 4, r.Status().UnitsProcessed)
	assert.Equal(t, 2, logs.FilterMessage("unit failed").Len())
}

func TestRunPanicWritesFinalSnapshot(t *testing.T) {
	t.Parallel()

	sink := memory.NewSink()
	session := &fakeSession{}
	ex := &fakeExtractor{fn: func(ctx context.Context, call int, unit crawler.SearchUnit) ([]crawler.Listing, error) {
		if call == 3 {
			panic("driver crashed")
		}
		return oneListing(ctx, call, unit)
	}}
	r := New(makeUnits(5), ex, newScheduler(sink), session, Config{}, nil, WithSleep(noSleep))

	assert.PanicsWithValue(t, "driver crashed", func() { _ = r.Run(context.Background()) })

	writes := sink.Writes()
	require.Equal(t, []string{"final"}, kinds(writes))
	assert.Len(t, writes[0].Rows, 2)
	assert.Equal(t, 1, session.Closed())
	assert.Equal(t, StateFailed, r.Status().State)
}

func TestRunEmptyAccumulatorWritesNothing(t *testing.T) {
	t.Parallel()

	sink := memory.NewSink()
	session := &fakeSession{}
	ex := &fakeExtractor{fn: func(context.Context, int, crawler.SearchUnit) ([]crawler.Listing, error) {
		return nil, nil
	}}
	r := New(makeUnits(3), ex, newScheduler(sink), session, Config{}, nil, WithSleep(noSleep))

	require.NoError(t, r.Run(context.Background()))
	assert.Empty(t, sink.Writes())
	assert.Equal(t, 1, session.Closed())
}

func TestRunSkipsUnitsInLedger(t *testing.T) {
	t.Parallel()

	units := makeUnits(3)
	ledger := memory.NewLedger()
	require.NoError(t, ledger.MarkDone(context.Background(), units[1]))

	ex := &fakeExtractor{fn: oneListing}
	r := New(units, ex, newScheduler(memory.NewSink()), nil, Config{}, nil, WithSleep(noSleep), WithLedger(ledger))

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []crawler.SearchUnit{units[0], units[2]}, ex.units)
	assert.Equal(t, 1, r.Status().Skipped)

	for _, u := range units {
		done, err := ledger.Done(context.Background(), u)
		require.NoError(t, err)
		assert.True(t, done, u.Key())
	}
}

func TestRunFailedUnitIsStillMarkedDone(t *testing.T) {
	t.Parallel()

	units := makeUnits(1)
	ledger := memory.NewLedger()
	ex := &fakeExtractor{fn: func(context.Context, int, crawler.SearchUnit) ([]crawler.Listing, error) {
		return nil, errors.New("budget")
	}}
	r := New(units, ex, newScheduler(memory.NewSink()), nil, Config{}, nil, WithLedger(ledger))

	require.NoError(t, r.Run(context.Background()))
	done, err := ledger.Done(context.Background(), units[0])
	require.NoError(t, err)
	assert.True(t, done)
}

func TestRunPausesBetweenUnits(t *testing.T) {
	t.Parallel()

	var pauses []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}
	ex := &fakeExtractor{fn: oneListing}
	r := New(makeUnits(3), ex, newScheduler(memory.NewSink()), nil, Config{UnitPause: time.Second}, nil, WithSleep(sleep))

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []time.Duration{time.Second, time.Second}, pauses)
}

func TestAbortWritesFinalSnapshot(t *testing.T) {
	t.Parallel()

	sink := memory.NewSink()
	sched := newScheduler(sink)
	cause := errors.New("browser startup failed")

	err := Abort(context.Background(), sched, cause, nil)
	require.ErrorIs(t, err, cause)
	assert.Empty(t, sink.Writes())

	sched.Append(crawler.Listing{Name: "Kept", Hours: crawler.NewHours()})
	require.ErrorIs(t, Abort(context.Background(), sched, cause, nil), cause)
	assert.Equal(t, []string{"final"}, kinds(sink.Writes()))
}
