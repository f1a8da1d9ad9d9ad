package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/slotbell/internal/clock"
	"github.com/friendsincode/slotbell/internal/dispatch"
	"github.com/friendsincode/slotbell/internal/events"
	"github.com/friendsincode/slotbell/internal/schedule"
	"github.com/friendsincode/slotbell/internal/scheduler/state"
	"github.com/friendsincode/slotbell/internal/slots"
)

// Wednesday 21 October 2026, 14:37 local time.
var wallTime = time.Date(2026, time.October, 21, 14, 37, 0, 0, time.Local)

func intPtr(v int) *int { return &v }

type dispatchCall struct {
	address string
	payload dispatch.Payload
}

type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []dispatchCall
	outcome dispatch.Outcome
	entered chan struct{}
	release chan struct{}
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, address string, payload dispatch.Payload) dispatch.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, dispatchCall{address: address, payload: payload})
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.outcome.Status == "" {
		return dispatch.Outcome{Status: dispatch.StatusOnline, StatusCode: http.StatusOK}
	}
	return f.outcome
}

func (f *fakeDispatcher) Calls() []dispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatchCall(nil), f.calls...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []dispatch.Attempt
}

func (r *fakeRecorder) Record(_ context.Context, a dispatch.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return nil
}

type fixture struct {
	overlay    *clock.Overlay
	dispatcher *fakeDispatcher
	recorder   *fakeRecorder
	bus        *events.Bus
	history    *state.Store
	eval       *Evaluator
	service    *Service
}

func defaultSlots() slots.Source {
	return slots.StaticSource{Config: &slots.Config{
		Slots:           map[int]string{1: "09:00", 2: "10:00", 3: "11:15"},
		EndpointAddress: "192.168.1.50",
	}}
}

func defaultEntries() schedule.Store {
	return schedule.StaticStore{Entries: map[string][]schedule.Entry{
		"1:1": {{DayTime: "1:1", Class: "CS5A", Room: "R101", RangeStart: "1RV21CS001", RangeEnd: "1RV21CS003"}},
		"3:2": {
			{DayTime: "3:2", Class: "CS5A", Room: "R101", RangeStart: "1RV21CS001", RangeEnd: "1RV21CS002"},
			{DayTime: "3:2", Class: "EC3B", RangeStart: "1RV22EC001", RangeEnd: "1RV22EC004"},
			{DayTime: "3:2", Class: "ME1C", Room: "R204"},
		},
	}}
}

func newFixture(t *testing.T, source slots.Source, store schedule.Store) *fixture {
	t.Helper()
	f := &fixture{
		overlay:    clock.NewOverlay(clock.Func(func() time.Time { return wallTime })),
		dispatcher: &fakeDispatcher{},
		recorder:   &fakeRecorder{},
		bus:        events.NewBus(),
		history:    state.NewStore(16),
	}
	f.eval = NewEvaluator(Deps{
		Slots:      source,
		Clock:      f.overlay,
		Query:      schedule.NewQuery(store, zerolog.Nop()),
		Dispatcher: f.dispatcher,
		Recorder:   f.recorder,
		Bus:        f.bus,
		History:    f.history,
		Wall:       clock.Func(func() time.Time { return wallTime }),
	}, zerolog.Nop())
	f.service = NewService(f.eval, f.overlay, source, f.bus, f.history, zerolog.Nop())
	return f
}

func TestEndToEndSimulatedSlotDispatchesOneTask(t *testing.T) {
	var received dispatch.Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/start" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	source := slots.StaticSource{Config: &slots.Config{Slots: map[int]string{1: "09:00"}, EndpointAddress: srv.URL}}
	overlay := clock.NewOverlay(clock.Func(func() time.Time { return wallTime }))
	eval := NewEvaluator(Deps{
		Slots:      source,
		Clock:      overlay,
		Query:      schedule.NewQuery(defaultEntries(), zerolog.Nop()),
		Dispatcher: dispatch.New(time.Second, zerolog.Nop()),
	}, zerolog.Nop())
	svc := NewService(eval, overlay, source, nil, nil, zerolog.Nop())

	res, err := svc.SetSimulatedTime(context.Background(), "09:00", intPtr(1))
	if err != nil {
		t.Fatalf("SetSimulatedTime: %v", err)
	}

	if !res.Triggered || res.Slot == nil || *res.Slot != 1 || res.Day != 1 || res.DayName != "Monday" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.EncodedDayTime != "1:1" || res.MasterStatus != dispatch.StatusOnline {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(received.Tasks) != 1 {
		t.Fatalf("expected exactly one task, got %+v", received)
	}
	task := received.Tasks[0]
	want := []string{"1RV21CS001", "1RV21CS002", "1RV21CS003"}
	if task.Address != "R101" || len(task.USNs) != len(want) {
		t.Fatalf("unexpected task: %+v", task)
	}
	for i := range want {
		if task.USNs[i] != want[i] {
			t.Fatalf("usns = %v, want %v", task.USNs, want)
		}
	}
}

func TestSundayNeverTriggers(t *testing.T) {
	f := newFixture(t, defaultSlots(), defaultEntries())

	for _, hhmm := range []string{"09:00", "10:00", "11:15"} {
		res, err := f.service.SetSimulatedTime(context.Background(), hhmm, intPtr(7))
		if err != nil {
			t.Fatalf("SetSimulatedTime: %v", err)
		}
		if res.Triggered || res.Message != "No classes on Sunday" || res.DayName != "Sunday" {
			t.Fatalf("unexpected result for %s: %+v", hhmm, res)
		}
	}
	if calls := f.dispatcher.Calls(); len(calls) != 0 {
		t.Fatalf("Sunday must not dispatch, got %d calls", len(calls))
	}
}

func TestOfflineEndpointStillTriggers(t *testing.T) {
	f := newFixture(t, defaultSlots(), defaultEntries())
	f.dispatcher.outcome = dispatch.Outcome{Status: dispatch.StatusOffline, Err: errors.New("connection refused")}
	offline := f.bus.Subscribe(events.EventDispatchOffline)

	res, err := f.service.SetSimulatedTime(context.Background(), "9:00", intPtr(1))
	if err != nil {
		t.Fatalf("SetSimulatedTime: %v", err)
	}
	if !res.Triggered || res.MasterStatus != dispatch.StatusOffline {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.DataSent == nil || len(res.DataSent.Tasks) != 1 {
		t.Fatalf("payload must be reported back, got %+v", res.DataSent)
	}

	select {
	case p := <-offline:
		if p["error"] != "connection refused" {
			t.Fatalf("unexpected event: %v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("expected dispatch.offline event")
	}

	if len(f.recorder.attempts) != 1 {
		t.Fatalf("expected one recorded attempt, got %d", len(f.recorder.attempts))
	}
	a := f.recorder.attempts[0]
	if a.Occurrence != "211026:1" || a.DayTime != "1:1" || a.EvaluationID != res.EvaluationID {
		t.Fatalf("unexpected attempt: %+v", a)
	}
}

func TestConfigUnavailableSkipsEverything(t *testing.T) {
	f := newFixture(t, slots.StaticSource{Err: slots.ErrConfigUnavailable}, defaultEntries())

	res, err := f.service.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if res.Triggered || res.Slot != nil || res.Message != "Config not loaded" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(f.dispatcher.Calls()) != 0 {
		t.Fatal("nothing may be dispatched without config")
	}
}

func TestTimeWithoutSlotIsSkipped(t *testing.T) {
	f := newFixture(t, defaultSlots(), defaultEntries())

	// Real clock reads 14:37 on a Wednesday.
	res, err := f.service.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if res.Triggered || res.Time != "14:37" || res.Day != 3 || res.Message != "Time 14:37 does not match any slot" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestIncompleteEntriesAreDropped(t *testing.T) {
	f := newFixture(t, defaultSlots(), defaultEntries())

	res, err := f.service.SetSimulatedTime(context.Background(), "10:00", nil)
	if err != nil {
		t.Fatalf("SetSimulatedTime: %v", err)
	}
	if !res.Triggered || res.EncodedDayTime != "3:2" || len(res.ScheduleEntries) != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	calls := f.dispatcher.Calls()
	if len(calls) != 1 || calls[0].address != "192.168.1.50" {
		t.Fatalf("unexpected dispatch calls: %+v", calls)
	}
	if tasks := calls[0].payload.Tasks; len(tasks) != 1 || tasks[0].Address != "R101" || len(tasks[0].USNs) != 2 {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestLookupFailureDispatchesEmptyBatch(t *testing.T) {
	f := newFixture(t, defaultSlots(), schedule.StaticStore{Err: schedule.ErrLookup})

	res, err := f.service.SetSimulatedTime(context.Background(), "09:00", intPtr(2))
	if err != nil {
		t.Fatalf("SetSimulatedTime: %v", err)
	}
	if !res.Triggered || len(res.ScheduleEntries) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	calls := f.dispatcher.Calls()
	if len(calls) != 1 || len(calls[0].payload.Tasks) != 0 {
		t.Fatalf("expected one empty dispatch, got %+v", calls)
	}
}

func TestEvaluationsAreSerialized(t *testing.T) {
	f := newFixture(t, defaultSlots(), defaultEntries())
	f.dispatcher.entered = make(chan struct{}, 1)
	f.dispatcher.release = make(chan struct{})

	if _, err := f.overlay.SetTime("09:00", intPtr(1)); err != nil {
		t.Fatalf("SetTime: %v", err)
	}

	first := make(chan Result, 1)
	go func() {
		res, _ := f.eval.Evaluate(context.Background(), SourceManual)
		first <- res
	}()
	<-f.dispatcher.entered

	if _, ok := f.eval.TryEvaluate(context.Background(), SourceTimer); ok {
		t.Fatal("TryEvaluate must reject while busy")
	}
	if _, ok := <-f.eval.Go(context.Background(), SourceTimer); ok {
		t.Fatal("Go must close without a result while busy")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.eval.Evaluate(ctx, SourceManual); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("queued Evaluate should give up with its context, got %v", err)
	}

	close(f.dispatcher.release)
	if res := <-first; !res.Triggered {
		t.Fatalf("first evaluation should trigger: %+v", res)
	}

	f.dispatcher.entered = nil
	res, ok := <-f.eval.Go(context.Background(), SourceTimer)
	if !ok || !res.Triggered {
		t.Fatalf("expected evaluation once idle, got ok=%v %+v", ok, res)
	}
}
