package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/slotbell/internal/models"
)

func samplePayload() Payload {
	return Payload{Tasks: []Task{NewTask("R101", "1RV21CS001", "1RV21CS003")}}
}

func TestNewTaskExpandsRange(t *testing.T) {
	task := NewTask("R101", "1RV21CS001", "1RV21CS003")
	want := []string{"1RV21CS001", "1RV21CS002", "1RV21CS003"}
	if task.Address != "R101" || strings.Join(task.USNs, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected task: %+v", task)
	}

	empty := NewTask("R102", "1RV21CS009", "1RV21CS001")
	if empty.USNs == nil || len(empty.USNs) != 0 {
		t.Fatalf("reversed range should give empty list, got %#v", empty.USNs)
	}

	body, _ := json.Marshal(Payload{Tasks: []Task{empty}})
	if string(body) != `{"tasks":[{"address":"R102","usns":[]}]}` {
		t.Fatalf("unexpected JSON: %s", body)
	}
}

func TestEndpointURL(t *testing.T) {
	tests := map[string]string{
		"192.168.1.50":          "http://192.168.1.50/start",
		"router.local:8080/":    "http://router.local:8080/start",
		"https://router.school": "https://router.school/start",
		" 10.0.0.1 ":            "http://10.0.0.1/start",
	}
	for in, want := range tests {
		if got := EndpointURL(in); got != want {
			t.Errorf("EndpointURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDispatchOnline(t *testing.T) {
	var gotBody []byte
	var gotPath, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"queued":1}`))
	}))
	defer srv.Close()

	d := New(time.Second, zerolog.Nop())
	out := d.Dispatch(context.Background(), srv.URL, samplePayload())

	if !out.Online() || out.StatusCode != http.StatusAccepted || out.Body != `{"queued":1}` {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if gotPath != "/start" || gotType != "application/json" {
		t.Fatalf("unexpected request path=%q content-type=%q", gotPath, gotType)
	}

	var p Payload
	if err := json.Unmarshal(gotBody, &p); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(p.Tasks) != 1 || p.Tasks[0].Address != "R101" || len(p.Tasks[0].USNs) != 3 {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDispatchErrorStatusStillOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	out := New(time.Second, zerolog.Nop()).Dispatch(context.Background(), srv.URL, samplePayload())
	if !out.Online() || out.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected online with 503, got %+v", out)
	}
}

func TestDispatchUnreachableLogsPayload(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	var logs bytes.Buffer
	out := New(time.Second, zerolog.New(&logs)).Dispatch(context.Background(), addr, samplePayload())

	if out.Online() || out.Err == nil {
		t.Fatalf("expected offline outcome, got %+v", out)
	}
	if !strings.Contains(logs.String(), `"payload":{"tasks":[{"address":"R101"`) {
		t.Fatalf("offline log must carry the payload, got %s", logs.String())
	}
}

func TestDispatchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	out := New(50*time.Millisecond, zerolog.Nop()).Dispatch(context.Background(), srv.URL, samplePayload())
	if out.Online() {
		t.Fatalf("expected timeout to be offline, got %+v", out)
	}
}

func TestRecorderPersistsAttempts(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:recorder?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.DispatchLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	r := NewRecorder(db)
	ctx := context.Background()
	err = r.Record(ctx, Attempt{
		EvaluationID: "eval-1",
		Occurrence:   "211026:1",
		DayTime:      "3:1",
		Endpoint:     "192.168.1.50",
		Payload:      samplePayload(),
		Outcome:      Outcome{Status: StatusOffline, Err: context.DeadlineExceeded},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	logs, err := r.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected one log, got %d", len(logs))
	}
	got := logs[0]
	if got.Status != models.DispatchOffline || got.TaskCount != 1 || got.Endpoint != "http://192.168.1.50/start" {
		t.Fatalf("unexpected log: %+v", got)
	}
	if got.Occurrence != "211026:1" || !strings.Contains(got.Payload, "1RV21CS003") || got.Error == "" {
		t.Fatalf("unexpected log: %+v", got)
	}
}
