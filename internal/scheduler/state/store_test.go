package state

import (
	"testing"
	"time"
)

func TestStoreKeepsNewestWithinLimit(t *testing.T) {
	s := NewStore(2)
	if _, ok := s.Last(); ok {
		t.Fatal("empty store reported a last record")
	}

	s.Add(Record{EvaluationID: "a"})
	s.Add(Record{EvaluationID: "b"})
	s.Add(Record{EvaluationID: "c"})

	recent := s.Recent()
	if len(recent) != 2 || recent[0].EvaluationID != "c" || recent[1].EvaluationID != "b" {
		t.Fatalf("unexpected records: %+v", recent)
	}
	if last, _ := s.Last(); last.EvaluationID != "c" {
		t.Fatalf("Last = %+v", last)
	}
}

func TestStorePrune(t *testing.T) {
	s := NewStore(10)
	now := time.Now()
	s.Add(Record{EvaluationID: "old", At: now.Add(-2 * time.Hour)})
	s.Add(Record{EvaluationID: "new", At: now})

	s.Prune(now.Add(-time.Hour))

	recent := s.Recent()
	if len(recent) != 1 || recent[0].EvaluationID != "new" {
		t.Fatalf("unexpected records after prune: %+v", recent)
	}
}
