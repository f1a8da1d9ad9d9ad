package leadership

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWithDefaults(t *testing.T) {
	cfg := withDefaults(ElectionConfig{})
	if cfg.ElectionKey != defaultElectionKey {
		t.Fatalf("ElectionKey = %q", cfg.ElectionKey)
	}
	if cfg.LeaseDuration != defaultLeaseDuration || cfg.RenewalInterval != defaultRenewalInterval || cfg.RetryInterval != defaultRetryInterval {
		t.Fatalf("unexpected intervals: %+v", cfg)
	}
	if cfg.InstanceID == "" {
		t.Fatal("expected generated instance ID")
	}

	custom := withDefaults(ElectionConfig{InstanceID: "node-a", LeaseDuration: time.Minute})
	if custom.InstanceID != "node-a" || custom.LeaseDuration != time.Minute {
		t.Fatalf("custom values overwritten: %+v", custom)
	}
}

func TestNewElectionFailsWithoutRedis(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisAddr = "127.0.0.1:1"
	if _, err := NewElection(cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestSetLeaderKeepsLatestState(t *testing.T) {
	e := &Election{instanceID: "node-a", leaderCh: make(chan bool, 1), logger: zerolog.Nop()}

	e.setLeader(true)
	e.setLeader(false)

	if e.IsLeader() {
		t.Fatal("expected follower state")
	}
	select {
	case v := <-e.LeaderCh():
		if v {
			t.Fatal("reader must see the latest state, got true")
		}
	default:
		t.Fatal("expected a pending leadership change")
	}
}
