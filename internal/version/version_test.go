package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestCurrent(t *testing.T) {
	info := Current()
	if info.Version != Version {
		t.Fatalf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Fatalf("GoVersion = %q", info.GoVersion)
	}
	if !strings.HasPrefix(info.String(), Version+" (") {
		t.Fatalf("String() = %q", info.String())
	}
}
