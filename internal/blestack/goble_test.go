package blestack

import (
	"testing"
	"time"
)

func TestMatchesFiltersEmptyAlwaysMatches(t *testing.T) {
	if !matchesFilters("Anything", nil) {
		t.Fatal("no filters should match everything")
	}
}

func TestMatchesFiltersPrefix(t *testing.T) {
	filters := []Filter{{NamePrefixes: []string{"Walking", "KS"}}}
	if !matchesFilters("WalkingPad A1", filters) {
		t.Fatal("expected prefix match")
	}
	if !matchesFilters("KS-X7", filters) {
		t.Fatal("expected second prefix to match")
	}
	if matchesFilters("Other Device", filters) {
		t.Fatal("unrelated name should not match")
	}
}

func TestConnectTimeoutDefault(t *testing.T) {
	if got := connectTimeout(ConnectOptions{}); got != defaultConnectTimeout {
		t.Fatalf("default connect timeout = %v, want %v", got, defaultConnectTimeout)
	}
	custom := 5 * time.Second
	if got := connectTimeout(ConnectOptions{ConnectTimeout: custom}); got != custom {
		t.Fatalf("override connect timeout = %v, want %v", got, custom)
	}
}
