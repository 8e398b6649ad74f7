package id

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerateIsUnique(t *testing.T) {
	gen := NewGenerator()

	if gen.GenerateString() == gen.GenerateString() {
		t.Error("generated IDs should be unique")
	}
	if got := len(gen.GenerateString()); got != 26 {
		t.Errorf("ULID should be 26 characters, got %d", got)
	}
}

func TestTypedIDs(t *testing.T) {
	tests := []struct {
		prefix string
		id     string
	}{
		{PeerPrefix, NewPeerID().String()},
		{RequestPrefix, NewRequestID().String()},
		{SpanPrefix, NewSpanID().String()},
	}

	for _, tt := range tests {
		prefix, _, err := Split(tt.id)
		if err != nil {
			t.Fatalf("split %s: %v", tt.id, err)
		}
		if prefix != tt.prefix {
			t.Errorf("expected prefix %q, got %q in %s", tt.prefix, prefix, tt.id)
		}
	}
}

func TestSplitRejectsBareAndInvalid(t *testing.T) {
	for _, s := range []string{"", "invalid", "peer_zzzz"} {
		if _, _, err := Split(s); err == nil {
			t.Errorf("expected error splitting %q", s)
		}
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid(NewGenerator().GenerateString()) {
		t.Error("generated ULID should be valid")
	}
	for _, s := range []string{"", "invalid", "1234567890", "zzzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		if IsValid(s) {
			t.Errorf("ID should be invalid: %s", s)
		}
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().UnixMilli()
	peer := NewPeerID()
	after := time.Now().UnixMilli()

	ts, err := Timestamp(peer.String())
	if err != nil {
		t.Fatalf("failed to extract timestamp: %v", err)
	}
	if ms := ts.UnixMilli(); ms < before || ms > after {
		t.Errorf("timestamp should be between %d and %d ms, got %d ms", before, after, ms)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const perGoroutine = 100

	var wg sync.WaitGroup
	ids := make(chan string, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				ids <- gen.GenerateWithPrefix(PeerPrefix)
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID in concurrent generation: %s", id)
		}
		if !strings.HasPrefix(id, "peer_") {
			t.Errorf("missing prefix: %s", id)
		}
		seen[id] = true
	}
	if len(seen) != goroutines*perGoroutine {
		t.Errorf("expected %d unique IDs, got %d", goroutines*perGoroutine, len(seen))
	}
}

func TestIDsSortByCreation(t *testing.T) {
	gen := NewGenerator()
	ids := make([]string, 64)
	for i := range ids {
		ids[i] = gen.GenerateString()
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Errorf("IDs should sort by creation: %s should be > %s", ids[i], ids[i-1])
		}
	}
}
