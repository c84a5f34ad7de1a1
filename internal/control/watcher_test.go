package control

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestParseSignalName(t *testing.T) {
	tests := []struct {
		name string
		want Signal
		ok   bool
	}{
		{"kill", Signal{Kind: "kill"}, true},
		{"kill-3", Signal{Kind: "kill", WorkerNumber: 3}, true},
		{"retry-1", Signal{Kind: "retry", WorkerNumber: 1}, true},
		{"retry", Signal{}, false},
		{"kill-0", Signal{}, false},
		{"kill-x", Signal{}, false},
		{"pause", Signal{}, false},
		{"", Signal{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSignalName(tt.name)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseSignalName(%q) = %+v, %v; want %+v, %v", tt.name, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestWatcher_DeliversAndRemoves(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var got []Signal
	w, err := NewWatcher(dir, func(sig Signal) {
		mu.Lock()
		got = append(got, sig)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := WriteSignal(dir, "retry-2"); err != nil {
		t.Fatalf("WriteSignal: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("signal never delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	sig := got[0]
	mu.Unlock()
	if sig.Kind != "retry" || sig.WorkerNumber != 2 {
		t.Errorf("signal = %+v", sig)
	}

	// The file must be consumed.
	path := filepath.Join(dir, "retry-2")
	deadline = time.After(5 * time.Second)
	for {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return
		}
		select {
		case <-deadline:
			t.Fatal("signal file not removed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWatcher_PicksUpPreexistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := WriteSignal(dir, "kill"); err != nil {
		t.Fatalf("WriteSignal: %v", err)
	}

	delivered := make(chan Signal, 1)
	w, err := NewWatcher(dir, func(sig Signal) {
		select {
		case delivered <- sig:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	select {
	case sig := <-delivered:
		if sig.Kind != "kill" || sig.WorkerNumber != 0 {
			t.Errorf("signal = %+v", sig)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pre-existing signal not delivered")
	}
}

func TestWatcher_IgnoresUnknownNames(t *testing.T) {
	dir := t.TempDir()

	delivered := make(chan Signal, 1)
	w, err := NewWatcher(dir, func(sig Signal) { delivered <- sig })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := WriteSignal(dir, "pause"); err != nil {
		t.Fatal(err)
	}

	select {
	case sig := <-delivered:
		t.Errorf("unexpected delivery: %+v", sig)
	case <-time.After(300 * time.Millisecond):
	}

	// Unrecognized files are left alone.
	if _, err := os.Stat(filepath.Join(dir, "pause")); err != nil {
		t.Errorf("unknown file removed: %v", err)
	}
}
