// Package control provides the out-of-band signal surface: files
// dropped into the signals directory kill or retry running agents
// without going through the chat.
package control

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollInterval paces the stat fallback used when fsnotify is
// unavailable, and backstops missed events when it is.
const pollInterval = 2 * time.Second

// Signal is one parsed control file.
type Signal struct {
	// Kind is "kill" or "retry".
	Kind string
	// WorkerNumber is the 1-based plan position, 0 for the whole run.
	WorkerNumber int
}

// Handler acts on one signal. It runs on the watcher goroutine and
// should hand real work off quickly.
type Handler func(sig Signal)

// Watcher turns files in the signals directory into control actions.
// Recognized names: "kill" (whole run), "kill-<n>" (one worker), and
// "retry-<n>". Each file is removed once acted on.
type Watcher struct {
	dir     string
	handler Handler

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup

	mu   sync.Mutex
	seen map[string]bool
}

// NewWatcher creates a watcher over the signals directory, creating it
// if needed. fsnotify failures degrade to stat polling alone.
func NewWatcher(dir string, handler Handler) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:     dir,
		handler: handler,
		done:    make(chan struct{}),
		seen:    make(map[string]bool),
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := fsw.Add(dir); addErr == nil {
			w.watcher = fsw
		} else {
			fsw.Close()
			log.Printf("[control] fsnotify unavailable for %s, polling only: %v", dir, addErr)
		}
	} else {
		log.Printf("[control] fsnotify unavailable, polling only: %v", err)
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// run consumes fsnotify events and backstops them with polling.
func (w *Watcher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var events chan fsnotify.Event
	var errors chan error
	if w.watcher != nil {
		events = w.watcher.Events
		errors = w.watcher.Errors
	}

	// Pick up anything dropped before the watcher started.
	w.sweep()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.consume(filepath.Base(event.Name))
			}
		case err, ok := <-errors:
			if !ok {
				errors = nil
				continue
			}
			log.Printf("[control] watch error: %v", err)
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep consumes every signal file currently in the directory.
func (w *Watcher) sweep() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.consume(entry.Name())
		}
	}
}

// consume parses, dispatches, and removes one signal file. A name is
// handled at most once even when the watcher and the poller both see
// it.
func (w *Watcher) consume(name string) {
	sig, ok := ParseSignalName(name)
	if !ok {
		return
	}

	w.mu.Lock()
	if w.seen[name] {
		w.mu.Unlock()
		return
	}
	w.seen[name] = true
	w.mu.Unlock()

	path := filepath.Join(w.dir, name)
	if _, err := os.Stat(path); err != nil {
		// Already gone; allow the name to fire again later.
		w.forget(name)
		return
	}

	log.Printf("[control] signal %s: kind=%s worker=%d", name, sig.Kind, sig.WorkerNumber)
	if w.handler != nil {
		w.handler(sig)
	}
	os.Remove(path)
	w.forget(name)
}

func (w *Watcher) forget(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.seen, name)
}

// Close stops the watcher.
func (w *Watcher) Close() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.wg.Wait()
}

// ParseSignalName maps a file name to a signal. Unrecognized names,
// including a bare "retry", are ignored.
func ParseSignalName(name string) (Signal, bool) {
	if name == "kill" {
		return Signal{Kind: "kill"}, true
	}
	for _, kind := range []string{"kill", "retry"} {
		prefix := kind + "-"
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
		if err != nil || n < 1 {
			return Signal{}, false
		}
		return Signal{Kind: kind, WorkerNumber: n}, true
	}
	return Signal{}, false
}

// WriteSignal drops a signal file for another process's watcher.
func WriteSignal(dir, name string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), []byte(time.Now().Format(time.RFC3339)), 0644)
}
