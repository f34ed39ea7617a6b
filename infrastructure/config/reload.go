package config

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"shadowrelay/application/logging"
	"shadowrelay/infrastructure/settings"
)

// Mutable holds the subset of Settings that Watcher is allowed to change
// at runtime: the idle timeout and the ACL rule file path. Everything
// else — listen addresses, the password, and the cipher method — defines
// the running session's crypto state and is fixed for the process
// lifetime, matching the "K/method never change after startup" decision
// recorded in DESIGN.md.
type Mutable struct {
	IdleTimeout atomic.Int64 // nanoseconds; 0 means "use default"
	aclPath     atomic.Pointer[string]
}

func NewMutable(initial settings.Settings) *Mutable {
	m := &Mutable{}
	m.IdleTimeout.Store(int64(initial.IdleTimeout))
	path := initial.ACLPath
	m.aclPath.Store(&path)
	return m
}

func (m *Mutable) Timeout() time.Duration {
	if v := m.IdleTimeout.Load(); v > 0 {
		return time.Duration(v)
	}
	return settings.DefaultIdleTimeout
}

func (m *Mutable) ACLPath() string {
	if p := m.aclPath.Load(); p != nil {
		return *p
	}
	return ""
}

// Watcher reloads Mutable from a JSON config file whenever fsnotify reports
// a write, the same "watch the config path, re-read on change" idiom the
// teacher's settings layer documents for its own route-table reload (see
// infrastructure/settings/host.go's value-type round trip) but here backed
// by a real filesystem watch rather than an in-process call, since this
// server has no client-side command channel to trigger a reload from.
type Watcher struct {
	path string
	log  logging.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

func NewWatcher(path string, log logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{path: path, log: log, watcher: fsw}, nil
}

// Run blocks, applying every write/create event on the config file to dst
// until stop is closed. Parse errors are logged and skipped: a bad edit to
// the config file must not crash a relay that is actively serving
// connections.
func (w *Watcher) Run(dst *Mutable, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			w.watcher.Close()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload(dst)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Errorf("config watcher: %v", err)
		}
	}
}

func (w *Watcher) reload(dst *Mutable) {
	w.mu.Lock()
	defer w.mu.Unlock()

	reloaded, err := LoadFile(w.path)
	if err != nil {
		w.log.Errorf("config reload %q: %v", w.path, err)
		return
	}
	dst.IdleTimeout.Store(int64(reloaded.IdleTimeout))
	path := reloaded.ACLPath
	dst.aclPath.Store(&path)
	w.log.Printf("config reloaded from %s: idle_timeout=%s acl=%s", w.path, reloaded.IdleTimeout, reloaded.ACLPath)
}
