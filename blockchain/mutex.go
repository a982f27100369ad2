package blockchain

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/getsentry/sentry-go"
)

func newMutex() *mutex {
	return &mutex{
		counter: map[string]int{},
		dMutex:  map[string]*sync.RWMutex{},
	}
}

// mutex contains locking logic for package working directories.
//
// The CLI keeps its state (config, build output) inside the working directory, and the
// pipeline rewrites the manifest and the module file there, so every operation on a
// directory has to be serialized. The map keeps one lock per directory and a count of
// holders, and drops the entry once the last holder released it.
type mutex struct {
	mx      sync.Mutex               // guards the maps below
	dMutex  map[string]*sync.RWMutex // per directory mutexes
	counter map[string]int           // per directory holder count
}

func lockKey(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}

// load retrieves the lock for the directory and increases the usage counter.
func (m *mutex) load(dir string) *sync.RWMutex {
	key := lockKey(dir)

	m.mx.Lock()
	defer m.mx.Unlock()

	if _, ok := m.dMutex[key]; !ok {
		m.dMutex[key] = &sync.RWMutex{}
	}

	m.counter[key] += 1

	return m.dMutex[key]
}

// remove returns the lock for the directory and decreases the usage counter, deleting the map entry at 0.
func (m *mutex) remove(dir string) *sync.RWMutex {
	key := lockKey(dir)

	m.mx.Lock()
	defer m.mx.Unlock()

	mut, ok := m.dMutex[key]
	if !ok {
		sentry.CaptureMessage(fmt.Sprintf("trying to remove a mutex that doesn't exist, directory: %s", key))
		return &sync.RWMutex{}
	}

	if m.counter[key] == 1 {
		delete(m.counter, key)
		delete(m.dMutex, key)
	} else {
		m.counter[key] -= 1
	}

	return mut
}
