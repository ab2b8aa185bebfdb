package vm

import (
	"fmt"
	"sync"

	"github.com/tensorlane/tensorlane/internal/tensor"
)

// Env is the run environment: named tensor objects instructions operate
// on. The driver materializes declared objects before scheduling; the
// executor adds kernel outputs as they are produced.
type Env struct {
	mu      sync.RWMutex
	objects map[string]*tensor.Tensor
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{objects: make(map[string]*tensor.Tensor)}
}

// Put registers a tensor under a name. Redefining a name is a planning
// bug and is rejected.
func (e *Env) Put(name string, t *tensor.Tensor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.objects[name]; dup {
		return fmt.Errorf("env: object %q already defined", name)
	}
	e.objects[name] = t
	return nil
}

// Get looks up a tensor by name.
func (e *Env) Get(name string) (*tensor.Tensor, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.objects[name]
	return t, ok
}

// Len returns the number of named objects.
func (e *Env) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.objects)
}
