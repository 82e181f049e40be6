package engine

import (
	"fmt"
	"sync"
)

// hostState is the Engine host's lifecycle, mirroring spec's
// uninitialized → initialized → shutdown progression.
type hostState int32

const (
	hostUninitialized hostState = iota
	hostInitialized
	hostShutdown
)

// Host is the process-wide JS engine singleton. modernc.org/quickjs
// needs no explicit platform registration the way a V8 embedding would,
// but the lifecycle contract — init exactly once before any Isolate,
// shutdown exactly once at exit — is kept as an explicit type:
// Cache.GetOrBuild and CompileAndInvokeSource refuse to build an Isolate
// unless Init has run and Shutdown has not. ValidateSource takes no Host
// and builds its throwaway Isolate without this check.
type Host struct {
	mu    sync.Mutex
	state hostState
}

// NewHost returns an uninitialized Host. Call Init before building any
// Isolate through it.
func NewHost() *Host {
	return &Host{}
}

// Init performs one-time setup. It is idempotent: a second call while
// already initialized is a no-op success. Init after Shutdown is
// rejected, matching the spec's "re-initialization is undefined" note.
func (h *Host) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case hostInitialized:
		return nil
	case hostShutdown:
		return fmt.Errorf("engine host: cannot re-initialize after shutdown")
	}

	h.state = hostInitialized
	return nil
}

// Shutdown tears the host down. Safe to call more than once, and safe
// to skip on abnormal termination — there is no process-wide resource
// here that outlives the OS process itself.
func (h *Host) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = hostShutdown
}

// requireInitialized fails fast if called before Init, preventing the
// illegal "Isolate created before init()" sequence.
func (h *Host) requireInitialized() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != hostInitialized {
		return fmt.Errorf("engine host: not initialized")
	}
	return nil
}
