package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Config controls resource limits applied to every Isolate this package
// constructs.
type Config struct {
	// MemoryLimitBytes caps the QuickJS heap for a single Isolate. Zero
	// means no limit is set.
	MemoryLimitBytes uintptr
	// Logger receives console output and lifecycle events. A nil Logger
	// falls back to slog.Default().
	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Isolate is a single-threaded JS execution context bound to one
// deployment's compiled module. Its retained default export can be
// invoked any number of times; mutable module state persists across
// those invocations until the Isolate is discarded.
type Isolate struct {
	deploymentID string
	rt           *runtime
	mu           sync.Mutex
	unusable     atomic.Bool
}

// DeploymentID is the identity this Isolate was built from.
func (iso *Isolate) DeploymentID() string { return iso.deploymentID }

// Unusable reports whether this Isolate was interrupted mid-invocation
// and must never be entered again.
func (iso *Isolate) Unusable() bool { return iso.unusable.Load() }

// newIsolate builds a fresh Isolate from (deploymentID, source), running
// the construction pipeline spec'd for the engine: bundle, instantiate,
// evaluate top-level to completion, and retain the default export.
func newIsolate(deploymentID, source string, cfg Config) (*Isolate, error) {
	wrapped, err := bundle(source)
	if err != nil {
		return nil, &CompileError{DeploymentID: deploymentID, Err: err}
	}

	rt, err := newRuntime(cfg.MemoryLimitBytes)
	if err != nil {
		return nil, &CompileError{DeploymentID: deploymentID, Err: err}
	}

	if err := setupConsole(rt, cfg.logger(), deploymentID); err != nil {
		rt.Close()
		return nil, &CompileError{DeploymentID: deploymentID, Err: err}
	}

	if err := rt.Eval(wrapped); err != nil {
		rt.Close()
		return nil, &CompileError{DeploymentID: deploymentID, Err: err}
	}

	rt.RunMicrotasks()

	isFn, err := rt.EvalBool(fmt.Sprintf("typeof globalThis.%s === 'function'", entrypointGlobal))
	if err != nil {
		rt.Close()
		return nil, &CompileError{DeploymentID: deploymentID, Err: err}
	}
	if !isFn {
		rt.Close()
		return nil, &ContractError{DeploymentID: deploymentID, Reason: "module has no callable default export"}
	}

	return &Isolate{deploymentID: deploymentID, rt: rt}, nil
}

// Close releases the underlying execution context. Must only be called
// once, and never while an invocation is in flight.
func (iso *Isolate) Close() {
	iso.rt.Close()
}

// Invoke parses payload as the sole argument to the retained default
// export, drives the returned value to settlement if it is a promise,
// and serializes the fulfillment value back to JSON. A nil payload
// arrives to user code as undefined.
func (iso *Isolate) Invoke(payload json.RawMessage) (json.RawMessage, error) {
	iso.mu.Lock()
	defer iso.mu.Unlock()

	if iso.unusable.Load() {
		return nil, &RuntimeError{DeploymentID: iso.deploymentID, Message: "isolate was interrupted and is no longer usable"}
	}

	argJS := "undefined"
	if len(payload) > 0 && string(payload) != "null" {
		argJS = fmt.Sprintf("JSON.parse(%q)", string(payload))
	}

	callScript := fmt.Sprintf(`
		(function() {
			return globalThis.%s(%s);
		})()
	`, entrypointGlobal, argJS)

	if err := iso.rt.Eval(fmt.Sprintf("globalThis.__invoke_result = %s;", callScript)); err != nil {
		return nil, &RuntimeError{DeploymentID: iso.deploymentID, Message: err.Error()}
	}

	iso.rt.RunMicrotasks()

	if err := iso.awaitResult(); err != nil {
		return nil, err
	}

	resultJSON, err := iso.rt.EvalString(`
		(function() {
			var r = globalThis.__invoke_result;
			delete globalThis.__invoke_result;
			if (r === undefined) return "null";
			return JSON.stringify(r);
		})()
	`)
	if err != nil {
		return nil, &SerializationError{DeploymentID: iso.deploymentID, Err: err}
	}
	if resultJSON == "undefined" || resultJSON == "" {
		return nil, &SerializationError{DeploymentID: iso.deploymentID, Err: fmt.Errorf("default export returned a non-JSON-representable value")}
	}

	return json.RawMessage(resultJSON), nil
}

// awaitResult drives globalThis.__invoke_result to settlement if it is a
// promise, pumping the microtask queue exhaustively so chained thens and
// Promise.all resolve — not just a single step.
func (iso *Isolate) awaitResult() error {
	isPromise, err := iso.rt.EvalBool("globalThis.__invoke_result instanceof Promise")
	if err != nil {
		return &RuntimeError{DeploymentID: iso.deploymentID, Message: err.Error()}
	}
	if !isPromise {
		return nil
	}

	setupJS := `
		delete globalThis.__awaited_state;
		Promise.resolve(globalThis.__invoke_result).then(
			function(r) { globalThis.__invoke_result = r; globalThis.__awaited_state = 'fulfilled'; },
			function(e) { globalThis.__invoke_result = e; globalThis.__awaited_state = 'rejected'; }
		);
	`
	if err := iso.rt.Eval(setupJS); err != nil {
		return &RuntimeError{DeploymentID: iso.deploymentID, Message: err.Error()}
	}

	const maxPumpRounds = 8
	for round := 0; ; round++ {
		iso.rt.RunMicrotasks()

		state, err := iso.rt.EvalString("String(globalThis.__awaited_state)")
		if err != nil {
			return &RuntimeError{DeploymentID: iso.deploymentID, Message: err.Error()}
		}
		if state != "undefined" {
			if state == "rejected" {
				msg, _ := iso.rt.EvalString("String(globalThis.__invoke_result)")
				_ = iso.rt.Eval("delete globalThis.__invoke_result; delete globalThis.__awaited_state;")
				return &RuntimeError{DeploymentID: iso.deploymentID, Message: msg}
			}
			_ = iso.rt.Eval("delete globalThis.__awaited_state;")
			return nil
		}

		// QuickJS has no I/O pending on this platform's sandbox, so a
		// promise that never settles is a programming error in user
		// code, not something to wait on indefinitely. A handful of
		// pump rounds with no progress means it's stuck.
		if round+1 >= maxPumpRounds {
			_ = iso.rt.Eval("delete globalThis.__invoke_result;")
			return &RuntimeError{DeploymentID: iso.deploymentID, Message: "returned promise never settled"}
		}
	}
}

// InvokeContext wraps Invoke with cancellation: once done is closed, the
// underlying VM is interrupted and the Isolate is marked unusable so the
// cache never hands it out again. Callers that do not need cancellation
// can call Invoke directly.
func (iso *Isolate) InvokeContext(done <-chan struct{}, payload json.RawMessage) (json.RawMessage, error) {
	type outcome struct {
		result json.RawMessage
		err    error
	}
	resCh := make(chan outcome, 1)

	go func() {
		result, err := iso.Invoke(payload)
		resCh <- outcome{result, err}
	}()

	select {
	case o := <-resCh:
		return o.result, o.err
	case <-done:
		iso.unusable.Store(true)
		iso.rt.Interrupt()
		<-resCh // Invoke holds iso.mu until it observes the interrupt; wait it out.
		return nil, &TimeoutError{DeploymentID: iso.deploymentID}
	}
}
