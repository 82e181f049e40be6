package engine

import (
	"fmt"
	"reflect"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"
)

// runtime wraps a single QuickJS VM with the handful of primitives the
// rest of this package needs: evaluating strings, registering Go
// functions as globals, and pumping the microtask queue so that
// Promise callbacks actually run.
type runtime struct {
	vm *quickjs.VM
}

func newRuntime(memoryLimitBytes uintptr) (*runtime, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating quickjs vm: %w", err)
	}
	if memoryLimitBytes > 0 {
		vm.SetMemoryLimit(memoryLimitBytes)
	}
	return &runtime{vm: vm}, nil
}

// Eval evaluates JavaScript and discards the result.
func (r *runtime) Eval(js string) error {
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *runtime) EvalString(js string) (string, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

// EvalBool evaluates JavaScript and returns the result as a Go bool.
func (r *runtime) EvalBool(js string) (bool, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", result)
	}
	return b, nil
}

// RegisterFunc registers a Go function as a global JavaScript function.
// Multi-value Go returns (T, error) come back from the QuickJS wrapper
// as a two-element JS array, so the raw binding is wrapped in a small
// JS shim that unpacks it and throws on the error slot.
func (r *runtime) RegisterFunc(name string, fn any) error {
	rawName := "__raw_" + name
	if err := r.vm.RegisterFunc(rawName, fn, false); err != nil {
		return err
	}
	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function() {
			var r = raw.apply(this, arguments);
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new TypeError("calling %s: " + r[1]);
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, name, rawName)
	return r.Eval(wrapJS)
}

// SetGlobal sets a global property on the VM's global object.
func (r *runtime) SetGlobal(name string, value any) error {
	atom, err := r.vm.NewAtom(name)
	if err != nil {
		return fmt.Errorf("creating atom %q: %w", name, err)
	}
	glob := r.vm.GlobalObject()
	defer glob.Free()
	return glob.SetProperty(atom, value)
}

// RunMicrotasks pumps the QuickJS microtask queue until it is empty.
// The modernc.org/quickjs wrapper never calls JS_ExecutePendingJob
// itself, so without this Promise .then() callbacks never fire.
func (r *runtime) RunMicrotasks() {
	rt, tls, ok := extractRuntime(r.vm)
	if !ok {
		return
	}
	for {
		ret := lib.XJS_ExecutePendingJob(tls, rt, 0)
		if ret <= 0 {
			break
		}
	}
}

// Interrupt asks the VM to abort its current evaluation at the next
// opportunity. Any Isolate whose runtime was interrupted must be
// discarded rather than reused — QuickJS does not guarantee a clean
// state afterwards.
func (r *runtime) Interrupt() {
	r.vm.Interrupt()
}

func (r *runtime) Close() {
	r.vm.Close()
}

// extractRuntime uses unsafe reflection to pull the unexported cRuntime
// and tls fields out of a *quickjs.VM so microtasks can be pumped
// directly through the libquickjs C API. modernc.org/quickjs does not
// expose this itself.
func extractRuntime(vm *quickjs.VM) (cRuntime uintptr, tls *libc.TLS, ok bool) {
	vmVal := reflect.ValueOf(vm).Elem()

	rtField := vmVal.FieldByName("runtime")
	if !rtField.IsValid() || rtField.IsNil() {
		return 0, nil, false
	}

	rtPtr := unsafe.Pointer(rtField.Pointer())
	rtVal := reflect.NewAt(rtField.Type().Elem(), rtPtr).Elem()

	cRuntimeField := rtVal.FieldByName("cRuntime")
	if !cRuntimeField.IsValid() {
		return 0, nil, false
	}
	cRuntime = uintptr(cRuntimeField.Uint())

	tlsField := rtVal.FieldByName("tls")
	if !tlsField.IsValid() || tlsField.IsNil() {
		return 0, nil, false
	}
	tls = (*libc.TLS)(unsafe.Pointer(tlsField.Pointer()))

	return cRuntime, tls, true
}
