package engine

import (
	"encoding/json"
	"strings"
	"testing"
)

func mustPayload(t *testing.T, v string) json.RawMessage {
	t.Helper()
	if v == "" {
		return nil
	}
	return json.RawMessage(v)
}

func TestIsolateRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		source  string
		payload string
		want    string
	}{
		{
			name:   "literal object",
			source: `export default async ()=>({result:'hello'})`,
			want:   `{"result":"hello"}`,
		},
		{
			name:    "payload passthrough",
			source:  `export default async p=>({result:'hello '+p.name})`,
			payload: `{"name":"world"}`,
			want:    `{"result":"hello world"}`,
		},
		{
			name:    "undefined payload",
			source:  `export default async p=>({isUndefined: p === undefined})`,
			payload: "",
			want:    `{"isUndefined":true}`,
		},
		{
			name:   "promise.all over chained thens",
			source: `async function hi(n){return 'Hello, '+n+'!'} export default async()=>({results:await Promise.all([hi('Alice'),hi('Bob'),hi('Charlie'),hi('Dave')])})`,
			want:   `{"results":["Hello, Alice!","Hello, Bob!","Hello, Charlie!","Hello, Dave!"]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			iso, err := newIsolate("dp-test", tc.source, Config{})
			if err != nil {
				t.Fatalf("newIsolate: %v", err)
			}
			defer iso.Close()

			got, err := iso.Invoke(mustPayload(t, tc.payload))
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestIsolateWarmStatePersistence(t *testing.T) {
	source := `let count=0; export default async()=>({result:'hello'+count++})`
	iso, err := newIsolate("dp-count", source, Config{})
	if err != nil {
		t.Fatalf("newIsolate: %v", err)
	}
	defer iso.Close()

	want := []string{`{"result":"hello0"}`, `{"result":"hello1"}`, `{"result":"hello2"}`}
	for i, w := range want {
		got, err := iso.Invoke(nil)
		if err != nil {
			t.Fatalf("invocation %d: %v", i, err)
		}
		if string(got) != w {
			t.Fatalf("invocation %d: got %s, want %s", i, got, w)
		}
	}
}

func TestIsolateThrowSurfacesRuntimeError(t *testing.T) {
	iso, err := newIsolate("dp-throw", `export default async()=>{throw new Error('error')}`, Config{})
	if err != nil {
		t.Fatalf("newIsolate: %v", err)
	}
	defer iso.Close()

	_, err = iso.Invoke(nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*RuntimeError); !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if !strings.Contains(err.Error(), "error") {
		t.Fatalf("expected message to contain 'error', got %q", err.Error())
	}
}

func TestIsolateRejectedPromiseSurfacesRuntimeError(t *testing.T) {
	iso, err := newIsolate("dp-reject", `export default async()=>{return Promise.reject(new Error('nope'))}`, Config{})
	if err != nil {
		t.Fatalf("newIsolate: %v", err)
	}
	defer iso.Close()

	_, err = iso.Invoke(nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*RuntimeError); !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
}

func TestIsolateMissingDefaultExportIsContractError(t *testing.T) {
	_, err := newIsolate("dp-nodefault", `export const notDefault = 1;`, Config{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*ContractError); !ok {
		t.Fatalf("expected *ContractError, got %T (%v)", err, err)
	}
}

func TestIsolateNonCallableDefaultExportIsContractError(t *testing.T) {
	_, err := newIsolate("dp-notfn", `export default 42;`, Config{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*ContractError); !ok {
		t.Fatalf("expected *ContractError, got %T (%v)", err, err)
	}
}

func TestIsolateSyntaxErrorIsCompileError(t *testing.T) {
	_, err := newIsolate("dp-syntax", `export default async ()=>(`, Config{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*CompileError); !ok {
		t.Fatalf("expected *CompileError, got %T (%v)", err, err)
	}
}

func TestIsolateBareImportIsCompileError(t *testing.T) {
	_, err := newIsolate("dp-import", `import { z } from 'zod'; export default async()=>({ok:true})`, Config{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*CompileError); !ok {
		t.Fatalf("expected *CompileError, got %T (%v)", err, err)
	}
}
