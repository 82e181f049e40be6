package engine

import "testing"

func TestBundleRejectsSyntaxError(t *testing.T) {
	_, err := bundle(`export default async ()=>(`)
	if err == nil {
		t.Fatal("expected a bundle error")
	}
}

func TestBundleRejectsBareImport(t *testing.T) {
	_, err := bundle(`import {z} from 'zod'; export default async()=>({ok:true})`)
	if err == nil {
		t.Fatal("expected bare import to fail the bundle")
	}
}

func TestBundleUnwrapsDefaultExport(t *testing.T) {
	out, err := bundle(`export default async()=>({ok:true})`)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty bundled source")
	}
}
