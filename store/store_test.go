package store

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetFunction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	fn, err := s.CreateFunction(ctx, "hello")
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
	if fn.Name != "hello" {
		t.Fatalf("expected name hello, got %s", fn.Name)
	}
	if fn.LiveDeploymentID != nil {
		t.Fatal("expected no live deployment before first deploy")
	}

	got, err := s.GetFunction(ctx, fn.ID)
	if err != nil {
		t.Fatalf("GetFunction: %v", err)
	}
	if got.ID != fn.ID {
		t.Fatalf("expected id %s, got %s", fn.ID, got.ID)
	}
}

func TestCreateFunctionGeneratesNameWhenAbsent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	fn, err := s.CreateFunction(ctx, "")
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
	if fn.Name == "" {
		t.Fatal("expected a generated name")
	}
}

func TestGetFunctionNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.GetFunction(ctx, "fn-doesnotexist"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFunctions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.CreateFunction(ctx, "a"); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if _, err := s.CreateFunction(ctx, "b"); err != nil {
		t.Fatalf("create b: %v", err)
	}

	fns, err := s.ListFunctions(ctx)
	if err != nil {
		t.Fatalf("ListFunctions: %v", err)
	}
	if len(fns) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fns))
	}
}

func TestDeploymentLifecycleAndLiveDeployment(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	fn, err := s.CreateFunction(ctx, "hello")
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}

	if _, err := s.LiveDeployment(ctx, fn.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before first deploy, got %v", err)
	}

	dep1, err := s.CreateDeployment(ctx, fn.ID, `export default async()=>({result:'hello'})`)
	if err != nil {
		t.Fatalf("CreateDeployment: %v", err)
	}
	if err := s.SetLiveDeployment(ctx, fn.ID, dep1.ID); err != nil {
		t.Fatalf("SetLiveDeployment: %v", err)
	}

	live, err := s.LiveDeployment(ctx, fn.ID)
	if err != nil {
		t.Fatalf("LiveDeployment: %v", err)
	}
	if live.ID != dep1.ID {
		t.Fatalf("expected live deployment %s, got %s", dep1.ID, live.ID)
	}

	dep2, err := s.CreateDeployment(ctx, fn.ID, `export default async()=>({result:'world'})`)
	if err != nil {
		t.Fatalf("CreateDeployment (redeploy): %v", err)
	}
	if err := s.SetLiveDeployment(ctx, fn.ID, dep2.ID); err != nil {
		t.Fatalf("SetLiveDeployment (redeploy): %v", err)
	}

	got, err := s.GetFunction(ctx, fn.ID)
	if err != nil {
		t.Fatalf("GetFunction after redeploy: %v", err)
	}
	if got.LiveDeploymentID == nil || *got.LiveDeploymentID != dep2.ID {
		t.Fatalf("expected live_deployment_id %s, got %v", dep2.ID, got.LiveDeploymentID)
	}
}

func TestCreateDeploymentUnknownFunction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.CreateDeployment(ctx, "fn-doesnotexist", "export default async()=>1;"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
