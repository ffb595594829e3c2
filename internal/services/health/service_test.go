package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus(t *testing.T) {
	svc := NewService()
	if r := svc.Status(context.Background()); !r.OK || r.Checks != nil {
		t.Fatalf("empty service should be ok, got %+v", r)
	}

	svc.Register("database", func(ctx context.Context) error { return nil })
	svc.Register("jobs_db", func(ctx context.Context) error { return errors.New("file missing") })
	svc.Register("ignored", nil)

	r := svc.Status(context.Background())
	if r.OK {
		t.Fatalf("expected not ok")
	}
	if r.Checks["database"] != "ok" || r.Checks["jobs_db"] != "file missing" {
		t.Fatalf("unexpected checks %+v", r.Checks)
	}
	if _, ok := r.Checks["ignored"]; ok {
		t.Fatalf("nil check should not be registered")
	}
}
