package services_test

import (
	"context"
	"testing"

	"ttm/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithProjectID(ctx, "p-1")
	ctx = services.WithOrigin(ctx, "api")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ProjectIDFromContext(ctx); !ok || id != "p-1" {
		t.Fatalf("unexpected project id: %v %v", id, ok)
	}
	if origin, ok := services.OriginFromContext(ctx); !ok || origin != "api" {
		t.Fatalf("unexpected origin: %v %v", origin, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithProjectID(ctx, "")
	ctx = services.WithOrigin(ctx, "")
	if _, ok := services.ProjectIDFromContext(ctx); ok {
		t.Fatal("expected no project value")
	}
	if _, ok := services.OriginFromContext(ctx); ok {
		t.Fatal("expected no origin value")
	}
}
