package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNewAndWrap(t *testing.T) {
	base := stdErrors.New("connection refused")
	wrapped := Wrap(CodeDependency, base, "fetch team")

	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %q", wrapped.Code())
	}
	if !stdErrors.Is(wrapped, base) {
		t.Fatal("wrapped error must unwrap to its cause")
	}
	if wrapped.Error() != "DEPENDENCY_ERROR: fetch team" {
		t.Fatalf("unexpected message %q", wrapped.Error())
	}

	if Wrap(CodeInternal, nil, "no cause").Unwrap() != nil {
		t.Fatal("wrapping nil must not fabricate a cause")
	}
}

func TestAs(t *testing.T) {
	inner := New(CodeNotFound, "team not found")
	chained := fmt.Errorf("resolving: %w", inner)

	typed := As(chained)
	if typed == nil || typed.Code() != CodeNotFound {
		t.Fatalf("expected typed error through chain, got %v", typed)
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("plain error must not convert")
	}
}

func TestMetadataFor(t *testing.T) {
	cases := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodePartialWrite, http.StatusInternalServerError},
		{CodeDependency, http.StatusServiceUnavailable},
		{Code("UNKNOWN"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("code %s: expected status %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "validation failed").WithDetails(map[string]string{"name": "is required"})
	details, ok := err.Details().(map[string]string)
	if !ok || details["name"] != "is required" {
		t.Fatalf("unexpected details: %v", err.Details())
	}
}

func TestDump(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || len(d.Chain) != 0 {
		t.Fatalf("expected empty dump for nil, got %+v", d)
	}

	err := Wrap(CodePartialWrite, stdErrors.New("chunk 2 failed"), "replace gear collection")
	d := Dump(err)
	if d.Code != CodePartialWrite {
		t.Fatalf("unexpected code %q", d.Code)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(d.Chain))
	}
}
