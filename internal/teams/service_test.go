package teams

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
)

func newTestService(t *testing.T, store *docstore.MemStore) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(store, logg)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestGenerateCode_Format(t *testing.T) {
	svc := newTestService(t, docstore.NewMemStore())

	for i := 0; i < 20; i++ {
		code, err := svc.GenerateCode(context.Background())
		if err != nil {
			t.Fatalf("unexpected generate error: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("expected %d characters, got %q", codeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeCharset, r) {
				t.Fatalf("code %q contains %q outside the charset", code, r)
			}
		}
	}
}

func TestGenerateCode_AvoidsExistingTeams(t *testing.T) {
	store := docstore.NewMemStore()
	svc := newTestService(t, store)

	code, err := svc.GenerateCode(context.Background())
	if err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	if err := svc.Ensure(context.Background(), code, "founder@crew.dev"); err != nil {
		t.Fatalf("unexpected ensure error: %v", err)
	}

	// A fresh code must not collide with the team we just created. The
	// collision odds are astronomically small, so a plain inequality check is
	// a meaningful regression guard.
	next, err := svc.GenerateCode(context.Background())
	if err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	if next == code {
		t.Fatal("generated code collided with an existing team")
	}
}

func TestEnsure_CreatesOnce(t *testing.T) {
	store := docstore.NewMemStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	if err := svc.Ensure(ctx, " abc123 ", "founder@crew.dev"); err != nil {
		t.Fatalf("unexpected ensure error: %v", err)
	}

	team, err := svc.Get(ctx, "ABC123")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if team.Code != "ABC123" {
		t.Fatalf("code must be trimmed and uppercased, got %q", team.Code)
	}
	if team.CreatedBy != "founder@crew.dev" || !team.IsActive || team.CreatedAt.IsZero() {
		t.Fatalf("unexpected team record: %+v", team)
	}

	// A second ensure is a no-op and must not overwrite the creator.
	if err := svc.Ensure(ctx, "ABC123", "other@crew.dev"); err != nil {
		t.Fatalf("unexpected ensure error: %v", err)
	}
	team, err = svc.Get(ctx, "ABC123")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if team.CreatedBy != "founder@crew.dev" {
		t.Fatalf("re-ensure must not rewrite the record, got creator %q", team.CreatedBy)
	}
}

func TestEnsure_RequiresCode(t *testing.T) {
	svc := newTestService(t, docstore.NewMemStore())
	err := svc.Ensure(context.Background(), "   ", "founder@crew.dev")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(t, docstore.NewMemStore())
	_, err := svc.Get(context.Background(), "GHOSTS")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
