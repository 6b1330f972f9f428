package checklists

import (
	"context"
	"io"
	"testing"

	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

func newTestService(t *testing.T, store *docstore.MemStore) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(store, logg)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func viewer(email string) *models.TeamMember {
	return &models.TeamMember{ID: email, Email: email, TeamCode: "AAAAAA", CanSeeChecklists: true}
}

func seedChecklist(t *testing.T, store *docstore.MemStore, checklist models.ChecklistTemplate) {
	t.Helper()
	if err := store.Set(context.Background(), models.CollectionChecklists, checklist.ID, checklist, false); err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}
}

func loadChecklist(t *testing.T, store *docstore.MemStore, id string) models.ChecklistTemplate {
	t.Helper()
	doc, err := store.Get(context.Background(), models.CollectionChecklists, id)
	if err != nil {
		t.Fatalf("checklist %s missing: %v", id, err)
	}
	checklist, err := docstore.Decode[models.ChecklistTemplate](doc)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	return checklist
}

func TestToggleItem_StampsAndClears(t *testing.T) {
	store := docstore.NewMemStore()
	seedChecklist(t, store, models.ChecklistTemplate{
		ID: "cl1", TeamCode: "AAAAAA",
		Items: []models.ChecklistItem{
			{ID: "it1", Text: "Check cables"},
			{ID: "it2", Text: "Power amps"},
		},
	})
	svc := newTestService(t, store)

	completed, err := svc.ToggleItem(context.Background(), viewer("Tech@Crew.dev"), "cl1", "it1")
	if err != nil {
		t.Fatalf("unexpected toggle error: %v", err)
	}
	if !completed {
		t.Fatal("first toggle should complete")
	}

	checklist := loadChecklist(t, store, "cl1")
	if checklist.Items[0].CompletedAt == nil {
		t.Fatal("completion must stamp completedAt")
	}
	if checklist.Items[0].CompletedBy != "tech@crew.dev" {
		t.Fatalf("completion must record a lowercased completer, got %q", checklist.Items[0].CompletedBy)
	}
	if checklist.Items[1].CompletedAt != nil {
		t.Fatal("other items are untouched")
	}

	completed, err = svc.ToggleItem(context.Background(), viewer("other@crew.dev"), "cl1", "it1")
	if err != nil {
		t.Fatalf("unexpected toggle error: %v", err)
	}
	if completed {
		t.Fatal("second toggle should un-complete")
	}
	checklist = loadChecklist(t, store, "cl1")
	if checklist.Items[0].CompletedAt != nil || checklist.Items[0].CompletedBy != "" {
		t.Fatalf("un-completing must clear both fields, got %+v", checklist.Items[0])
	}
}

func TestToggleItem_Guards(t *testing.T) {
	store := docstore.NewMemStore()
	seedChecklist(t, store, models.ChecklistTemplate{
		ID: "cl1", TeamCode: "AAAAAA",
		Items: []models.ChecklistItem{{ID: "it1"}},
	})
	seedChecklist(t, store, models.ChecklistTemplate{ID: "theirs", TeamCode: "BBBBBB"})
	svc := newTestService(t, store)
	ctx := context.Background()

	if _, err := svc.ToggleItem(ctx, viewer("a@crew.dev"), "cl1", "ghost"); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for unknown item, got %v", err)
	}
	if _, err := svc.ToggleItem(ctx, viewer("a@crew.dev"), "theirs", "it1"); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN across teams, got %v", err)
	}
	blind := &models.TeamMember{Email: "a@crew.dev", TeamCode: "AAAAAA"}
	if _, err := svc.ToggleItem(ctx, blind, "cl1", "it1"); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN without see flag, got %v", err)
	}
}

func TestResetAll(t *testing.T) {
	store := docstore.NewMemStore()
	seedChecklist(t, store, models.ChecklistTemplate{
		ID: "cl1", TeamCode: "AAAAAA",
		Items: []models.ChecklistItem{
			{ID: "it1", CompletedBy: "a@crew.dev"},
			{ID: "it2", CompletedBy: "b@crew.dev"},
			{ID: "it3"},
		},
	})
	svc := newTestService(t, store)

	if err := svc.ResetAll(context.Background(), viewer("lead@crew.dev"), "cl1"); err != nil {
		t.Fatalf("unexpected reset error: %v", err)
	}
	checklist := loadChecklist(t, store, "cl1")
	for _, item := range checklist.Items {
		if item.CompletedAt != nil || item.CompletedBy != "" {
			t.Fatalf("reset left completion state on %s", item.ID)
		}
	}
	if len(checklist.Items) != 3 {
		t.Fatal("reset must not drop items")
	}
}
