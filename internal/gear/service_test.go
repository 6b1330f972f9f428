package gear

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/crewdeck-app/crewdeck-backend/internal/batch"
	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, store *docstore.MemStore) Service {
	t.Helper()
	mutator, err := batch.NewMutator(store, 2, nil)
	if err != nil {
		t.Fatalf("unexpected mutator error: %v", err)
	}
	svc, err := NewService(store, mutator, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func editor() *models.TeamMember {
	return &models.TeamMember{
		ID:       "u1",
		Email:    "tech@crew.dev",
		TeamCode: "AAAAAA",
		CanEditGear: true,
	}
}

func seedGear(t *testing.T, store *docstore.MemStore, items ...models.GearItem) {
	t.Helper()
	for _, item := range items {
		if err := store.Set(context.Background(), models.CollectionGear, item.ID, item, false); err != nil {
			t.Fatalf("unexpected seed error: %v", err)
		}
	}
}

func TestReplaceAll_SwapsCollection(t *testing.T) {
	store := docstore.NewMemStore()
	seedGear(t, store,
		models.GearItem{ID: "keep", Name: "Mic", TeamCode: "AAAAAA"},
		models.GearItem{ID: "stale", Name: "Old Amp", TeamCode: "AAAAAA"},
	)
	svc := newTestService(t, store)

	err := svc.ReplaceAll(context.Background(), editor(), []models.GearItem{
		{ID: "keep", Name: "Mic v2"},
		{Name: "New Cam"},
	})
	if err != nil {
		t.Fatalf("unexpected replace error: %v", err)
	}

	docs, _ := store.Query(context.Background(), models.CollectionGear, docstore.Filter{Field: "teamCode", Value: "AAAAAA"})
	items := docstore.DecodeAll[models.GearItem](docs)
	if len(items) != 2 {
		t.Fatalf("expected 2 items after replace, got %d", len(items))
	}
	for _, item := range items {
		if item.ID == "stale" {
			t.Fatal("stale item should have been deleted")
		}
		if item.TeamCode != "AAAAAA" {
			t.Fatalf("replace must stamp the actor's team code, got %q", item.TeamCode)
		}
		if item.ID == "" {
			t.Fatal("new items must get generated ids")
		}
		if item.Name == "New Cam" && item.CreatedBy != "tech@crew.dev" {
			t.Fatalf("new items must record their creator, got %q", item.CreatedBy)
		}
	}
}

func TestReplaceAll_PartialFailureReportsPartialWrite(t *testing.T) {
	store := docstore.NewMemStore()
	svc := newTestService(t, store)
	store.FailCommitsAfter(1, errors.New("backend unavailable"))

	items := []models.GearItem{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}, {Name: "e"}}
	err := svc.ReplaceAll(context.Background(), editor(), items)
	if err == nil {
		t.Fatal("expected partial write error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePartialWrite {
		t.Fatalf("expected PARTIAL_WRITE, got %v", err)
	}
	var chunkErr *batch.ChunkError
	if !errors.As(err, &chunkErr) || chunkErr.Committed != 1 {
		t.Fatalf("expected one committed chunk in error, got %v", err)
	}
}

func TestDeleteAll(t *testing.T) {
	store := docstore.NewMemStore()
	seedGear(t, store,
		models.GearItem{ID: "a", TeamCode: "AAAAAA"},
		models.GearItem{ID: "b", TeamCode: "AAAAAA"},
		models.GearItem{ID: "other", TeamCode: "BBBBBB"},
	)
	svc := newTestService(t, store)

	deleted, err := svc.DeleteAll(context.Background(), editor())
	if err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	// Another team's gear is untouched.
	if _, err := store.Get(context.Background(), models.CollectionGear, "other"); err != nil {
		t.Fatalf("other team's gear must survive: %v", err)
	}
}

func TestBulkOpsRequireEditPermission(t *testing.T) {
	store := docstore.NewMemStore()
	svc := newTestService(t, store)

	viewer := &models.TeamMember{ID: "u2", Email: "viewer@crew.dev", TeamCode: "AAAAAA", CanSeeGear: true}
	if err := svc.ReplaceAll(context.Background(), viewer, nil); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if _, err := svc.DeleteAll(context.Background(), nil); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	if _, err := svc.MergeDuplicates(context.Background(), viewer, true); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestMergeDuplicates_DryRunDoesNotWrite(t *testing.T) {
	store := docstore.NewMemStore()
	seedGear(t, store,
		models.GearItem{ID: "g1", Name: "Mic1", SerialNumber: "S1", TeamCode: "AAAAAA"},
		models.GearItem{ID: "g2", Name: "mic1 ", SerialNumber: " s1", Category: "Audio", TeamCode: "AAAAAA"},
	)
	svc := newTestService(t, store)

	report, err := svc.MergeDuplicates(context.Background(), editor(), true)
	if err != nil {
		t.Fatalf("unexpected dry-run error: %v", err)
	}
	if report.Groups != 1 || report.Deleted != 1 {
		t.Fatalf("unexpected dry-run report: %+v", report)
	}
	if _, err := store.Get(context.Background(), models.CollectionGear, "g2"); err != nil {
		t.Fatal("dry run must not delete anything")
	}
}

func TestMergeDuplicates_CommitsPlan(t *testing.T) {
	store := docstore.NewMemStore()
	seedGear(t, store,
		models.GearItem{ID: "g1", Name: "Mic1", SerialNumber: "S1", TeamCode: "AAAAAA"},
		models.GearItem{ID: "g2", Name: "mic1 ", SerialNumber: " s1", Category: "Audio", TeamCode: "AAAAAA"},
	)
	svc := newTestService(t, store)

	report, err := svc.MergeDuplicates(context.Background(), editor(), false)
	if err != nil {
		t.Fatalf("unexpected merge error: %v", err)
	}
	if report.Groups != 1 || report.Deleted != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	if _, err := store.Get(context.Background(), models.CollectionGear, "g2"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatal("absorbed item must be deleted")
	}
	doc, err := store.Get(context.Background(), models.CollectionGear, "g1")
	if err != nil {
		t.Fatalf("surviving item missing: %v", err)
	}
	survivor, err := docstore.Decode[models.GearItem](doc)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if survivor.Category != "Audio" {
		t.Fatalf("merge did not fill category, got %q", survivor.Category)
	}

	// Merging again finds nothing.
	report, err = svc.MergeDuplicates(context.Background(), editor(), false)
	if err != nil || report.Groups != 0 || report.Deleted != 0 {
		t.Fatalf("expected empty re-merge, got %+v, %v", report, err)
	}
}

func TestVisibleItems_FreeTierScoping(t *testing.T) {
	items := []models.GearItem{
		{ID: "mine", CreatedBy: "Viewer@Crew.dev"},
		{ID: "theirs", CreatedBy: "other@crew.dev"},
	}

	free := &models.TeamMember{Email: "viewer@crew.dev", SubscriptionTier: enums.SubscriptionTierFree, CanSeeGear: true}
	visible := VisibleItems(free, items)
	if len(visible) != 1 || visible[0].ID != "mine" {
		t.Fatalf("free tier should only see own items, got %+v", visible)
	}

	basic := &models.TeamMember{Email: "viewer@crew.dev", SubscriptionTier: enums.SubscriptionTierBasic, CanSeeGear: true}
	if len(VisibleItems(basic, items)) != 2 {
		t.Fatal("basic tier should see everything")
	}

	admin := &models.TeamMember{Email: "admin@crew.dev", IsAdmin: true, SubscriptionTier: enums.SubscriptionTierFree}
	if len(VisibleItems(admin, items)) != 2 {
		t.Fatal("admins see everything regardless of tier")
	}

	blind := &models.TeamMember{Email: "viewer@crew.dev", SubscriptionTier: enums.SubscriptionTierBasic}
	if len(VisibleItems(blind, items)) != 0 {
		t.Fatal("cleared see flag hides the collection")
	}
}
