// Package gear owns bulk inventory mutations and the duplicate merge engine.
// Single-item saves go through the synchronizer's write-through path; this
// service exists for the operations that touch the whole collection at once.
package gear

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/crewdeck-app/crewdeck-backend/internal/batch"
	"github.com/crewdeck-app/crewdeck-backend/internal/permissions"
	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

// Service defines bulk gear operations.
type Service interface {
	// ReplaceAll swaps the team's entire gear collection for items. Existing
	// documents not present in items are deleted. Commits happen in
	// sequential chunks; on a chunk failure the collection is left partially
	// replaced and the error reports how many chunks landed.
	ReplaceAll(ctx context.Context, actor *models.TeamMember, items []models.GearItem) error
	// DeleteAll removes every gear document of the actor's team.
	DeleteAll(ctx context.Context, actor *models.TeamMember) (int, error)
	// MergeDuplicates collapses duplicate gear records. With dryRun the plan
	// is computed but nothing is written, so callers can show an "N groups
	// affected" confirmation first.
	MergeDuplicates(ctx context.Context, actor *models.TeamMember, dryRun bool) (MergeReport, error)
}

type service struct {
	store   docstore.Store
	mutator *batch.Mutator
	logg    *logger.Logger
}

// NewService wires bulk gear dependencies.
func NewService(store docstore.Store, mutator *batch.Mutator, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if mutator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "batch mutator required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{store: store, mutator: mutator, logg: logg}, nil
}

func (s *service) ReplaceAll(ctx context.Context, actor *models.TeamMember, items []models.GearItem) error {
	if err := requireEditor(actor); err != nil {
		return err
	}
	ctx = s.logg.WithTeamCode(ctx, actor.TeamCode)

	existing, err := s.teamGear(ctx, actor.TeamCode)
	if err != nil {
		return err
	}

	incoming := make(map[string]bool, len(items))
	ops := make([]batch.Op, 0, len(items)+len(existing))
	for i := range items {
		item := items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.TeamCode = actor.TeamCode
		if item.CreatedBy == "" {
			item.CreatedBy = actor.Email
		}
		incoming[item.ID] = true
		ops = append(ops, batch.SetOp(models.CollectionGear, item.ID, item))
	}
	for _, item := range existing {
		if !incoming[item.ID] {
			ops = append(ops, batch.DeleteOp(models.CollectionGear, item.ID))
		}
	}

	if _, err := s.mutator.Commit(ctx, ops); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePartialWrite, err, "replace gear collection")
	}
	s.logg.Info(ctx, "gear collection replaced")
	return nil
}

func (s *service) DeleteAll(ctx context.Context, actor *models.TeamMember) (int, error) {
	if err := requireEditor(actor); err != nil {
		return 0, err
	}
	ctx = s.logg.WithTeamCode(ctx, actor.TeamCode)

	existing, err := s.teamGear(ctx, actor.TeamCode)
	if err != nil {
		return 0, err
	}
	ops := make([]batch.Op, 0, len(existing))
	for _, item := range existing {
		ops = append(ops, batch.DeleteOp(models.CollectionGear, item.ID))
	}
	if _, err := s.mutator.Commit(ctx, ops); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePartialWrite, err, "delete gear collection")
	}
	s.logg.Info(ctx, "gear collection cleared")
	return len(existing), nil
}

func (s *service) teamGear(ctx context.Context, teamCode string) ([]models.GearItem, error) {
	docs, err := s.store.Query(ctx, models.CollectionGear, docstore.Filter{Field: "teamCode", Value: teamCode})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query team gear")
	}
	return docstore.DecodeAll[models.GearItem](docs), nil
}

func requireEditor(actor *models.TeamMember) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "no acting member")
	}
	if strings.TrimSpace(actor.TeamCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "acting member has no team")
	}
	if !permissions.CanEdit(actor, enums.FeatureGear) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "gear editing not permitted")
	}
	return nil
}

// VisibleItems filters a gear snapshot down to what the viewer may see.
// Free-tier non-admin members only see records they created themselves.
func VisibleItems(viewer *models.TeamMember, items []models.GearItem) []models.GearItem {
	if viewer == nil || !permissions.CanSee(viewer, enums.FeatureGear) {
		return nil
	}
	if permissions.RoleOf(viewer) != enums.RoleFree {
		return append([]models.GearItem(nil), items...)
	}
	out := make([]models.GearItem, 0, len(items))
	for _, item := range items {
		if strings.EqualFold(item.CreatedBy, viewer.Email) {
			out = append(out, item)
		}
	}
	return out
}
