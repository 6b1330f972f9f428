// Package patch owns patchsheet row ordering and category-level bulk
// deletes. Row positions are contiguous from 0 within each (team, category)
// group and are rewritten as a whole on every reorder.
package patch

import (
	"context"
	"sort"
	"strings"

	"github.com/crewdeck-app/crewdeck-backend/internal/batch"
	"github.com/crewdeck-app/crewdeck-backend/internal/permissions"
	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

// Service defines patchsheet ordering operations.
type Service interface {
	// UpdateOrder rewrites the positions of a category's rows to match
	// orderedIDs exactly: the first id gets position 0, the second 1, and so
	// on. Rows of the category missing from orderedIDs keep their documents
	// but are appended after the listed ones in their previous relative
	// order.
	UpdateOrder(ctx context.Context, actor *models.TeamMember, category enums.PatchCategory, orderedIDs []string) error
	// PurgeCategory deletes every row of the category in the actor's team.
	PurgeCategory(ctx context.Context, actor *models.TeamMember, category enums.PatchCategory) (int, error)
}

type service struct {
	store   docstore.Store
	mutator *batch.Mutator
	logg    *logger.Logger
}

// NewService wires patchsheet dependencies.
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

func (s *service) UpdateOrder(ctx context.Context, actor *models.TeamMember, category enums.PatchCategory, orderedIDs []string) error {
	if err := requireEditor(actor); err != nil {
		return err
	}
	if !category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid patch category")
	}
	ctx = s.logg.WithTeamCode(ctx, actor.TeamCode)

	rows, err := s.categoryRows(ctx, actor.TeamCode, category)
	if err != nil {
		return err
	}
	byID := make(map[string]models.PatchRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	reordered := make([]models.PatchRow, 0, len(rows))
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		row, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		reordered = append(reordered, row)
	}
	// Unlisted rows trail the explicit order, keeping their previous
	// relative positions.
	SortRows(rows)
	for _, row := range rows {
		if !seen[row.ID] {
			reordered = append(reordered, row)
		}
	}

	ops := make([]batch.Op, 0, len(reordered))
	for i := range reordered {
		if reordered[i].Position == i {
			continue
		}
		reordered[i].Position = i
		ops = append(ops, batch.SetOp(models.CollectionPatches, reordered[i].ID, reordered[i]))
	}
	if _, err := s.mutator.Commit(ctx, ops); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePartialWrite, err, "rewrite patch row order")
	}
	return nil
}

func (s *service) PurgeCategory(ctx context.Context, actor *models.TeamMember, category enums.PatchCategory) (int, error) {
	if err := requireEditor(actor); err != nil {
		return 0, err
	}
	if !category.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid patch category")
	}
	ctx = s.logg.WithTeamCode(ctx, actor.TeamCode)

	rows, err := s.categoryRows(ctx, actor.TeamCode, category)
	if err != nil {
		return 0, err
	}
	ops := make([]batch.Op, 0, len(rows))
	for _, row := range rows {
		ops = append(ops, batch.DeleteOp(models.CollectionPatches, row.ID))
	}
	if _, err := s.mutator.Commit(ctx, ops); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePartialWrite, err, "purge patch category")
	}
	s.logg.Info(ctx, "patch category purged: "+category.String())
	return len(rows), nil
}

func (s *service) categoryRows(ctx context.Context, teamCode string, category enums.PatchCategory) ([]models.PatchRow, error) {
	docs, err := s.store.Query(ctx, models.CollectionPatches, docstore.Filter{Field: "teamCode", Value: teamCode})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query patch rows")
	}
	all := docstore.DecodeAll[models.PatchRow](docs)
	rows := make([]models.PatchRow, 0, len(all))
	for _, row := range all {
		if row.Category == category {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func requireEditor(actor *models.TeamMember) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "no acting member")
	}
	if strings.TrimSpace(actor.TeamCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "acting member has no team")
	}
	if !permissions.CanEdit(actor, enums.FeaturePatches) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "patchsheet editing not permitted")
	}
	return nil
}

// SortRows orders rows for display: position ascending, ties broken by
// case-insensitive name.
func SortRows(rows []models.PatchRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Position != rows[j].Position {
			return rows[i].Position < rows[j].Position
		}
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})
}
