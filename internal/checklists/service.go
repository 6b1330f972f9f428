// Package checklists owns per-item completion toggling on team checklists.
package checklists

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/crewdeck-app/crewdeck-backend/internal/permissions"
	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

// Service defines checklist operations.
type Service interface {
	// ToggleItem flips an item's completion state. Completing stamps
	// completedAt/completedBy; un-completing clears both. Reports whether the
	// item is complete after the call.
	ToggleItem(ctx context.Context, actor *models.TeamMember, checklistID, itemID string) (bool, error)
	// ResetAll clears completion state on every item of the checklist.
	ResetAll(ctx context.Context, actor *models.TeamMember, checklistID string) error
}

type service struct {
	store docstore.Store
	logg  *logger.Logger
	now   func() time.Time
}

// NewService wires checklist dependencies.
func NewService(store docstore.Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{store: store, logg: logg, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) ToggleItem(ctx context.Context, actor *models.TeamMember, checklistID, itemID string) (bool, error) {
	checklist, err := s.loadChecklist(ctx, actor, checklistID)
	if err != nil {
		return false, err
	}

	idx := -1
	for i := range checklist.Items {
		if checklist.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "checklist item not found")
	}

	item := &checklist.Items[idx]
	completed := item.CompletedAt == nil
	if completed {
		now := s.now()
		item.CompletedAt = &now
		item.CompletedBy = strings.ToLower(actor.Email)
	} else {
		item.CompletedAt = nil
		item.CompletedBy = ""
	}

	if err := s.store.Set(ctx, models.CollectionChecklists, checklist.ID, checklist, false); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save checklist item toggle")
	}
	return completed, nil
}

func (s *service) ResetAll(ctx context.Context, actor *models.TeamMember, checklistID string) error {
	checklist, err := s.loadChecklist(ctx, actor, checklistID)
	if err != nil {
		return err
	}
	for i := range checklist.Items {
		checklist.Items[i].CompletedAt = nil
		checklist.Items[i].CompletedBy = ""
	}
	if err := s.store.Set(ctx, models.CollectionChecklists, checklist.ID, checklist, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset checklist")
	}
	s.logg.Info(s.logg.WithTeamCode(ctx, actor.TeamCode), "checklist reset")
	return nil
}

func (s *service) loadChecklist(ctx context.Context, actor *models.TeamMember, checklistID string) (*models.ChecklistTemplate, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "no acting member")
	}
	if !permissions.CanSee(actor, enums.FeatureChecklists) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checklists not visible")
	}

	doc, err := s.store.Get(ctx, models.CollectionChecklists, checklistID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checklist not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch checklist")
	}
	checklist, err := docstore.Decode[models.ChecklistTemplate](doc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode checklist")
	}
	if !strings.EqualFold(checklist.TeamCode, actor.TeamCode) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checklist belongs to a different team")
	}
	return &checklist, nil
}
