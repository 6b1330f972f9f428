// Package lessons owns training video completion tracking. CompletedBy is a
// set with the same idempotent toggle semantics as the ideas board's likedBy.
package lessons

import (
	"context"
	"errors"
	"strings"

	"github.com/crewdeck-app/crewdeck-backend/internal/permissions"
	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

// Service defines training lesson operations.
type Service interface {
	// ToggleCompleted flips the actor's membership in the lesson's
	// completedBy set and reports whether the lesson is complete for the
	// actor after the call.
	ToggleCompleted(ctx context.Context, actor *models.TeamMember, lessonID string) (bool, error)
}

type service struct {
	store docstore.Store
	logg  *logger.Logger
}

// NewService wires lesson dependencies.
func NewService(store docstore.Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{store: store, logg: logg}, nil
}

func (s *service) ToggleCompleted(ctx context.Context, actor *models.TeamMember, lessonID string) (bool, error) {
	if actor == nil {
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "no acting member")
	}
	if !permissions.CanSee(actor, enums.FeatureTraining) {
		return false, pkgerrors.New(pkgerrors.CodeForbidden, "training not visible")
	}

	doc, err := s.store.Get(ctx, models.CollectionLessons, lessonID)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "lesson not found")
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch lesson")
	}
	lesson, err := docstore.Decode[models.TrainingLesson](doc)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode lesson")
	}
	if !strings.EqualFold(lesson.TeamCode, actor.TeamCode) {
		return false, pkgerrors.New(pkgerrors.CodeForbidden, "lesson belongs to a different team")
	}

	email := strings.ToLower(strings.TrimSpace(actor.Email))
	wasPresent := false
	next := make([]string, 0, len(lesson.CompletedBy))
	for _, entry := range lesson.CompletedBy {
		normalized := strings.ToLower(strings.TrimSpace(entry))
		if normalized == email {
			wasPresent = true
			continue
		}
		duplicate := false
		for _, existing := range next {
			if existing == normalized {
				duplicate = true
				break
			}
		}
		if !duplicate {
			next = append(next, normalized)
		}
	}
	if !wasPresent {
		next = append(next, email)
	}
	lesson.CompletedBy = next

	if err := s.store.Set(ctx, models.CollectionLessons, lesson.ID, lesson, false); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save completion toggle")
	}
	return !wasPresent, nil
}
