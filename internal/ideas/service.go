// Package ideas owns ideas-board like tracking. LikedBy is a set: toggling
// twice restores the original state and an email never appears twice.
package ideas

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

// Service defines ideas-board operations.
type Service interface {
	// ToggleLike flips the actor's membership in the card's likedBy set and
	// reports whether the card is liked after the call.
	ToggleLike(ctx context.Context, actor *models.TeamMember, ideaID string) (bool, error)
}

type service struct {
	store docstore.Store
	logg  *logger.Logger
}

// NewService wires ideas dependencies.
func NewService(store docstore.Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{store: store, logg: logg}, nil
}

func (s *service) ToggleLike(ctx context.Context, actor *models.TeamMember, ideaID string) (bool, error) {
	if actor == nil {
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "no acting member")
	}
	if !permissions.CanSee(actor, enums.FeatureIdeas) {
		return false, pkgerrors.New(pkgerrors.CodeForbidden, "ideas board not visible")
	}

	doc, err := s.store.Get(ctx, models.CollectionIdeas, ideaID)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "idea not found")
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch idea")
	}
	idea, err := docstore.Decode[models.IdeaCard](doc)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idea")
	}
	if !strings.EqualFold(idea.TeamCode, actor.TeamCode) {
		return false, pkgerrors.New(pkgerrors.CodeForbidden, "idea belongs to a different team")
	}

	idea.LikedBy, _ = toggleSet(idea.LikedBy, actor.Email)
	liked := containsFold(idea.LikedBy, actor.Email)

	if err := s.store.Set(ctx, models.CollectionIdeas, idea.ID, idea, false); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save like toggle")
	}
	return liked, nil
}

// toggleSet flips membership of email in the set, deduplicating on the way.
// The second return reports whether the email was present before the flip.
func toggleSet(set []string, email string) ([]string, bool) {
	target := strings.ToLower(strings.TrimSpace(email))
	out := make([]string, 0, len(set))
	present := false
	for _, entry := range set {
		normalized := strings.ToLower(strings.TrimSpace(entry))
		if normalized == target {
			present = true
			continue
		}
		if !containsFold(out, normalized) {
			out = append(out, normalized)
		}
	}
	if !present {
		out = append(out, target)
	}
	return out, present
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}
