package teams

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

const (
	codeLength      = 6
	codeCharset     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 10
)

// Service manages team records. Teams are created lazily, self-healed on
// demand, and never deleted.
type Service struct {
	store docstore.Store
	logg  *logger.Logger
}

// NewService wires team record dependencies.
func NewService(store docstore.Store, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Service{store: store, logg: logg}, nil
}

// GenerateCode produces a fresh 6-character uppercase alphanumeric team code,
// retrying on the unlikely collision with an existing team.
func (s *Service) GenerateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate team code")
		}
		_, err = s.store.Get(ctx, models.CollectionTeams, code)
		if errors.Is(err, docstore.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check team code collision")
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal,
		fmt.Sprintf("no free team code after %d attempts", maxCodeAttempts))
}

// Get loads a team record by code.
func (s *Service) Get(ctx context.Context, code string) (*models.Team, error) {
	doc, err := s.store.Get(ctx, models.CollectionTeams, code)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "team not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch team")
	}
	team, err := docstore.Decode[models.Team](doc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode team")
	}
	return &team, nil
}

// Ensure creates the team record if it does not exist yet. Member profiles
// must always reference an existing team, so a missing record is recreated
// rather than treated as an error.
func (s *Service) Ensure(ctx context.Context, code, creatorEmail string) error {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "team code required")
	}

	_, err := s.store.Get(ctx, models.CollectionTeams, trimmed)
	if err == nil {
		return nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check team record")
	}

	team := models.Team{
		Code:      trimmed,
		CreatedAt: time.Now().UTC(),
		CreatedBy: creatorEmail,
		IsActive:  true,
	}
	if err := s.store.Set(ctx, models.CollectionTeams, trimmed, team, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create team record")
	}
	s.logg.Info(s.logg.WithTeamCode(ctx, trimmed), "team record created")
	return nil
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(out), nil
}
