// Package identity maps authenticated sessions to team member profiles. It
// owns first-sight profile creation, the admin/owner self-heal rules and the
// push provider external-id registration.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/crewdeck-app/crewdeck-backend/internal/permissions"
	"github.com/crewdeck-app/crewdeck-backend/internal/teams"
	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

const healWriteTimeout = 15 * time.Second

// Session is the opaque authenticated identity this core consumes. The
// provider behind it (sign-in, token refresh, password reset) is out of
// scope; only the stable id and email matter here.
type Session struct {
	ID    string
	Email string
}

// PushRegistrar binds a resolved identity to the push provider so the member
// is addressable by email.
type PushRegistrar interface {
	Login(ctx context.Context, externalID string) error
	Logout(ctx context.Context) error
}

// Service resolves sessions into member profiles.
type Service interface {
	// Resolve produces the member profile for a session, creating a default
	// profile on first sight and self-healing stale role/tier combinations.
	// On remote fetch failure it returns a degraded in-memory profile so the
	// caller is never blocked; the stored record is untouched until the next
	// successful resolve.
	Resolve(ctx context.Context, session Session) (*models.TeamMember, error)
	// SignOut clears the push provider binding for the current device.
	SignOut(ctx context.Context) error
	// ApplyEntitlement records a subscription tier change on the profile.
	ApplyEntitlement(ctx context.Context, userID string, tier enums.SubscriptionTier) (*models.TeamMember, error)
	// TransferOwnership moves the owner flag to another member of the same
	// team and updates the team record to match.
	TransferOwnership(ctx context.Context, teamCode, fromUserID, toUserID string) error
}

type service struct {
	store docstore.Store
	teams *teams.Service
	push  PushRegistrar
	logg  *logger.Logger
}

// NewService wires identity dependencies. The push registrar is optional;
// without one, resolution simply skips provider registration.
func NewService(store docstore.Store, teamSvc *teams.Service, push PushRegistrar, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if teamSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "teams service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{store: store, teams: teamSvc, push: push, logg: logg}, nil
}

func (s *service) Resolve(ctx context.Context, session Session) (*models.TeamMember, error) {
	if strings.TrimSpace(session.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "no authenticated session")
	}
	email := strings.ToLower(strings.TrimSpace(session.Email))
	ctx = s.logg.WithUserEmail(ctx, email)

	doc, err := s.store.Get(ctx, models.CollectionUsers, session.ID)
	switch {
	case err == nil:
		member, decodeErr := docstore.Decode[models.TeamMember](doc)
		if decodeErr != nil {
			s.logg.Error(ctx, "member profile undecodable, serving degraded profile", decodeErr)
			return s.degradedProfile(session), nil
		}
		s.afterResolve(ctx, s.heal(ctx, &member))
		return &member, nil

	case errors.Is(err, docstore.ErrNotFound):
		member, createErr := s.createDefaultProfile(ctx, session)
		if createErr != nil {
			s.logg.Error(ctx, "default profile creation failed, serving degraded profile", createErr)
			return s.degradedProfile(session), nil
		}
		s.afterResolve(ctx, member)
		return member, nil

	default:
		s.logg.Error(ctx, "member profile fetch failed, serving degraded profile", err)
		return s.degradedProfile(session), nil
	}
}

func (s *service) SignOut(ctx context.Context) error {
	if s.push == nil {
		return nil
	}
	if err := s.push.Logout(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "push provider logout")
	}
	return nil
}

func (s *service) ApplyEntitlement(ctx context.Context, userID string, tier enums.SubscriptionTier) (*models.TeamMember, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !tier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid subscription tier")
	}

	doc, err := s.store.Get(ctx, models.CollectionUsers, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member profile not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch member profile")
	}
	member, err := docstore.Decode[models.TeamMember](doc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode member profile")
	}

	member.SubscriptionTier = tier
	healProfile(&member)
	if err := s.store.Set(ctx, models.CollectionUsers, member.ID, member, false); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist entitlement change")
	}
	s.logg.Info(s.logg.WithUserEmail(ctx, member.Email), "subscription tier updated to "+tier.String())
	return &member, nil
}

func (s *service) TransferOwnership(ctx context.Context, teamCode, fromUserID, toUserID string) error {
	if teamCode == "" || fromUserID == "" || toUserID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "team code and both user ids required")
	}
	if fromUserID == toUserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot transfer ownership to self")
	}

	from, err := s.memberInTeam(ctx, fromUserID, teamCode)
	if err != nil {
		return err
	}
	if !from.IsOwner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the current owner may transfer ownership")
	}
	to, err := s.memberInTeam(ctx, toUserID, teamCode)
	if err != nil {
		return err
	}

	from.IsOwner = false
	to.IsOwner = true
	to.IsAdmin = true
	healProfile(to)

	team, err := s.teams.Get(ctx, teamCode)
	if err != nil {
		return err
	}
	team.OwnerID = to.ID
	team.OwnerEmail = to.Email

	wb := s.store.Batch()
	wb.Set(models.CollectionUsers, from.ID, from)
	wb.Set(models.CollectionUsers, to.ID, to)
	wb.Set(models.CollectionTeams, team.Code, team)
	if err := wb.Commit(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit ownership transfer")
	}
	s.logg.Info(s.logg.WithTeamCode(ctx, teamCode), "team ownership transferred")
	return nil
}

func (s *service) memberInTeam(ctx context.Context, userID, teamCode string) (*models.TeamMember, error) {
	doc, err := s.store.Get(ctx, models.CollectionUsers, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member profile not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch member profile")
	}
	member, err := docstore.Decode[models.TeamMember](doc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode member profile")
	}
	if !strings.EqualFold(member.TeamCode, teamCode) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "member belongs to a different team")
	}
	return &member, nil
}

// createDefaultProfile synthesizes and persists a first-sight profile: local
// part of the email as display name, a fresh team, free tier, no edit rights,
// full visibility.
func (s *service) createDefaultProfile(ctx context.Context, session Session) (*models.TeamMember, error) {
	code, err := s.teams.GenerateCode(ctx)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(session.Email))

	member := models.TeamMember{
		ID:               session.ID,
		DisplayName:      emailLocalPart(email),
		Email:            email,
		TeamCode:         code,
		SubscriptionTier: enums.SubscriptionTierFree,
	}
	permissions.GrantAllSee(&member)

	if err := s.teams.Ensure(ctx, code, email); err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, models.CollectionUsers, member.ID, member, false); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist default profile")
	}
	s.logg.Info(s.logg.WithTeamCode(ctx, code), "default member profile created")
	return &member, nil
}

// heal applies the stale role/tier repair rules in memory and, when anything
// changed, schedules a best-effort remote update. The returned profile is
// always the healed one; a failed write only delays the stored repair until
// the next resolve.
func (s *service) heal(ctx context.Context, member *models.TeamMember) *models.TeamMember {
	if !healProfile(member) {
		return member
	}

	healed := *member
	go func() {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), healWriteTimeout)
		defer cancel()
		if err := s.store.Set(writeCtx, models.CollectionUsers, healed.ID, healed, false); err != nil {
			s.logg.Error(writeCtx, "profile self-heal write failed", err)
			return
		}
		s.logg.Info(writeCtx, "profile self-healed")
	}()
	return member
}

// afterResolve runs the resolution side effects: lazy team record repair and
// push provider registration. Both are best-effort.
func (s *service) afterResolve(ctx context.Context, member *models.TeamMember) {
	if member.TeamCode != "" {
		if err := s.teams.Ensure(ctx, member.TeamCode, member.Email); err != nil {
			s.logg.Error(ctx, "team record self-heal failed", err)
		}
	}
	if s.push != nil && member.Email != "" {
		if err := s.push.Login(ctx, member.Email); err != nil {
			s.logg.Error(ctx, "push provider registration failed", err)
		}
	}
}

// degradedProfile is served when the remote store is unreachable. It has no
// team code, so the synchronizer falls back to the synthetic single-member
// view; nothing is persisted.
func (s *service) degradedProfile(session Session) *models.TeamMember {
	email := strings.ToLower(strings.TrimSpace(session.Email))
	member := models.TeamMember{
		ID:               session.ID,
		DisplayName:      emailLocalPart(email),
		Email:            email,
		SubscriptionTier: enums.SubscriptionTierFree,
	}
	permissions.GrantAllSee(&member)
	return &member
}

// healProfile applies the two repair rules and reports whether anything
// changed: (a) an admin on the free tier is raised to basic with full edit
// rights, (b) an owner is always an admin and at least basic.
func healProfile(m *models.TeamMember) bool {
	changed := false
	if m.IsOwner && !m.IsAdmin {
		m.IsAdmin = true
		changed = true
	}
	if m.IsAdmin && m.SubscriptionTier == enums.SubscriptionTierFree {
		m.SubscriptionTier = enums.SubscriptionTierBasic
		permissions.GrantAllEdit(m)
		changed = true
	}
	return changed
}

func emailLocalPart(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}
