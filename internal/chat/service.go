// Package chat owns channel lifecycle and message mutation. Messages are
// embedded in the channel document, so every message mutation is a
// read-modify-write of the full array followed by a whole-document overwrite.
// That is last-writer-wins with no concurrency check: two near-simultaneous
// edits to one channel can drop one editor's change.
package chat

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/crewdeck-app/crewdeck-backend/internal/permissions"
	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// CreateChannelInput describes a new channel.
type CreateChannelInput struct {
	Name              string            `json:"name" validate:"required,max=80"`
	Kind              enums.ChannelKind `json:"kind" validate:"required"`
	Position          int               `json:"position" validate:"gte=0"`
	ParticipantEmails []string          `json:"participantEmails" validate:"omitempty,dive,email"`
}

// MessageInput describes a new message. Text may be empty only when an
// attachment is present.
type MessageInput struct {
	Text           string               `json:"text" validate:"required_without=AttachmentURL,max=4000"`
	AttachmentURL  string               `json:"attachmentURL" validate:"omitempty,url"`
	AttachmentName string               `json:"attachmentName" validate:"omitempty,max=255"`
	AttachmentKind enums.AttachmentKind `json:"attachmentKind" validate:"omitempty"`
}

// SettingsInput carries the admin-tunable channel flags.
type SettingsInput struct {
	IsReadOnly         bool     `json:"isReadOnly"`
	IsHidden           bool     `json:"isHidden"`
	ReadOnlyUserEmails []string `json:"readOnlyUserEmails" validate:"omitempty,dive,email"`
	HiddenUserEmails   []string `json:"hiddenUserEmails" validate:"omitempty,dive,email"`
}

// Service defines channel and message operations.
type Service interface {
	CreateChannel(ctx context.Context, actor *models.TeamMember, input CreateChannelInput) (*models.ChatChannel, error)
	// DeleteChannel removes the channel document; the embedded messages go
	// with it.
	DeleteChannel(ctx context.Context, actor *models.TeamMember, channelID string) error
	UpdateSettings(ctx context.Context, actor *models.TeamMember, channelID string, input SettingsInput) (*models.ChatChannel, error)
	AppendMessage(ctx context.Context, actor *models.TeamMember, channelID string, input MessageInput) (*models.ChatMessage, error)
	EditMessage(ctx context.Context, actor *models.TeamMember, channelID, messageID, text string) error
	DeleteMessage(ctx context.Context, actor *models.TeamMember, channelID, messageID string) error
}

type service struct {
	store docstore.Store
	logg  *logger.Logger
	now   func() time.Time
}

// NewService wires chat dependencies.
func NewService(store docstore.Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{store: store, logg: logg, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) CreateChannel(ctx context.Context, actor *models.TeamMember, input CreateChannelInput) (*models.ChatChannel, error) {
	if err := requireMember(actor); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, formatValidationErrors(err)
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid channel kind")
	}

	switch input.Kind {
	case enums.ChannelKindGroup:
		// Group channels are an admin surface; direct channels spring up
		// implicitly between any two members.
		if !permissions.CanEdit(actor, enums.FeatureChat) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "channel creation not permitted")
		}
	case enums.ChannelKindDirect:
		if len(input.ParticipantEmails) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "direct channel requires participants")
		}
	}

	participants := normalizeEmails(input.ParticipantEmails)
	if input.Kind == enums.ChannelKindDirect && !containsFold(participants, actor.Email) {
		participants = append(participants, strings.ToLower(actor.Email))
	}

	channel := models.ChatChannel{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(input.Name),
		TeamCode:          actor.TeamCode,
		Position:          input.Position,
		Kind:              input.Kind,
		Messages:          []models.ChatMessage{},
		ParticipantEmails: participants,
	}
	if err := s.store.Set(ctx, models.CollectionChannels, channel.ID, channel, false); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create channel")
	}
	s.logg.Info(s.logg.WithChannelID(ctx, channel.ID), "channel created")
	return &channel, nil
}

func (s *service) DeleteChannel(ctx context.Context, actor *models.TeamMember, channelID string) error {
	if err := requireMember(actor); err != nil {
		return err
	}
	channel, err := s.loadChannel(ctx, actor, channelID)
	if err != nil {
		return err
	}
	isDirectParticipant := channel.Kind == enums.ChannelKindDirect && containsFold(channel.ParticipantEmails, actor.Email)
	if !permissions.CanEdit(actor, enums.FeatureChat) && !isDirectParticipant {
		return pkgerrors.New(pkgerrors.CodeForbidden, "channel deletion not permitted")
	}
	if err := s.store.Delete(ctx, models.CollectionChannels, channelID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete channel")
	}
	s.logg.Info(s.logg.WithChannelID(ctx, channelID), "channel deleted")
	return nil
}

func (s *service) UpdateSettings(ctx context.Context, actor *models.TeamMember, channelID string, input SettingsInput) (*models.ChatChannel, error) {
	if err := requireMember(actor); err != nil {
		return nil, err
	}
	if !permissions.CanEdit(actor, enums.FeatureChat) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "channel settings not permitted")
	}
	if err := validate.Struct(input); err != nil {
		return nil, formatValidationErrors(err)
	}

	channel, err := s.loadChannel(ctx, actor, channelID)
	if err != nil {
		return nil, err
	}
	channel.IsReadOnly = input.IsReadOnly
	channel.IsHidden = input.IsHidden
	channel.ReadOnlyUserEmails = normalizeEmails(input.ReadOnlyUserEmails)
	channel.HiddenUserEmails = normalizeEmails(input.HiddenUserEmails)

	if err := s.store.Set(ctx, models.CollectionChannels, channel.ID, channel, false); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save channel settings")
	}
	return channel, nil
}

func (s *service) AppendMessage(ctx context.Context, actor *models.TeamMember, channelID string, input MessageInput) (*models.ChatMessage, error) {
	if err := requireMember(actor); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, formatValidationErrors(err)
	}
	if input.AttachmentKind != "" && !input.AttachmentKind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid attachment kind")
	}

	channel, err := s.loadChannel(ctx, actor, channelID)
	if err != nil {
		return nil, err
	}
	if !CanPost(actor, channel) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "posting not permitted in this channel")
	}

	now := s.now()
	message := models.ChatMessage{
		ID:             uuid.NewString(),
		Author:         strings.ToLower(actor.Email),
		Text:           input.Text,
		Timestamp:      now,
		AttachmentURL:  input.AttachmentURL,
		AttachmentName: input.AttachmentName,
		AttachmentKind: input.AttachmentKind,
	}
	channel.Messages = append(channel.Messages, message)
	channel.LastMessageAt = &now

	if err := s.store.Set(ctx, models.CollectionChannels, channel.ID, channel, false); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append message")
	}
	return &message, nil
}

func (s *service) EditMessage(ctx context.Context, actor *models.TeamMember, channelID, messageID, text string) error {
	if strings.TrimSpace(text) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message text required")
	}
	return s.mutateMessage(ctx, actor, channelID, messageID, func(msg *models.ChatMessage) {
		now := s.now()
		msg.Text = text
		msg.EditedAt = &now
	})
}

func (s *service) DeleteMessage(ctx context.Context, actor *models.TeamMember, channelID, messageID string) error {
	if err := requireMember(actor); err != nil {
		return err
	}
	channel, err := s.loadChannel(ctx, actor, channelID)
	if err != nil {
		return err
	}

	idx := indexOfMessage(channel.Messages, messageID)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
	}
	if !canTouchMessage(actor, channel.Messages[idx]) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "message deletion not permitted")
	}

	channel.Messages = append(channel.Messages[:idx], channel.Messages[idx+1:]...)
	if err := s.store.Set(ctx, models.CollectionChannels, channel.ID, channel, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete message")
	}
	return nil
}

func (s *service) mutateMessage(ctx context.Context, actor *models.TeamMember, channelID, messageID string, apply func(*models.ChatMessage)) error {
	if err := requireMember(actor); err != nil {
		return err
	}
	channel, err := s.loadChannel(ctx, actor, channelID)
	if err != nil {
		return err
	}

	idx := indexOfMessage(channel.Messages, messageID)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
	}
	if !canTouchMessage(actor, channel.Messages[idx]) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "message editing not permitted")
	}

	apply(&channel.Messages[idx])
	if err := s.store.Set(ctx, models.CollectionChannels, channel.ID, channel, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save message edit")
	}
	return nil
}

func (s *service) loadChannel(ctx context.Context, actor *models.TeamMember, channelID string) (*models.ChatChannel, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "channel id required")
	}
	doc, err := s.store.Get(ctx, models.CollectionChannels, channelID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "channel not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch channel")
	}
	channel, err := docstore.Decode[models.ChatChannel](doc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode channel")
	}
	if !strings.EqualFold(channel.TeamCode, actor.TeamCode) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "channel belongs to a different team")
	}
	return &channel, nil
}

// CanPost reports whether the member may post in the channel. Admins and
// owners always can; a globally read-only channel blocks everyone else, and
// the per-user deny-list blocks named members even in open channels. Direct
// channels additionally require participation.
func CanPost(m *models.TeamMember, channel *models.ChatChannel) bool {
	if m == nil || channel == nil || !permissions.CanSee(m, enums.FeatureChat) {
		return false
	}
	if channel.Kind == enums.ChannelKindDirect {
		return containsFold(channel.ParticipantEmails, m.Email)
	}
	if m.IsAdmin || m.IsOwner {
		return true
	}
	if channel.IsReadOnly {
		return false
	}
	return !containsFold(channel.ReadOnlyUserEmails, m.Email)
}

// Visible reports whether the viewer may see the channel. For direct
// channels the participant list is authoritative and the hidden mechanism is
// ignored entirely.
func Visible(m *models.TeamMember, channel *models.ChatChannel) bool {
	if m == nil || channel == nil || !permissions.CanSee(m, enums.FeatureChat) {
		return false
	}
	if channel.Kind == enums.ChannelKindDirect {
		return containsFold(channel.ParticipantEmails, m.Email)
	}
	if m.IsAdmin || m.IsOwner {
		return true
	}
	if channel.IsHidden {
		return false
	}
	return !containsFold(channel.HiddenUserEmails, m.Email)
}

// VisibleChannels filters a channel snapshot down to what the viewer may see.
func VisibleChannels(m *models.TeamMember, channels []models.ChatChannel) []models.ChatChannel {
	out := make([]models.ChatChannel, 0, len(channels))
	for i := range channels {
		if Visible(m, &channels[i]) {
			out = append(out, channels[i])
		}
	}
	return out
}

// canTouchMessage: only the original author or an admin may edit or delete.
// Author is immutable either way.
func canTouchMessage(m *models.TeamMember, msg models.ChatMessage) bool {
	if m.IsAdmin || m.IsOwner {
		return true
	}
	return strings.EqualFold(msg.Author, m.Email)
}

func indexOfMessage(messages []models.ChatMessage, id string) int {
	for i := range messages {
		if messages[i].ID == id {
			return i
		}
	}
	return -1
}

func requireMember(actor *models.TeamMember) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "no acting member")
	}
	if strings.TrimSpace(actor.TeamCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "acting member has no team")
	}
	return nil
}

func normalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, email := range emails {
		trimmed := strings.ToLower(strings.TrimSpace(email))
		if trimmed != "" && !containsFold(out, trimmed) {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}

func formatValidationErrors(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = "is invalid (" + fieldErr.Tag() + ")"
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}
