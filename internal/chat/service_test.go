package chat

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
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

func member(email string) *models.TeamMember {
	return &models.TeamMember{ID: email, Email: email, TeamCode: "AAAAAA", CanSeeChat: true}
}

func chatAdmin(email string) *models.TeamMember {
	m := member(email)
	m.IsAdmin = true
	return m
}

func chatEditor(email string) *models.TeamMember {
	m := member(email)
	m.CanEditChat = true
	return m
}

func seedChannel(t *testing.T, store *docstore.MemStore, channel models.ChatChannel) {
	t.Helper()
	if err := store.Set(context.Background(), models.CollectionChannels, channel.ID, channel, false); err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}
}

func loadChannelDoc(t *testing.T, store *docstore.MemStore, id string) models.ChatChannel {
	t.Helper()
	doc, err := store.Get(context.Background(), models.CollectionChannels, id)
	if err != nil {
		t.Fatalf("channel %s missing: %v", id, err)
	}
	channel, err := docstore.Decode[models.ChatChannel](doc)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	return channel
}

func errCode(err error) pkgerrors.Code {
	typed := pkgerrors.As(err)
	if typed == nil {
		return ""
	}
	return typed.Code()
}

func TestCreateChannel_Group(t *testing.T) {
	store := docstore.NewMemStore()
	svc := newTestService(t, store)

	channel, err := svc.CreateChannel(context.Background(), chatEditor("lead@crew.dev"), CreateChannelInput{
		Name: "  Production  ",
		Kind: enums.ChannelKindGroup,
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if channel.Name != "Production" {
		t.Fatalf("expected trimmed name, got %q", channel.Name)
	}
	if channel.TeamCode != "AAAAAA" || channel.ID == "" {
		t.Fatalf("unexpected channel: %+v", channel)
	}
	if channel.Messages == nil || len(channel.Messages) != 0 {
		t.Fatal("new channel must start with an empty message array")
	}

	// Plain members cannot create group channels.
	_, err = svc.CreateChannel(context.Background(), member("plain@crew.dev"), CreateChannelInput{
		Name: "Nope", Kind: enums.ChannelKindGroup,
	})
	if errCode(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestCreateChannel_DirectAddsActor(t *testing.T) {
	store := docstore.NewMemStore()
	svc := newTestService(t, store)

	channel, err := svc.CreateChannel(context.Background(), member("Alice@Crew.dev"), CreateChannelInput{
		Name:              "alice-bob",
		Kind:              enums.ChannelKindDirect,
		ParticipantEmails: []string{"Bob@Crew.dev"},
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if len(channel.ParticipantEmails) != 2 {
		t.Fatalf("expected actor auto-added, got %v", channel.ParticipantEmails)
	}
	for _, email := range channel.ParticipantEmails {
		if email != "bob@crew.dev" && email != "alice@crew.dev" {
			t.Fatalf("participants must be lowercased, got %v", channel.ParticipantEmails)
		}
	}

	_, err = svc.CreateChannel(context.Background(), member("alice@crew.dev"), CreateChannelInput{
		Name: "solo", Kind: enums.ChannelKindDirect,
	})
	if errCode(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION for direct channel without participants, got %v", err)
	}
}

func TestCreateChannel_ValidationDetails(t *testing.T) {
	svc := newTestService(t, docstore.NewMemStore())

	_, err := svc.CreateChannel(context.Background(), chatEditor("lead@crew.dev"), CreateChannelInput{
		Name: "", Kind: enums.ChannelKindGroup,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected detail map, got %T", typed.Details())
	}
	if _, ok := details["name"]; !ok {
		t.Fatalf("expected a detail keyed by the json field name, got %v", details)
	}
}

func TestAppendMessage(t *testing.T) {
	store := docstore.NewMemStore()
	seedChannel(t, store, models.ChatChannel{
		ID: "ch1", Name: "General", TeamCode: "AAAAAA", Kind: enums.ChannelKindGroup,
	})
	svc := newTestService(t, store)

	msg, err := svc.AppendMessage(context.Background(), member("Alice@Crew.dev"), "ch1", MessageInput{Text: "hello"})
	if err != nil {
		t.Fatalf("unexpected append error: %v", err)
	}
	if msg.Author != "alice@crew.dev" {
		t.Fatalf("author must be lowercased, got %q", msg.Author)
	}
	if msg.ID == "" || msg.Timestamp.IsZero() {
		t.Fatalf("unexpected message: %+v", msg)
	}

	channel := loadChannelDoc(t, store, "ch1")
	if len(channel.Messages) != 1 || channel.Messages[0].ID != msg.ID {
		t.Fatalf("message not persisted: %+v", channel.Messages)
	}
	if channel.LastMessageAt == nil || !channel.LastMessageAt.Equal(msg.Timestamp) {
		t.Fatal("LastMessageAt must track the newest message")
	}

	// Text is optional only with an attachment.
	if _, err := svc.AppendMessage(context.Background(), member("alice@crew.dev"), "ch1", MessageInput{}); errCode(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION for empty message, got %v", err)
	}
	if _, err := svc.AppendMessage(context.Background(), member("alice@crew.dev"), "ch1", MessageInput{
		AttachmentURL: "https://cdn.crew.dev/rig.jpg", AttachmentKind: enums.AttachmentKindImage,
	}); err != nil {
		t.Fatalf("attachment-only message should be valid: %v", err)
	}
}

func TestAppendMessage_PostingRules(t *testing.T) {
	store := docstore.NewMemStore()
	seedChannel(t, store, models.ChatChannel{
		ID: "locked", TeamCode: "AAAAAA", Kind: enums.ChannelKindGroup, IsReadOnly: true,
	})
	seedChannel(t, store, models.ChatChannel{
		ID: "denied", TeamCode: "AAAAAA", Kind: enums.ChannelKindGroup,
		ReadOnlyUserEmails: []string{"muted@crew.dev"},
	})
	seedChannel(t, store, models.ChatChannel{
		ID: "dm", TeamCode: "AAAAAA", Kind: enums.ChannelKindDirect,
		ParticipantEmails: []string{"alice@crew.dev", "bob@crew.dev"},
	})
	svc := newTestService(t, store)
	ctx := context.Background()

	if _, err := svc.AppendMessage(ctx, member("alice@crew.dev"), "locked", MessageInput{Text: "x"}); errCode(err) != pkgerrors.CodeForbidden {
		t.Fatalf("read-only channel must block plain members, got %v", err)
	}
	if _, err := svc.AppendMessage(ctx, chatAdmin("boss@crew.dev"), "locked", MessageInput{Text: "x"}); err != nil {
		t.Fatalf("admins post through read-only: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, member("Muted@Crew.dev"), "denied", MessageInput{Text: "x"}); errCode(err) != pkgerrors.CodeForbidden {
		t.Fatalf("deny-list must match case-insensitively, got %v", err)
	}
	if _, err := svc.AppendMessage(ctx, member("other@crew.dev"), "denied", MessageInput{Text: "x"}); err != nil {
		t.Fatalf("unlisted member should post: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, chatAdmin("boss@crew.dev"), "dm", MessageInput{Text: "x"}); errCode(err) != pkgerrors.CodeForbidden {
		t.Fatalf("direct channels require participation even for admins, got %v", err)
	}
	if _, err := svc.AppendMessage(ctx, member("bob@crew.dev"), "dm", MessageInput{Text: "x"}); err != nil {
		t.Fatalf("participant should post in dm: %v", err)
	}
}

func TestEditMessage(t *testing.T) {
	store := docstore.NewMemStore()
	seedChannel(t, store, models.ChatChannel{
		ID: "ch1", TeamCode: "AAAAAA", Kind: enums.ChannelKindGroup,
		Messages: []models.ChatMessage{{ID: "m1", Author: "alice@crew.dev", Text: "typo"}},
	})
	svc := newTestService(t, store)
	ctx := context.Background()

	if err := svc.EditMessage(ctx, member("bob@crew.dev"), "ch1", "m1", "fixed"); errCode(err) != pkgerrors.CodeForbidden {
		t.Fatalf("only the author or an admin may edit, got %v", err)
	}
	if err := svc.EditMessage(ctx, member("Alice@Crew.dev"), "ch1", "m1", "fixed"); err != nil {
		t.Fatalf("author edit failed: %v", err)
	}

	channel := loadChannelDoc(t, store, "ch1")
	if channel.Messages[0].Text != "fixed" {
		t.Fatalf("edit not persisted: %+v", channel.Messages[0])
	}
	if channel.Messages[0].EditedAt == nil {
		t.Fatal("edit must stamp EditedAt")
	}
	if channel.Messages[0].Author != "alice@crew.dev" {
		t.Fatal("author is immutable")
	}

	if err := svc.EditMessage(ctx, chatAdmin("boss@crew.dev"), "ch1", "m1", "admin edit"); err != nil {
		t.Fatalf("admin edit failed: %v", err)
	}
	if err := svc.EditMessage(ctx, member("alice@crew.dev"), "ch1", "missing", "x"); errCode(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if err := svc.EditMessage(ctx, member("alice@crew.dev"), "ch1", "m1", "  "); errCode(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION for blank text, got %v", err)
	}
}

func TestDeleteMessage_Splices(t *testing.T) {
	store := docstore.NewMemStore()
	seedChannel(t, store, models.ChatChannel{
		ID: "ch1", TeamCode: "AAAAAA", Kind: enums.ChannelKindGroup,
		Messages: []models.ChatMessage{
			{ID: "m1", Author: "alice@crew.dev"},
			{ID: "m2", Author: "bob@crew.dev"},
			{ID: "m3", Author: "alice@crew.dev"},
		},
	})
	svc := newTestService(t, store)

	if err := svc.DeleteMessage(context.Background(), member("alice@crew.dev"), "ch1", "m2"); errCode(err) != pkgerrors.CodeForbidden {
		t.Fatalf("cannot delete someone else's message, got %v", err)
	}
	if err := svc.DeleteMessage(context.Background(), member("bob@crew.dev"), "ch1", "m2"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	channel := loadChannelDoc(t, store, "ch1")
	if len(channel.Messages) != 2 || channel.Messages[0].ID != "m1" || channel.Messages[1].ID != "m3" {
		t.Fatalf("expected splice keeping order, got %+v", channel.Messages)
	}
}

func TestDeleteChannel(t *testing.T) {
	store := docstore.NewMemStore()
	seedChannel(t, store, models.ChatChannel{ID: "group", TeamCode: "AAAAAA", Kind: enums.ChannelKindGroup})
	seedChannel(t, store, models.ChatChannel{
		ID: "dm", TeamCode: "AAAAAA", Kind: enums.ChannelKindDirect,
		ParticipantEmails: []string{"alice@crew.dev", "bob@crew.dev"},
	})
	svc := newTestService(t, store)
	ctx := context.Background()

	if err := svc.DeleteChannel(ctx, member("alice@crew.dev"), "group"); errCode(err) != pkgerrors.CodeForbidden {
		t.Fatalf("plain members cannot delete group channels, got %v", err)
	}
	if err := svc.DeleteChannel(ctx, chatEditor("lead@crew.dev"), "group"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	// Direct participants may delete their own conversation.
	if err := svc.DeleteChannel(ctx, member("bob@crew.dev"), "dm"); err != nil {
		t.Fatalf("participant delete failed: %v", err)
	}
	if _, err := store.Get(ctx, models.CollectionChannels, "dm"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatal("channel document should be gone")
	}
}

func TestUpdateSettings(t *testing.T) {
	store := docstore.NewMemStore()
	seedChannel(t, store, models.ChatChannel{ID: "ch1", TeamCode: "AAAAAA", Kind: enums.ChannelKindGroup})
	svc := newTestService(t, store)

	channel, err := svc.UpdateSettings(context.Background(), chatEditor("lead@crew.dev"), "ch1", SettingsInput{
		IsReadOnly:         true,
		ReadOnlyUserEmails: []string{" Muted@Crew.dev ", "muted@crew.dev"},
	})
	if err != nil {
		t.Fatalf("unexpected settings error: %v", err)
	}
	if !channel.IsReadOnly {
		t.Fatal("read-only flag not applied")
	}
	if len(channel.ReadOnlyUserEmails) != 1 || channel.ReadOnlyUserEmails[0] != "muted@crew.dev" {
		t.Fatalf("deny-list must be normalized and deduped, got %v", channel.ReadOnlyUserEmails)
	}

	if _, err := svc.UpdateSettings(context.Background(), member("plain@crew.dev"), "ch1", SettingsInput{}); errCode(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestTeamBoundary(t *testing.T) {
	store := docstore.NewMemStore()
	seedChannel(t, store, models.ChatChannel{ID: "theirs", TeamCode: "BBBBBB", Kind: enums.ChannelKindGroup})
	svc := newTestService(t, store)

	if _, err := svc.AppendMessage(context.Background(), chatAdmin("boss@crew.dev"), "theirs", MessageInput{Text: "x"}); errCode(err) != pkgerrors.CodeForbidden {
		t.Fatalf("cross-team access must be forbidden, got %v", err)
	}
	if _, err := svc.AppendMessage(context.Background(), member("a@crew.dev"), "ghost", MessageInput{Text: "x"}); errCode(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestVisible(t *testing.T) {
	hiddenChannel := &models.ChatChannel{ID: "h", TeamCode: "AAAAAA", Kind: enums.ChannelKindGroup, IsHidden: true}
	denyChannel := &models.ChatChannel{
		ID: "d", TeamCode: "AAAAAA", Kind: enums.ChannelKindGroup,
		HiddenUserEmails: []string{"hidden@crew.dev"},
	}
	dm := &models.ChatChannel{
		ID: "dm", TeamCode: "AAAAAA", Kind: enums.ChannelKindDirect, IsHidden: true,
		ParticipantEmails: []string{"alice@crew.dev"},
	}

	if Visible(member("a@crew.dev"), hiddenChannel) {
		t.Fatal("hidden channel must not be visible to plain members")
	}
	if !Visible(chatAdmin("boss@crew.dev"), hiddenChannel) {
		t.Fatal("admins see hidden channels")
	}
	if Visible(member("Hidden@Crew.dev"), denyChannel) {
		t.Fatal("per-user hide must match case-insensitively")
	}
	if !Visible(member("other@crew.dev"), denyChannel) {
		t.Fatal("unlisted member should see the channel")
	}
	// For direct channels participation is authoritative; the hidden flag is
	// ignored both ways.
	if !Visible(member("alice@crew.dev"), dm) {
		t.Fatal("participant must see the dm despite the hidden flag")
	}
	if Visible(chatAdmin("boss@crew.dev"), dm) {
		t.Fatal("non-participants never see a dm, admins included")
	}

	blind := &models.TeamMember{Email: "a@crew.dev", TeamCode: "AAAAAA"}
	if Visible(blind, denyChannel) {
		t.Fatal("cleared see flag hides every channel")
	}
}

func TestVisibleChannels(t *testing.T) {
	channels := []models.ChatChannel{
		{ID: "open", TeamCode: "AAAAAA", Kind: enums.ChannelKindGroup},
		{ID: "hidden", TeamCode: "AAAAAA", Kind: enums.ChannelKindGroup, IsHidden: true},
		{ID: "dm", TeamCode: "AAAAAA", Kind: enums.ChannelKindDirect, ParticipantEmails: []string{"alice@crew.dev"}},
	}
	visible := VisibleChannels(member("alice@crew.dev"), channels)
	if len(visible) != 2 {
		t.Fatalf("expected open + dm, got %+v", visible)
	}
}
