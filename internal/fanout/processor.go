// Package fanout turns channel document updates into push notifications. One
// triggering event produces at most one push request addressed to the full
// recipient list; failures are logged and dropped, never retried, so a
// notification can be silently missed but never duplicated within one
// delivery.
package fanout

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/crewdeck-app/crewdeck-backend/pkg/docstore"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
	"github.com/crewdeck-app/crewdeck-backend/pkg/metrics"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
	"github.com/crewdeck-app/crewdeck-backend/pkg/push"

	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
)

const messagePreviewLimit = 160

// Sender dispatches one notification to a recipient list in a single call.
type Sender interface {
	Send(ctx context.Context, n push.Notification) error
}

// Outcome classifies what a processed event produced.
type Outcome string

const (
	OutcomeDispatched Outcome = "dispatched"
	OutcomeSuppressed Outcome = "suppressed"
)

// Processor holds the per-process state of the fan-out function. Invocations
// share nothing but these read-only dependencies, so concurrent events are
// safe.
type Processor struct {
	store   docstore.Store
	sender  Sender
	metrics *metrics.FanoutMetrics
	logg    *logger.Logger
}

// NewProcessor wires fan-out dependencies.
func NewProcessor(store docstore.Store, sender Sender, fm *metrics.FanoutMetrics, logg *logger.Logger) (*Processor, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "push sender required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Processor{store: store, sender: sender, metrics: fm, logg: logg}, nil
}

// HandleEvent inspects one channel update. A push goes out only when the
// message array strictly grew; edits, deletes and field-only updates are
// suppressed. The returned error is informational; the caller acks either
// way.
func (p *Processor) HandleEvent(ctx context.Context, event ChannelEventPayload) (Outcome, error) {
	ctx = p.logg.WithChannelID(p.logg.WithTeamCode(ctx, event.TeamCode), event.ChannelID)

	if event.After == nil {
		p.metrics.IncSuppressed()
		return OutcomeSuppressed, nil
	}
	beforeCount := 0
	if event.Before != nil {
		beforeCount = len(event.Before.Messages)
	}
	if len(event.After.Messages) <= beforeCount {
		p.metrics.IncSuppressed()
		return OutcomeSuppressed, nil
	}

	message := event.After.Messages[len(event.After.Messages)-1]
	members, err := p.teamMembers(ctx, event.TeamCode)
	if err != nil {
		return OutcomeSuppressed, err
	}

	recipients := resolveRecipients(event.After, message.Author, members)
	if len(recipients) == 0 {
		p.metrics.IncSuppressed()
		p.logg.Info(ctx, "no eligible recipients, skipping push")
		return OutcomeSuppressed, nil
	}

	notification := push.Notification{
		Recipients: recipients,
		Title:      senderDisplayName(message.Author, members) + " in " + event.After.Name,
		Body:       previewText(message),
		Data: map[string]string{
			"channelId": event.After.ID,
			"teamCode":  event.TeamCode,
		},
	}

	started := time.Now()
	err = p.sender.Send(ctx, notification)
	p.metrics.ObserveDispatch(time.Since(started))
	if err != nil {
		return OutcomeSuppressed, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dispatch push")
	}
	p.metrics.IncProcessed()
	p.logg.Info(ctx, "push dispatched")
	return OutcomeDispatched, nil
}

func (p *Processor) teamMembers(ctx context.Context, teamCode string) ([]models.TeamMember, error) {
	docs, err := p.store.Query(ctx, models.CollectionUsers, docstore.Filter{Field: "teamCode", Value: teamCode})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query team members")
	}
	return docstore.DecodeAll[models.TeamMember](docs), nil
}

// resolveRecipients selects team member emails eligible for the push: the
// author is always excluded, and for direct channels with a participant list
// that list is authoritative; the hidden mechanism is ignored entirely.
func resolveRecipients(channel *models.ChatChannel, author string, members []models.TeamMember) []string {
	direct := channel.Kind == enums.ChannelKindDirect && len(channel.ParticipantEmails) > 0

	recipients := make([]string, 0, len(members))
	for _, member := range members {
		email := strings.ToLower(strings.TrimSpace(member.Email))
		if email == "" || strings.EqualFold(email, author) {
			continue
		}
		if direct && !containsFold(channel.ParticipantEmails, email) {
			continue
		}
		if !containsFold(recipients, email) {
			recipients = append(recipients, email)
		}
	}
	return recipients
}

// senderDisplayName resolves the author's display name from the member list,
// falling back to the email's local part.
func senderDisplayName(author string, members []models.TeamMember) string {
	for _, member := range members {
		if strings.EqualFold(member.Email, author) && strings.TrimSpace(member.DisplayName) != "" {
			return member.DisplayName
		}
	}
	if idx := strings.Index(author, "@"); idx > 0 {
		return author[:idx]
	}
	return author
}

func previewText(message models.ChatMessage) string {
	text := strings.TrimSpace(message.Text)
	if text == "" && message.AttachmentName != "" {
		text = "Sent " + message.AttachmentName
	}
	if text == "" {
		text = "Sent an attachment"
	}
	if len(text) > messagePreviewLimit {
		cut := messagePreviewLimit
		// Never cut through a multi-byte rune; the provider rejects
		// invalid UTF-8 bodies.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}
