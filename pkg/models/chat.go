package models

import (
	"time"

	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
)

// ChatChannel is a messaging room. Messages are embedded; there is no
// per-message document identity at the storage layer, so every message
// mutation rewrites the whole array.
//
// ReadOnlyUserEmails is a deny-list of users who cannot post even when the
// channel is not globally read-only. HiddenUserEmails is a deny-list for
// visibility. For direct channels ParticipantEmails is the authoritative
// recipient set and overrides the hidden mechanism entirely.
type ChatChannel struct {
	ID                 string            `json:"id" firestore:"id"`
	Name               string            `json:"name" firestore:"name"`
	TeamCode           string            `json:"teamCode" firestore:"teamCode"`
	Position           int               `json:"position" firestore:"position"`
	IsReadOnly         bool              `json:"isReadOnly" firestore:"isReadOnly"`
	IsHidden           bool              `json:"isHidden" firestore:"isHidden"`
	ReadOnlyUserEmails []string          `json:"readOnlyUserEmails,omitempty" firestore:"readOnlyUserEmails,omitempty"`
	HiddenUserEmails   []string          `json:"hiddenUserEmails,omitempty" firestore:"hiddenUserEmails,omitempty"`
	Messages           []ChatMessage     `json:"messages" firestore:"messages"`
	Kind               enums.ChannelKind `json:"kind" firestore:"kind"`
	ParticipantEmails  []string          `json:"participantEmails,omitempty" firestore:"participantEmails,omitempty"`
	LastMessageAt      *time.Time        `json:"lastMessageAt,omitempty" firestore:"lastMessageAt,omitempty"`
}

// ChatMessage is embedded in ChatChannel. Author is immutable; EditedAt is
// set only by the original author or an admin.
type ChatMessage struct {
	ID             string               `json:"id" firestore:"id"`
	Author         string               `json:"author" firestore:"author"`
	Text           string               `json:"text" firestore:"text"`
	Timestamp      time.Time            `json:"timestamp" firestore:"timestamp"`
	EditedAt       *time.Time           `json:"editedAt,omitempty" firestore:"editedAt,omitempty"`
	AttachmentURL  string               `json:"attachmentURL,omitempty" firestore:"attachmentURL,omitempty"`
	AttachmentName string               `json:"attachmentName,omitempty" firestore:"attachmentName,omitempty"`
	AttachmentKind enums.AttachmentKind `json:"attachmentKind,omitempty" firestore:"attachmentKind,omitempty"`
}
