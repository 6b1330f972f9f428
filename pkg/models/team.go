package models

import "time"

// Team is keyed by its short code; the code doubles as the document id.
// Teams are created lazily and never deleted.
type Team struct {
	Code       string    `json:"code" firestore:"code"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
	CreatedBy  string    `json:"createdBy" firestore:"createdBy"`
	IsActive   bool      `json:"isActive" firestore:"isActive"`
	OwnerID    string    `json:"ownerId,omitempty" firestore:"ownerId,omitempty"`
	OwnerEmail string    `json:"ownerEmail,omitempty" firestore:"ownerEmail,omitempty"`
}
