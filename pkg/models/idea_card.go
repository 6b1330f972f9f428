package models

import "time"

// IdeaCard is a team-scoped ideas-board entry. LikedBy follows set
// semantics: it never contains duplicate emails and like-toggling is
// idempotent.
type IdeaCard struct {
	ID          string    `json:"id" firestore:"id"`
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description" firestore:"description"`
	TeamCode    string    `json:"teamCode" firestore:"teamCode"`
	CreatedBy   string    `json:"createdBy" firestore:"createdBy"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	LikedBy     []string  `json:"likedBy,omitempty" firestore:"likedBy,omitempty"`
}
