package models

import "time"

// TrainingLesson is a team-scoped training video entry. CompletedBy follows
// the same set semantics as IdeaCard.LikedBy.
type TrainingLesson struct {
	ID          string    `json:"id" firestore:"id"`
	Title       string    `json:"title" firestore:"title"`
	VideoURL    string    `json:"videoURL" firestore:"videoURL"`
	TeamCode    string    `json:"teamCode" firestore:"teamCode"`
	Category    string    `json:"category,omitempty" firestore:"category,omitempty"`
	CreatedBy   string    `json:"createdBy" firestore:"createdBy"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	CompletedBy []string  `json:"completedBy,omitempty" firestore:"completedBy,omitempty"`
}
