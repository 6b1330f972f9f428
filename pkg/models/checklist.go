package models

import "time"

// ChecklistTemplate is a team-scoped checklist with embedded items.
type ChecklistTemplate struct {
	ID        string          `json:"id" firestore:"id"`
	Name      string          `json:"name" firestore:"name"`
	TeamCode  string          `json:"teamCode" firestore:"teamCode"`
	Campus    string          `json:"campus,omitempty" firestore:"campus,omitempty"`
	Items     []ChecklistItem `json:"items" firestore:"items"`
	CreatedBy string          `json:"createdBy" firestore:"createdBy"`
	CreatedAt time.Time       `json:"createdAt" firestore:"createdAt"`
}

// ChecklistItem carries its own completion state.
type ChecklistItem struct {
	ID          string     `json:"id" firestore:"id"`
	Text        string     `json:"text" firestore:"text"`
	CompletedAt *time.Time `json:"completedAt,omitempty" firestore:"completedAt,omitempty"`
	CompletedBy string     `json:"completedBy,omitempty" firestore:"completedBy,omitempty"`
}
