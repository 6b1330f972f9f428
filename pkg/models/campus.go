package models

// Location is a team-scoped campus/site record.
type Location struct {
	ID       string `json:"id" firestore:"id"`
	Name     string `json:"name" firestore:"name"`
	TeamCode string `json:"teamCode" firestore:"teamCode"`
}

// Room is a team-scoped room within a campus.
type Room struct {
	ID       string `json:"id" firestore:"id"`
	Name     string `json:"name" firestore:"name"`
	TeamCode string `json:"teamCode" firestore:"teamCode"`
	Campus   string `json:"campus,omitempty" firestore:"campus,omitempty"`
}
