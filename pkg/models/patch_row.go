package models

import (
	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
)

// PatchRow is an A/V patch record. Position defines stable display order
// within a (teamCode, category) group and is rewritten contiguously from 0
// on every reorder.
type PatchRow struct {
	ID           string              `json:"id" firestore:"id"`
	Name         string              `json:"name" firestore:"name"`
	Input        string              `json:"input" firestore:"input"`
	Output       string              `json:"output" firestore:"output"`
	TeamCode     string              `json:"teamCode" firestore:"teamCode"`
	Category     enums.PatchCategory `json:"category" firestore:"category"`
	Campus       string              `json:"campus" firestore:"campus"`
	Room         string              `json:"room" firestore:"room"`
	ChannelCount *int                `json:"channelCount,omitempty" firestore:"channelCount,omitempty"`
	Position     int                 `json:"position" firestore:"position"`
}
