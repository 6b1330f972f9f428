package models

import (
	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
)

// TeamMember is the profile document stored per authenticated user. Field
// names are the de facto schema shared with deployed clients; do not rename.
//
// Invariants: at most one member per team carries isOwner, and isOwner
// implies isAdmin. Both are enforced by the identity service, not here.
type TeamMember struct {
	ID               string                 `json:"id" firestore:"id"`
	DisplayName      string                 `json:"displayName" firestore:"displayName"`
	Email            string                 `json:"email" firestore:"email"`
	TeamCode         string                 `json:"teamCode" firestore:"teamCode"`
	IsAdmin          bool                   `json:"isAdmin" firestore:"isAdmin"`
	IsOwner          bool                   `json:"isOwner" firestore:"isOwner"`
	SubscriptionTier enums.SubscriptionTier `json:"subscriptionTier" firestore:"subscriptionTier"`
	AssignedCampus   string                 `json:"assignedCampus" firestore:"assignedCampus"`

	CanEditGear       bool `json:"canEditGear" firestore:"canEditGear"`
	CanEditPatches    bool `json:"canEditPatches" firestore:"canEditPatches"`
	CanEditTraining   bool `json:"canEditTraining" firestore:"canEditTraining"`
	CanEditChecklists bool `json:"canEditChecklists" firestore:"canEditChecklists"`
	CanEditIdeas      bool `json:"canEditIdeas" firestore:"canEditIdeas"`
	CanEditChat       bool `json:"canEditChat" firestore:"canEditChat"`

	CanSeeGear       bool `json:"canSeeGear" firestore:"canSeeGear"`
	CanSeePatches    bool `json:"canSeePatches" firestore:"canSeePatches"`
	CanSeeTraining   bool `json:"canSeeTraining" firestore:"canSeeTraining"`
	CanSeeChecklists bool `json:"canSeeChecklists" firestore:"canSeeChecklists"`
	CanSeeIdeas      bool `json:"canSeeIdeas" firestore:"canSeeIdeas"`
	CanSeeChat       bool `json:"canSeeChat" firestore:"canSeeChat"`
}
