// Package permissions is the single source of truth for capability checks.
// Every caller derives effective rights through these functions; capability
// logic must not be re-implemented at call sites.
package permissions

import (
	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

// CanEdit reports whether the member may edit the feature. Admins and owners
// always can; everyone else needs the per-user flag.
func CanEdit(m *models.TeamMember, f enums.Feature) bool {
	if m == nil {
		return false
	}
	if m.IsAdmin || m.IsOwner {
		return true
	}
	return editFlag(m, f)
}

// CanSee reports whether the member may view the feature. The per-user see
// flags default to true at profile creation, so a plain member sees
// everything unless an admin toggled a flag off.
func CanSee(m *models.TeamMember, f enums.Feature) bool {
	if m == nil {
		return false
	}
	if m.IsAdmin || m.IsOwner {
		return true
	}
	return seeFlag(m, f)
}

// RoleOf derives the member's effective role from role flags and tier.
func RoleOf(m *models.TeamMember) enums.Role {
	switch {
	case m == nil:
		return enums.RoleFree
	case m.IsAdmin:
		return enums.RoleAdmin
	case m.SubscriptionTier == enums.SubscriptionTierPremium:
		return enums.RolePremium
	case m.SubscriptionTier == enums.SubscriptionTierBasic:
		return enums.RoleBasic
	default:
		return enums.RoleFree
	}
}

// HasCampusRoomFeatures reports whether campus/room scoping is available to
// the member.
func HasCampusRoomFeatures(m *models.TeamMember) bool {
	role := RoleOf(m)
	return role == enums.RoleAdmin || role == enums.RolePremium
}

func editFlag(m *models.TeamMember, f enums.Feature) bool {
	switch f {
	case enums.FeatureGear:
		return m.CanEditGear
	case enums.FeaturePatches:
		return m.CanEditPatches
	case enums.FeatureTraining:
		return m.CanEditTraining
	case enums.FeatureChecklists:
		return m.CanEditChecklists
	case enums.FeatureIdeas:
		return m.CanEditIdeas
	case enums.FeatureChat:
		return m.CanEditChat
	default:
		return false
	}
}

func seeFlag(m *models.TeamMember, f enums.Feature) bool {
	switch f {
	case enums.FeatureGear:
		return m.CanSeeGear
	case enums.FeaturePatches:
		return m.CanSeePatches
	case enums.FeatureTraining:
		return m.CanSeeTraining
	case enums.FeatureChecklists:
		return m.CanSeeChecklists
	case enums.FeatureIdeas:
		return m.CanSeeIdeas
	case enums.FeatureChat:
		return m.CanSeeChat
	default:
		return false
	}
}

// SetEditFlag writes the per-user edit flag for the feature. Permission
// toggles dispatch through the Feature enum so field selection cannot drift
// from the check logic above.
func SetEditFlag(m *models.TeamMember, f enums.Feature, value bool) {
	if m == nil {
		return
	}
	switch f {
	case enums.FeatureGear:
		m.CanEditGear = value
	case enums.FeaturePatches:
		m.CanEditPatches = value
	case enums.FeatureTraining:
		m.CanEditTraining = value
	case enums.FeatureChecklists:
		m.CanEditChecklists = value
	case enums.FeatureIdeas:
		m.CanEditIdeas = value
	case enums.FeatureChat:
		m.CanEditChat = value
	}
}

// SetSeeFlag writes the per-user visibility flag for the feature.
func SetSeeFlag(m *models.TeamMember, f enums.Feature, value bool) {
	if m == nil {
		return
	}
	switch f {
	case enums.FeatureGear:
		m.CanSeeGear = value
	case enums.FeaturePatches:
		m.CanSeePatches = value
	case enums.FeatureTraining:
		m.CanSeeTraining = value
	case enums.FeatureChecklists:
		m.CanSeeChecklists = value
	case enums.FeatureIdeas:
		m.CanSeeIdeas = value
	case enums.FeatureChat:
		m.CanSeeChat = value
	}
}

// GrantAllEdit flips every edit flag on; used by the admin self-heal path.
func GrantAllEdit(m *models.TeamMember) {
	for _, f := range enums.Features {
		SetEditFlag(m, f, true)
	}
}

// GrantAllSee flips every visibility flag on; used for default profiles.
func GrantAllSee(m *models.TeamMember) {
	for _, f := range enums.Features {
		SetSeeFlag(m, f, true)
	}
}
