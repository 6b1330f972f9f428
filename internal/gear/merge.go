package gear

import (
	"context"
	"strings"

	"github.com/crewdeck-app/crewdeck-backend/internal/batch"
	pkgerrors "github.com/crewdeck-app/crewdeck-backend/pkg/errors"
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

const notesSeparator = " | "

// MergeReport summarizes a duplicate merge run.
type MergeReport struct {
	Groups  int `json:"groups"`
	Deleted int `json:"deleted"`
}

// MergePlan is the computed outcome of duplicate grouping before any write.
type MergePlan struct {
	Updates   []models.GearItem
	DeleteIDs []string
}

// Report derives the summary counts from a plan.
func (p MergePlan) Report() MergeReport {
	return MergeReport{Groups: len(p.Updates), Deleted: len(p.DeleteIDs)}
}

func (s *service) MergeDuplicates(ctx context.Context, actor *models.TeamMember, dryRun bool) (MergeReport, error) {
	if err := requireEditor(actor); err != nil {
		return MergeReport{}, err
	}
	ctx = s.logg.WithTeamCode(ctx, actor.TeamCode)

	items, err := s.teamGear(ctx, actor.TeamCode)
	if err != nil {
		return MergeReport{}, err
	}

	plan := PlanMerge(items)
	if dryRun || len(plan.Updates) == 0 {
		return plan.Report(), nil
	}

	ops := make([]batch.Op, 0, len(plan.Updates)+len(plan.DeleteIDs))
	for _, item := range plan.Updates {
		ops = append(ops, batch.SetOp(models.CollectionGear, item.ID, item))
	}
	for _, id := range plan.DeleteIDs {
		ops = append(ops, batch.DeleteOp(models.CollectionGear, id))
	}
	if _, err := s.mutator.Commit(ctx, ops); err != nil {
		return MergeReport{}, pkgerrors.Wrap(pkgerrors.CodePartialWrite, err, "commit gear merge")
	}
	s.logg.Info(ctx, "duplicate gear merged")
	return plan.Report(), nil
}

// PlanMerge groups items by the composite natural key lowercase(trim(name)) +
// "|" + lowercase(trim(serialNumber)). Items with an empty name or serial are
// never duplicates of anything. Within a group the first item in input order
// is the base; every other item folds into it field by field and is deleted.
// An input with no duplicate groups yields an empty plan, which is success.
func PlanMerge(items []models.GearItem) MergePlan {
	groups := make(map[string][]models.GearItem)
	order := make([]string, 0)
	for _, item := range items {
		key, ok := mergeKey(item)
		if !ok {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], item)
	}

	var plan MergePlan
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		base := group[0]
		for _, other := range group[1:] {
			foldInto(&base, other)
			plan.DeleteIDs = append(plan.DeleteIDs, other.ID)
		}
		plan.Updates = append(plan.Updates, base)
	}
	return plan
}

func mergeKey(item models.GearItem) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(item.Name))
	serial := strings.ToLower(strings.TrimSpace(item.SerialNumber))
	if name == "" || serial == "" {
		return "", false
	}
	return name + "|" + serial, true
}

// foldInto applies fill-if-empty precedence: the base keeps every field it
// already has a value for; the other item only supplies gaps. Maintenance
// notes are the one concatenating field.
func foldInto(base *models.GearItem, other models.GearItem) {
	fillString(&base.Category, other.Category)
	fillString(&base.Location, other.Location)
	fillString(&base.Campus, other.Campus)
	fillString(&base.AssetID, other.AssetID)
	fillString(&base.ImageURL, other.ImageURL)
	fillString(&base.CreatedBy, other.CreatedBy)
	if strings.TrimSpace(base.Status.String()) == "" {
		base.Status = other.Status
	}

	if base.PurchaseDate == nil {
		base.PurchaseDate = other.PurchaseDate
	}
	if base.InstallDate == nil {
		base.InstallDate = other.InstallDate
	}
	if base.MaintenanceDate == nil {
		base.MaintenanceDate = other.MaintenanceDate
	}
	if base.PurchaseCost == nil {
		base.PurchaseCost = other.PurchaseCost
	}
	if base.ReplacementCost == nil {
		base.ReplacementCost = other.ReplacementCost
	}

	baseNotes := strings.TrimSpace(base.MaintenanceNotes)
	otherNotes := strings.TrimSpace(other.MaintenanceNotes)
	switch {
	case baseNotes == "":
		base.MaintenanceNotes = otherNotes
	case otherNotes == "" || otherNotes == baseNotes:
		base.MaintenanceNotes = baseNotes
	default:
		base.MaintenanceNotes = baseNotes + notesSeparator + otherNotes
	}
}

func fillString(dst *string, src string) {
	if strings.TrimSpace(*dst) == "" && strings.TrimSpace(src) != "" {
		*dst = src
	}
}
