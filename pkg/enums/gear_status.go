package enums

// GearStatus tracks the operational state of an inventory item. The zero
// value is a legitimate "unknown" state and is the default for new items.
type GearStatus string

const (
	GearStatusUnknown      GearStatus = ""
	GearStatusWorking      GearStatus = "Working"
	GearStatusNeedsRepair  GearStatus = "Needs Repair"
	GearStatusOutForRepair GearStatus = "Out for Repair"
	GearStatusRetired      GearStatus = "Retired"
)

var validGearStatuses = []GearStatus{
	GearStatusUnknown,
	GearStatusWorking,
	GearStatusNeedsRepair,
	GearStatusOutForRepair,
	GearStatusRetired,
}

// String implements fmt.Stringer.
func (g GearStatus) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GearStatus.
func (g GearStatus) IsValid() bool {
	for _, candidate := range validGearStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}
