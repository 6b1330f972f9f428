package models

import (
	"time"

	"github.com/crewdeck-app/crewdeck-backend/pkg/enums"
)

// GearItem is an inventory record. TeamCode is immutable after creation.
// CreatedBy scopes visibility for free-tier non-admin viewers.
type GearItem struct {
	ID               string           `json:"id" firestore:"id"`
	Name             string           `json:"name" firestore:"name"`
	Category         string           `json:"category" firestore:"category"`
	Status           enums.GearStatus `json:"status" firestore:"status"`
	TeamCode         string           `json:"teamCode" firestore:"teamCode"`
	PurchaseDate     *time.Time       `json:"purchaseDate,omitempty" firestore:"purchaseDate,omitempty"`
	InstallDate      *time.Time       `json:"installDate,omitempty" firestore:"installDate,omitempty"`
	MaintenanceDate  *time.Time       `json:"maintenanceDate,omitempty" firestore:"maintenanceDate,omitempty"`
	PurchaseCost     *float64         `json:"purchaseCost,omitempty" firestore:"purchaseCost,omitempty"`
	ReplacementCost  *float64         `json:"replacementCost,omitempty" firestore:"replacementCost,omitempty"`
	Location         string           `json:"location" firestore:"location"`
	SerialNumber     string           `json:"serialNumber" firestore:"serialNumber"`
	Campus           string           `json:"campus" firestore:"campus"`
	AssetID          string           `json:"assetId" firestore:"assetId"`
	MaintenanceNotes string           `json:"maintenanceNotes" firestore:"maintenanceNotes"`
	ImageURL         string           `json:"imageURL,omitempty" firestore:"imageURL,omitempty"`
	CreatedBy        string           `json:"createdBy,omitempty" firestore:"createdBy,omitempty"`
}
