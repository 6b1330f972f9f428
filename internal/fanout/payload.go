package fanout

import (
	"github.com/crewdeck-app/crewdeck-backend/pkg/models"
)

// ChannelEventPayload is the wire shape of a channel document update event.
// Before is nil for a freshly created channel; After is nil when the channel
// was deleted.
type ChannelEventPayload struct {
	EventID   string              `json:"eventId"`
	TeamCode  string              `json:"teamCode"`
	ChannelID string              `json:"channelId"`
	Before    *models.ChatChannel `json:"before,omitempty"`
	After     *models.ChatChannel `json:"after,omitempty"`
}
