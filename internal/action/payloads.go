package action

import "time"

// MediaType tags a locally captured file awaiting upload.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// LocalMedia references a file still on the device.
type LocalMedia struct {
	URI  string    `json:"uri" validate:"required"`
	Type MediaType `json:"type" validate:"required,oneof=image video audio"`
}

// MediaRef is the stable remote reference returned by the upload API.
type MediaRef struct {
	URL      string  `json:"url"`
	PublicID string  `json:"publicId"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Bytes    int64   `json:"bytes,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Location is a GPS fix captured with a report or alert.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Address   string  `json:"address,omitempty"`
}

// SiteRef is the state/coalfield/mine scoping triple every report document
// must carry. Missing IDs are backfilled from the user profile at replay.
type SiteRef struct {
	StateID       string `json:"stateId,omitempty"`
	StateName     string `json:"stateName,omitempty"`
	CoalfieldID   string `json:"coalfieldId,omitempty"`
	CoalfieldName string `json:"coalfieldName,omitempty"`
	MineID        string `json:"mineId,omitempty"`
	MineName      string `json:"mineName,omitempty"`
}

// ChecklistItem is one entry of a worker's daily safety checklist.
type ChecklistItem struct {
	ID        string `json:"id" validate:"required"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Priority  string `json:"priority,omitempty"`
	Category  string `json:"category,omitempty"`
}

// ChecklistBulkUpdatePayload replaces a full day's checklist for one user.
type ChecklistBulkUpdatePayload struct {
	UserID    string          `json:"userId" validate:"required"`
	Date      string          `json:"date" validate:"required"`
	Checklist []ChecklistItem `json:"checklist"`
}

// ChecklistItemTogglePayload marks or unmarks a single checklist item.
type ChecklistItemTogglePayload struct {
	UserID string `json:"userId" validate:"required"`
	ItemID string `json:"itemId" validate:"required"`
	Marked bool   `json:"marked"`
	// Date is optional; an empty value means "today" at replay time.
	Date string `json:"date,omitempty"`
}

// ProfileUpdatePayload merge-patches fields into the user's profile.
type ProfileUpdatePayload struct {
	UserID  string         `json:"userId" validate:"required"`
	Updates map[string]any `json:"updates" validate:"required,min=1"`
}

// HazardReport carries the textual fields of a report; media references are
// attached by the replay routine after upload.
type HazardReport struct {
	UserID             string    `json:"userId" validate:"required"`
	ReporterName       string    `json:"reporterName,omitempty"`
	Description        string    `json:"description" validate:"required"`
	Category           string    `json:"category,omitempty" validate:"omitempty,oneof=equipment environmental procedural structural chemical other"`
	Severity           string    `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Priority           string    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Status             string    `json:"status,omitempty"`
	Location           *Location `json:"location,omitempty"`
	Site               SiteRef   `json:"site,omitempty"`
	VoiceTranscription string    `json:"voiceTranscription,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	Tags               []string  `json:"tags,omitempty"`
}

// HazardReportSubmitPayload queues a report plus its not-yet-uploaded media.
type HazardReportSubmitPayload struct {
	Report     HazardReport `json:"report" validate:"required"`
	MediaFiles []LocalMedia `json:"mediaFiles,omitempty" validate:"dive"`
}

// EmergencyAlert is an SOS record. ClientToken is generated at enqueue time
// so the backend can deduplicate replayed creations if it chooses to.
type EmergencyAlert struct {
	UserID      string    `json:"userId" validate:"required"`
	UserName    string    `json:"userName,omitempty"`
	UserRole    string    `json:"userRole,omitempty"`
	Type        string    `json:"type" validate:"required,oneof=emergency_sos medical fire evacuation gas_leak"`
	Location    *Location `json:"location,omitempty"`
	Site        SiteRef   `json:"site,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	ClientToken string    `json:"clientToken,omitempty"`
}

// EmergencySosCreatePayload queues the creation of an emergency alert.
type EmergencySosCreatePayload struct {
	Alert EmergencyAlert `json:"alert" validate:"required"`
}

// Acknowledger identifies who acknowledged an alert.
type Acknowledger struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// EmergencyAckPayload queues the acknowledgement of an existing alert.
type EmergencyAckPayload struct {
	AlertID      string        `json:"alertId" validate:"required"`
	Acknowledger *Acknowledger `json:"acknowledger,omitempty"`
}
