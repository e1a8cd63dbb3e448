package constants

import "time"

// Default values for runtime behaviour; each can be overridden through config
const (
	DefaultPort                = "3001"
	DefaultPreviewTick         = 100 * time.Millisecond
	DefaultAutosaveSpec        = "@every 5m"
	DefaultBackupSpec          = "0 2 * * *"
	DefaultBackupRetentionDays = 7
	DefaultLocale              = "ja"
	DefaultDataDir             = "./data"

	// Preview queue bounds: above PreviewQueueLimit only the newest PreviewQueueKeep survive
	PreviewQueueLimit = 10
	PreviewQueueKeep  = 5
)

// Response and content types
const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeJSON = "application/json"
)

// DefaultContractType is selected when there is no saved state to restore
const DefaultContractType = "consulting"
