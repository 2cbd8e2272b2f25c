package chat

import "time"

// Session is one persisted conversation thread. The persistence
// service assigns ID and CreatedAt; LatestMessagePreview follows the
// most recently appended message and exists for list display.
type Session struct {
	ID                   string    `json:"id"`
	LatestMessagePreview string    `json:"latestMessagePreview"`
	CreatedAt            time.Time `json:"createdAt"`
}
