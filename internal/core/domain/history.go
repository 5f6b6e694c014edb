package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionType classifies an audit log entry.
type ActionType string

const (
	ActionAdded   ActionType = "added"
	ActionUpdated ActionType = "updated"
	ActionDeleted ActionType = "deleted"
)

// HistoryEntry is one append-only audit record. AdID is nil once the ad it
// refers to has been deleted; the denormalized snapshot fields keep the
// entry meaningful on its own.
type HistoryEntry struct {
	ID         uuid.UUID
	AdID       *uuid.UUID
	ActionType ActionType
	AdTitle    string
	AdDesc     string
	AdImage    string
	Clicks     int64
	CreatedAt  time.Time
}

// HistoryFromAd builds an audit entry snapshotting the given ad. The caller
// is responsible for sequencing: snapshots are taken after a create/update
// and before a delete.
func HistoryFromAd(ad Ad, action ActionType) HistoryEntry {
	id := ad.ID
	return HistoryEntry{
		ID:         uuid.New(),
		AdID:       &id,
		ActionType: action,
		AdTitle:    ad.Title,
		AdDesc:     ad.Description,
		AdImage:    ad.ImageURL,
		Clicks:     ad.Clicks,
	}
}
