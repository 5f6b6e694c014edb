package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdType distinguishes the two placements the ad manager supports.
type AdType string

const (
	TypeBanner       AdType = "banner"
	TypeInterstitial AdType = "interstitial"
)

// Status is the delivery state of an ad.
type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

// PauseReason records why a paused ad is paused. An active ad always has
// ReasonNone; a manual pause is never cleared automatically.
type PauseReason string

const (
	ReasonNone   PauseReason = "none"
	ReasonManual PauseReason = "manual"
	ReasonLimits PauseReason = "limits"
)

// Ad represents an advertising campaign. Clicks and Impressions only ever
// grow and are mutated exclusively through the repository's atomic
// increment. MaxClicks and MaxImpressions are nil when unlimited.
type Ad struct {
	ID             uuid.UUID
	Type           AdType
	Title          string
	Description    string
	ImageURL       string
	RedirectURL    string
	Status         Status
	PauseReason    PauseReason
	Clicks         int64
	Impressions    int64
	MaxClicks      *int64
	MaxImpressions *int64
	StartDate      time.Time
	EndDate        time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CounterKind selects which usage counter an event increments.
type CounterKind string

const (
	CounterClicks      CounterKind = "clicks"
	CounterImpressions CounterKind = "impressions"
)

// Valid reports whether k names a known counter.
func (k CounterKind) Valid() bool {
	return k == CounterClicks || k == CounterImpressions
}
