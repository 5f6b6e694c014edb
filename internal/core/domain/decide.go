package domain

// Decision is the target state computed by Decide. Changed is false when the
// ad should stay exactly as it is.
type Decision struct {
	Changed bool
	Status  Status
	Reason  PauseReason
}

// limitReached treats a nil limit as unreachable.
func limitReached(value int64, limit *int64) bool {
	return limit != nil && value >= *limit
}

// Decide computes the target status for an ad snapshot. It is the single
// source of truth for the transition policy:
//
//   - an active ad that has reached any configured limit pauses with
//     reason "limits";
//   - a limits-paused ad whose configured limits are all unmet (or removed)
//     reactivates;
//   - a manually paused ad never changes here; only an explicit operator
//     resume clears it.
//
// The function is pure: same snapshot in, same decision out.
func Decide(ad Ad) Decision {
	switch {
	case ad.Status == StatusActive:
		if limitReached(ad.Clicks, ad.MaxClicks) || limitReached(ad.Impressions, ad.MaxImpressions) {
			return Decision{Changed: true, Status: StatusPaused, Reason: ReasonLimits}
		}
	case ad.Status == StatusPaused && ad.PauseReason == ReasonLimits:
		if !limitReached(ad.Clicks, ad.MaxClicks) && !limitReached(ad.Impressions, ad.MaxImpressions) {
			return Decision{Changed: true, Status: StatusActive, Reason: ReasonNone}
		}
	}
	return Decision{Changed: false, Status: ad.Status, Reason: ad.PauseReason}
}
