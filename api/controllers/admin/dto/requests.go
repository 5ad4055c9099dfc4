package admindto

import "time"

// ExtendRequest carries exactly one of ExpiresAt or ExtendByMinutes.
type ExtendRequest struct {
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	ExtendByMinutes *int       `json:"extendByMinutes,omitempty" validate:"omitempty,min=1,max=43200"`
}

type SweepResult struct {
	Scanned       int      `json:"scanned"`
	Expired       int      `json:"expired"`
	Skipped       int      `json:"skipped"`
	Failed        int      `json:"failed"`
	UnitsRestored int      `json:"unitsRestored"`
	Errors        []string `json:"errors,omitempty"`
}
