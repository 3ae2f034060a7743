package project

import "time"

// Collection holds project documents keyed by project id.
const Collection = "projects"

// Document field names.
const (
	FieldUserID          = "userId"
	FieldLastTrackedTime = "lastTrackedTime"
)

// Project is a billable unit sessions are tracked against.
type Project struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	HourlyRate      float64    `json:"hourlyRate"`
	LastTrackedTime *time.Time `json:"lastTrackedTime"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Earnings returns what seconds of billable work is worth at the hourly rate.
func (p *Project) Earnings(seconds int64) float64 {
	if p == nil || p.HourlyRate <= 0 || seconds <= 0 {
		return 0
	}
	return float64(seconds) / 3600 * p.HourlyRate
}
