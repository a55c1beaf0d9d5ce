// Package audit keeps a trail of security-relevant activity: login
// attempts and order placements.
package audit

import "time"

const (
	ActionLogin       = "login"
	ActionOrderPlaced = "order_placed"
)

type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"` // empty when the user was never resolved
	UserEmail string    `json:"userEmail"`
	UserName  string    `json:"userName"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	Details   string    `json:"details"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	UserID        string
	EmailContains string
	Success       *bool
	From          time.Time
	To            time.Time
}

type Stats struct {
	TotalLogins  int `json:"totalLogins"`
	FailedLogins int `json:"failedLogins"`
	LoginsToday  int `json:"loginsToday"`
	LoginsWeek   int `json:"loginsWeek"`
	LoginsMonth  int `json:"loginsMonth"`
	ActiveUsers  int `json:"activeUsers"`
}
