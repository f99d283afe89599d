package eventbus

import "time"

// Security audit topics.
const (
	EventLogin       = "auth:login"
	EventLogout      = "auth:logout"
	EventBanned      = "throttle:banned"
	EventRateLimited = "throttle:ratelimited"
)

// AuthEventData describes a login or logout.
type AuthEventData struct {
	ClientID uint      `json:"client_id"`
	Group    string    `json:"group"`
	Username string    `json:"username,omitempty"`
	IP       string    `json:"ip,omitempty"`
	At       time.Time `json:"at"`
}

// ThrottleEventData describes a source moved into a penalty list.
type ThrottleEventData struct {
	IP     string    `json:"ip"`
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}
