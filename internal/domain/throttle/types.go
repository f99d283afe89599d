package throttle

// Status is the classification outcome for one request.
type Status int

const (
	StatusAllowed Status = iota
	StatusWhitelisted
	StatusBlacklisted
	StatusRateLimited
	StatusBanned
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusAllowed:
		return "allowed"
	case StatusWhitelisted:
		return "whitelisted"
	case StatusBlacklisted:
		return "blacklisted"
	case StatusRateLimited:
		return "ratelimited"
	case StatusBanned:
		return "banned"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Blocked reports whether the status should stop the request.
func (s Status) Blocked() bool {
	switch s {
	case StatusAllowed, StatusWhitelisted:
		return false
	default:
		return true
	}
}

// RequestRecord is the raw material a request is fingerprinted from. Not
// persisted.
type RequestRecord struct {
	IP      string
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
}
