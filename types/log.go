package types

import "time"

// LogEntry represents an API audit entry waiting to be stored.
type LogEntry struct {
	Method          string
	URL             string
	ActorID         *uint
	RequestBody     string
	ResponseBody    string
	RequestHeaders  string
	ResponseHeaders string
	StatusCode      int
	CreatedAt       time.Time
}
