package log

import (
	"time"
)

// Log represents an audited HTTP request/response pair.
type Log struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Method          string    `gorm:"type:varchar(10);not null" json:"method"`
	URL             string    `gorm:"type:text;not null" json:"url"`
	ActorID         *uint     `gorm:"index" json:"actorId,omitempty"`
	RequestBody     string    `gorm:"type:text" json:"requestBody"`
	RequestHeaders  string    `gorm:"type:text" json:"requestHeaders"`
	ResponseBody    string    `gorm:"type:text" json:"responseBody"`
	ResponseHeaders string    `gorm:"type:text" json:"responseHeaders"`
	StatusCode      int       `gorm:"type:int" json:"statusCode"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
