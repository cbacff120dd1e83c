package models

import "time"

// Log is the document shape written by the async zap sink
type Log struct {
	Message      string    `bson:"message"`
	Caller       string    `bson:"caller"`
	CompanyID    string    `bson:"company_id,omitempty"`
	LogLevelId   int       `bson:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc"`
}
