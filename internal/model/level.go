package model

import (
	"encoding/json"
	"time"
)

// Level is a stored grid level payload. Data is opaque to the server.
type Level struct {
	Name      string
	Owner     string // registered identifier of the author, may be empty
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}
