package request

import "encoding/json"

// RegisterRequest is the request body for registering an identifier for deletion checks
type RegisterRequest struct {
	Key string `json:"key"`
}

// SaveLevelRequest is the request body for creating or replacing a level
type SaveLevelRequest struct {
	Owner string          `json:"owner,omitempty"`
	Data  json.RawMessage `json:"data"`
}
