package models

// Participant represents a chat-room member kept alive by heartbeats.
type Participant struct {
	Name       string `json:"name" msgpack:"name"`
	LastStatus int64  `json:"lastStatus" msgpack:"last_status"` // Unix ms of the last heartbeat
}
