package models

// Broadcast is the reserved recipient visible to every viewer.
const Broadcast = "Todos"

// TimeLayout is the wall-clock format stored in Message.Time.
const TimeLayout = "15:04:05"

// MessageType enumerates the kinds of chat messages.
type MessageType string

const (
	TypeMessage        MessageType = "message"
	TypePrivateMessage MessageType = "private_message"
	TypeStatus         MessageType = "status"
)

// Message represents a chat message.
type Message struct {
	ID   string      `json:"id" msgpack:"id"`
	From string      `json:"from" msgpack:"from"`
	To   string      `json:"to" msgpack:"to"`
	Text string      `json:"text" msgpack:"text"`
	Type MessageType `json:"type" msgpack:"type"`
	Time string      `json:"time" msgpack:"time"` // HH:mm:ss at write
}

// VisibleTo reports whether viewer may read the message.
func (m Message) VisibleTo(viewer string) bool {
	return m.From == viewer || m.To == viewer || m.To == Broadcast
}

// LastN returns the trailing n messages, or all of them when n <= 0.
func LastN(msgs []Message, n int) []Message {
	if n <= 0 || n >= len(msgs) {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
