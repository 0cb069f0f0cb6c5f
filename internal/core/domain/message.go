package domain

// Channel names the chat transport a message arrived on
type Channel string

const (
	// ChannelHTTP is for messages posted to the HTTP API
	ChannelHTTP Channel = "http"

	// ChannelWhatsApp is for messages received from WhatsApp
	ChannelWhatsApp Channel = "whatsapp"

	// ChannelOneBot is for messages received from a OneBot (QQ) implementation
	ChannelOneBot Channel = "onebot"
)

// IncomingMessage represents a chat message handed to the bot by a transport
type IncomingMessage struct {
	Channel    Channel `json:"channel"`
	ChatID     string  `json:"chat_id"`
	SenderID   string  `json:"sender_id"`
	SenderName string  `json:"sender_name"`
	Content    string  `json:"content"`
}

// Sender returns the most readable identifier for the sender
func (m IncomingMessage) Sender() string {
	if m.SenderName != "" {
		return m.SenderName
	}
	if m.SenderID != "" {
		return m.SenderID
	}
	return "unknown"
}

// Reply is the plain text answer sent back for a message
type Reply struct {
	Text string `json:"text"`
}
