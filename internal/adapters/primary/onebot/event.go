package onebot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// rawEvent covers both pushed events and API responses
type rawEvent struct {
	PostType      string          `json:"post_type"`
	MessageType   string          `json:"message_type"`
	MetaEventType string          `json:"meta_event_type"`
	MessageID     json.RawMessage `json:"message_id"`
	UserID        json.RawMessage `json:"user_id"`
	GroupID       json.RawMessage `json:"group_id"`
	SelfID        json.RawMessage `json:"self_id"`
	RawMessage    string          `json:"raw_message"`
	Message       json.RawMessage `json:"message"`
	Sender        sender          `json:"sender"`
	Echo          string          `json:"echo"`
	Status        string          `json:"status"`
	RetCode       int             `json:"retcode"`
	Wording       string          `json:"wording"`
}

type sender struct {
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
}

// name prefers the group card over the nickname
func (s sender) name() string {
	if s.Card != "" {
		return s.Card
	}
	return s.Nickname
}

type segment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type apiRequest struct {
	Action string `json:"action"`
	Params any    `json:"params"`
	Echo   string `json:"echo,omitempty"`
}

// parseID reads an id sent either as a number or as a numeric string
func parseID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseInt(s, 10, 64)
	}
	return 0, fmt.Errorf("cannot parse id: %s", string(raw))
}

// messageText extracts the plain text of a message, which is either a
// string or an array of segments. Non-text segments are dropped.
func messageText(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var segments []segment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return fallback
	}

	var sb strings.Builder
	for _, seg := range segments {
		if seg.Type != "text" {
			continue
		}
		if t, ok := seg.Data["text"].(string); ok {
			sb.WriteString(t)
		}
	}
	return sb.String()
}

// chatID builds the transport chat id used in replies
func chatID(messageType string, groupID, userID int64) string {
	if messageType == "group" {
		return "group:" + strconv.FormatInt(groupID, 10)
	}
	return "private:" + strconv.FormatInt(userID, 10)
}

// sendRequest builds the OneBot action that posts text to chat,
// quoting replyTo when it is set
func sendRequest(chat, text, replyTo string) (string, map[string]any, error) {
	var action, idKey, rawID string
	if rest, ok := strings.CutPrefix(chat, "group:"); ok {
		action, idKey, rawID = "send_group_msg", "group_id", rest
	} else if rest, ok := strings.CutPrefix(chat, "private:"); ok {
		action, idKey, rawID = "send_private_msg", "user_id", rest
	} else {
		return "", nil, fmt.Errorf("unknown chat id %q", chat)
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", nil, fmt.Errorf("invalid %s in chat id %q", idKey, chat)
	}

	var segments []segment
	if replyTo != "" {
		segments = append(segments, segment{Type: "reply", Data: map[string]any{"id": replyTo}})
	}
	segments = append(segments, segment{Type: "text", Data: map[string]any{"text": text}})

	return action, map[string]any{idKey: id, "message": segments}, nil
}
