package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

// SendGroupMessage sends a message to a WhatsApp group on behalf of the bot
func (a *WhatsAppAdapter) SendGroupMessage(ctx context.Context, groupID string, message string) error {
	if !a.IsConnected() {
		return errors.New("WhatsApp is not connected")
	}

	if !strings.HasSuffix(groupID, "@g.us") {
		return errors.New("invalid group ID format")
	}

	if !a.isGroupAllowed(groupID) {
		return fmt.Errorf("group ID %s is not in the allowed list", groupID)
	}

	jid, err := types.ParseJID(groupID)
	if err != nil {
		return fmt.Errorf("failed to parse group JID: %w", err)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	msg := &waE2E.Message{Conversation: proto.String(message)}
	if _, err := a.client.SendMessage(sendCtx, jid, msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	a.log.Info("Bot message sent to group", "group_id", groupID, "message_length", len(message))

	return nil
}
