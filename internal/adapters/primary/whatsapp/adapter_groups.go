package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.mau.fi/whatsmeow/types"

	"github.com/vibin/jx3-item-bot/internal/core/ports"
)

// GetGroups returns a list of all joined WhatsApp groups
func (a *WhatsAppAdapter) GetGroups(ctx context.Context) ([]ports.GroupInfo, error) {
	if !a.IsConnected() {
		return nil, errors.New("WhatsApp client not connected")
	}

	groups, err := a.client.GetJoinedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}

	groupInfos := make([]ports.GroupInfo, 0, len(groups))
	for _, group := range groups {
		groupID := group.JID.String()
		groupInfos = append(groupInfos, ports.GroupInfo{
			ID:          groupID,
			Name:        groupName(group),
			MemberCount: len(group.Participants),
			IsAllowed:   a.isGroupAllowed(groupID),
		})
	}

	return groupInfos, nil
}

// UpdateAllowedGroups replaces the list of groups the bot answers in
func (a *WhatsAppAdapter) UpdateAllowedGroups(groups []string) error {
	a.mutex.Lock()
	a.config.AllowedGroups = slices.Clone(groups)
	a.mutex.Unlock()

	a.log.Info("Allowed WhatsApp groups updated", "count", len(groups))
	return nil
}

// groupName gets a readable group name from group info
func groupName(group *types.GroupInfo) string {
	if group.Name != "" {
		return group.Name
	}

	if user, _, found := strings.Cut(group.JID.String(), "@"); found {
		return user
	}

	return group.JID.String()
}
