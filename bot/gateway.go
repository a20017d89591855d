package bot

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"gamerooms/bot/common"
	"gamerooms/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const maxChannelNameLength = 100

// channelAPI is the part of *discordgo.Session the gateway needs
type channelAPI interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Gateway implements service.ChatGateway with private Discord text channels
type Gateway struct {
	api        channelAPI
	categoryID string
	botUserID  func() string
}

// NewGateway creates a gateway that files room channels under categoryID.
// botUserID is resolved per call because it is only known once the session is open.
func NewGateway(api channelAPI, categoryID string, botUserID func() string) *Gateway {
	return &Gateway{
		api:        api,
		categoryID: categoryID,
		botUserID:  botUserID,
	}
}

// CreateChannel creates a text channel only the owner and the bot can see
func (g *Gateway) CreateChannel(ctx context.Context, spec service.ChannelSpec) (string, error) {
	data := discordgo.GuildChannelCreateData{
		Name:                 sanitizeChannelName(spec.Name),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             g.categoryID,
		PermissionOverwrites: roomPermissions(spec.CommunityID, spec.OwnerID, g.botUserID()),
	}

	channel, err := g.api.GuildChannelCreateComplex(spec.CommunityID, data, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create channel in guild %s: %w", spec.CommunityID, err)
	}

	log.WithFields(log.Fields{
		"guild":   spec.CommunityID,
		"owner":   spec.OwnerID,
		"channel": channel.ID,
	}).Debug("Created room channel")

	return channel.ID, nil
}

func (g *Gateway) DeleteChannel(ctx context.Context, channelRef string) error {
	if _, err := g.api.ChannelDelete(channelRef, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete channel %s: %w", channelRef, err)
	}
	return nil
}

func (g *Gateway) SendMessage(ctx context.Context, channelRef, content string) error {
	if _, err := g.api.ChannelMessageSend(channelRef, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelRef, err)
	}
	return nil
}

func (g *Gateway) SendPrompt(ctx context.Context, channelRef, content string, choices []service.Choice) error {
	msg := &discordgo.MessageSend{
		Content:    content,
		Components: common.ChoiceComponents(choices),
	}
	if _, err := g.api.ChannelMessageSendComplex(channelRef, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send prompt to channel %s: %w", channelRef, err)
	}
	return nil
}

// roomPermissions hides the channel from @everyone, whose role ID equals the guild ID
func roomPermissions(guildID, ownerID, botUserID string) []*discordgo.PermissionOverwrite {
	const visible = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory

	overwrites := []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: ownerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: visible},
	}
	if botUserID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    botUserID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: visible | discordgo.PermissionManageChannels,
		})
	}
	return overwrites
}

// sanitizeChannelName lowercases the name and keeps characters Discord accepts in text channel names
func sanitizeChannelName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteRune('-')
			lastDash = true
		}
	}

	out := strings.TrimRight(b.String(), "-")
	if runes := []rune(out); len(runes) > maxChannelNameLength {
		out = strings.TrimRight(string(runes[:maxChannelNameLength]), "-")
	}
	if out == "" {
		return "room"
	}
	return out
}
