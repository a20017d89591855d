package bot

import (
	"fmt"

	"gamerooms/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

var adminPermission int64 = discordgo.PermissionManageGuild

// slashCommands describes every command the bot serves
func slashCommands() []*discordgo.ApplicationCommand {
	gameChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(models.AllGames))
	for _, game := range models.AllGames {
		gameChoices = append(gameChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  game.Title(),
			Value: string(game),
		})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Open a private game room",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "game",
					Description: "Game to play",
					Required:    true,
					Choices:     gameChoices,
				},
			},
		},
		{
			Name:        "room",
			Description: "Manage your game room",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "close",
					Description: "Close your room",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "resume",
					Description: "Find your open room",
				},
			},
		},
		{
			Name:        "points",
			Description: "Check points",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to check (defaults to you)",
					Required:    false,
				},
			},
		},
		{
			Name:        "leaderboard",
			Description: "Show the top players",
		},
		{
			Name:                     "setpoints",
			Description:              "Set a player's points (admins only)",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Player to update",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "value",
					Description: "New point total",
					Required:    true,
				},
			},
		},
	}
}

// registerCommands replaces the registered commands in one call, guild scoped when a guild is configured
func (b *Bot) registerCommands() error {
	commands := slashCommands()

	registered, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.config.GuildID, commands)
	if err != nil {
		return fmt.Errorf("cannot register commands: %w", err)
	}

	log.WithFields(log.Fields{
		"count": len(registered),
		"guild": b.config.GuildID,
	}).Info("Registered slash commands")
	return nil
}
