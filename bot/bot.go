package bot

import (
	"fmt"

	"gamerooms/bot/features/points"
	"gamerooms/bot/features/rooms"
	"gamerooms/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token          string
	GuildID        string
	RoomCategoryID string
	IsAdmin        func(userID string) bool
}

type Bot struct {
	config  Config
	session *discordgo.Session
	gateway *Gateway

	rooms  *rooms.Feature
	points *points.Feature
}

// New creates the Discord session and its chat gateway. The connection is
// opened by Start once the services that handle events exist.
func New(config Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		config:  config,
		session: dg,
	}
	b.gateway = NewGateway(dg, config.RoomCategoryID, b.botUserID)
	return b, nil
}

// Gateway returns the ChatGateway backed by this bot's session
func (b *Bot) Gateway() *Gateway {
	return b.gateway
}

// Start registers handlers, opens the websocket connection and registers slash commands
func (b *Bot) Start(dispatcher rooms.Dispatcher, ledger service.LedgerService) error {
	isAdmin := b.config.IsAdmin
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}

	b.rooms = rooms.New(dispatcher, b.botUserID)
	b.points = points.New(ledger, isAdmin)

	b.session.AddHandler(b.handleCommands)
	b.session.AddHandler(b.handleComponents)
	b.session.AddHandler(b.handleMessages)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.WithFields(log.Fields{
			"user":   r.User.Username,
			"guilds": len(r.Guilds),
		}).Info("Discord session ready")
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	if err := b.registerCommands(); err != nil {
		b.session.Close()
		return fmt.Errorf("error registering commands: %w", err)
	}

	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) botUserID() string {
	if b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "play", "room":
		b.rooms.HandleCommand(s, i)
	case "points", "leaderboard", "setpoints":
		b.points.HandleCommand(s, i)
	}
}

func (b *Bot) handleComponents(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	if rooms.OwnsComponent(i.MessageComponentData().CustomID) {
		b.rooms.HandleInteraction(s, i)
	}
}

func (b *Bot) handleMessages(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.rooms.HandleMessage(s, m)
}
