package rooms

import (
	"context"
	"time"

	"gamerooms/service"

	"github.com/bwmarrin/discordgo"
)

// Dispatcher receives normalized room events
type Dispatcher interface {
	Dispatch(ctx context.Context, ev service.Event)
}

// Feature turns room commands, buttons and room channel messages into dispatcher events
type Feature struct {
	dispatcher Dispatcher
	botUserID  func() string
	timeout    time.Duration
}

// New creates the rooms feature
func New(dispatcher Dispatcher, botUserID func() string) *Feature {
	return &Feature{
		dispatcher: dispatcher,
		botUserID:  botUserID,
		timeout:    30 * time.Second,
	}
}

// HandleCommand handles /play and /room
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.handleCommand(s, i)
}

// HandleInteraction handles room buttons
func (f *Feature) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.handleComponent(s, i)
}

// HandleMessage treats messages in room channels as moves
func (f *Feature) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	f.handleMessage(s, m)
}

// OwnsComponent reports whether a button belongs to this feature
func OwnsComponent(customID string) bool {
	_, ok := parseComponent(customID)
	return ok
}
