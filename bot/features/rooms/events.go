package rooms

import (
	"fmt"
	"strings"

	"gamerooms/models"
	"gamerooms/service"

	"github.com/bwmarrin/discordgo"
)

// commandEvent normalizes /play and /room into a dispatcher event
func commandEvent(i *discordgo.InteractionCreate) (service.Event, error) {
	user, displayName := interactionUser(i)
	if user == nil || i.GuildID == "" {
		return service.Event{}, fmt.Errorf("rooms can only be opened inside a server")
	}

	ev := service.Event{
		CommunityID: i.GuildID,
		UserID:      user.ID,
		DisplayName: displayName,
		ChannelRef:  i.ChannelID,
	}

	data := i.ApplicationCommandData()
	switch data.Name {
	case "play":
		ev.Kind = service.EventOpen
		for _, opt := range data.Options {
			if opt.Name == "game" {
				ev.GameKey = models.GameKey(opt.StringValue())
			}
		}
		return ev, nil

	case "room":
		if len(data.Options) == 0 {
			return service.Event{}, fmt.Errorf("missing room subcommand")
		}
		switch data.Options[0].Name {
		case "close":
			ev.Kind = service.EventClose
		case "resume":
			ev.Kind = service.EventResume
		default:
			return service.Event{}, fmt.Errorf("unknown room subcommand %q", data.Options[0].Name)
		}
		return ev, nil
	}

	return service.Event{}, fmt.Errorf("unknown command %q", data.Name)
}

type component struct {
	kind    service.EventKind
	game    models.GameKey
	payload string
}

func parseComponent(customID string) (component, bool) {
	switch {
	case strings.HasPrefix(customID, service.ChoiceSwitchPrefix):
		return component{
			kind: service.EventSwitch,
			game: models.GameKey(strings.TrimPrefix(customID, service.ChoiceSwitchPrefix)),
		}, true
	case customID == service.ChoiceResume:
		return component{kind: service.EventResume}, true
	case strings.HasPrefix(customID, service.ChoiceMovePrefix):
		return component{
			kind:    service.EventMove,
			payload: strings.TrimPrefix(customID, service.ChoiceMovePrefix),
		}, true
	}
	return component{}, false
}

// componentEvent normalizes a room button press
func componentEvent(i *discordgo.InteractionCreate) (service.Event, bool) {
	c, ok := parseComponent(i.MessageComponentData().CustomID)
	if !ok {
		return service.Event{}, false
	}
	user, displayName := interactionUser(i)
	if user == nil {
		return service.Event{}, false
	}

	return service.Event{
		Kind:        c.kind,
		CommunityID: i.GuildID,
		UserID:      user.ID,
		DisplayName: displayName,
		ChannelRef:  i.ChannelID,
		GameKey:     c.game,
		Payload:     c.payload,
	}, true
}

// messageEvent normalizes a guild text message into a move. Bots and empty messages are ignored.
func messageEvent(m *discordgo.MessageCreate, botUserID string) (service.Event, bool) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == botUserID {
		return service.Event{}, false
	}
	if m.GuildID == "" {
		return service.Event{}, false
	}
	content := strings.TrimSpace(m.Content)
	if content == "" {
		return service.Event{}, false
	}

	return service.Event{
		Kind:        service.EventMove,
		CommunityID: m.GuildID,
		UserID:      m.Author.ID,
		DisplayName: m.Author.Username,
		ChannelRef:  m.ChannelID,
		Payload:     content,
	}, true
}

// interactionUser returns the invoking user and the name to show for them
func interactionUser(i *discordgo.InteractionCreate) (*discordgo.User, string) {
	if i.Member != nil && i.Member.User != nil {
		if i.Member.Nick != "" {
			return i.Member.User, i.Member.Nick
		}
		return i.Member.User, userDisplayName(i.Member.User)
	}
	if i.User != nil {
		return i.User, userDisplayName(i.User)
	}
	return nil, ""
}

func userDisplayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
