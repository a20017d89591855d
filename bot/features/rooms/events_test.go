package rooms

import (
	"testing"

	"gamerooms/models"
	"gamerooms/service"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandInteraction(data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "guild-1",
		ChannelID: "general",
		Member: &discordgo.Member{
			Nick: "Ally",
			User: &discordgo.User{ID: "user-1", Username: "alice"},
		},
		Data: data,
	}}
}

func TestCommandEvent_Play(t *testing.T) {
	i := commandInteraction(discordgo.ApplicationCommandInteractionData{
		Name: "play",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "game", Type: discordgo.ApplicationCommandOptionString, Value: "highlow"},
		},
	})

	ev, err := commandEvent(i)

	require.NoError(t, err)
	assert.Equal(t, service.EventOpen, ev.Kind)
	assert.Equal(t, models.GameHighLow, ev.GameKey)
	assert.Equal(t, "guild-1", ev.CommunityID)
	assert.Equal(t, "user-1", ev.UserID)
	assert.Equal(t, "Ally", ev.DisplayName)
}

func TestCommandEvent_RoomSubcommands(t *testing.T) {
	for sub, kind := range map[string]service.EventKind{
		"close":  service.EventClose,
		"resume": service.EventResume,
	} {
		i := commandInteraction(discordgo.ApplicationCommandInteractionData{
			Name: "room",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: sub, Type: discordgo.ApplicationCommandOptionSubCommand},
			},
		})

		ev, err := commandEvent(i)
		require.NoError(t, err)
		assert.Equal(t, kind, ev.Kind, sub)
	}
}

func TestCommandEvent_RequiresGuild(t *testing.T) {
	i := commandInteraction(discordgo.ApplicationCommandInteractionData{Name: "play"})
	i.GuildID = ""

	_, err := commandEvent(i)

	assert.Error(t, err)
}

func TestComponentEvent(t *testing.T) {
	tests := []struct {
		customID string
		kind     service.EventKind
		game     models.GameKey
		payload  string
	}{
		{"room_switch:counting", service.EventSwitch, models.GameCounting, ""},
		{"room_resume", service.EventResume, "", ""},
		{"hl_lower", service.EventMove, "", "lower"},
	}

	for _, tt := range tests {
		i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionMessageComponent,
			GuildID:   "guild-1",
			ChannelID: "chan-1",
			User:      &discordgo.User{ID: "user-1", Username: "alice", GlobalName: "Alice"},
			Data:      discordgo.MessageComponentInteractionData{CustomID: tt.customID},
		}}

		ev, ok := componentEvent(i)
		require.True(t, ok, tt.customID)
		assert.Equal(t, tt.kind, ev.Kind)
		assert.Equal(t, tt.game, ev.GameKey)
		assert.Equal(t, tt.payload, ev.Payload)
		assert.Equal(t, "chan-1", ev.ChannelRef)
		assert.Equal(t, "Alice", ev.DisplayName)
	}

	assert.False(t, OwnsComponent("wager_accept"))
}

func TestMessageEvent(t *testing.T) {
	msg := func(author *discordgo.User, content string) *discordgo.MessageCreate {
		return &discordgo.MessageCreate{Message: &discordgo.Message{
			GuildID:   "guild-1",
			ChannelID: "chan-1",
			Author:    author,
			Content:   content,
		}}
	}
	user := &discordgo.User{ID: "user-1", Username: "alice"}

	ev, ok := messageEvent(msg(user, "  42 "), "bot-1")
	require.True(t, ok)
	assert.Equal(t, service.EventMove, ev.Kind)
	assert.Equal(t, "42", ev.Payload)
	assert.Equal(t, "chan-1", ev.ChannelRef)

	_, ok = messageEvent(msg(&discordgo.User{ID: "bot-1"}, "hi"), "bot-1")
	assert.False(t, ok)
	_, ok = messageEvent(msg(&discordgo.User{ID: "other", Bot: true}, "hi"), "bot-1")
	assert.False(t, ok)
	_, ok = messageEvent(msg(user, "   "), "bot-1")
	assert.False(t, ok)

	dm := msg(user, "42")
	dm.GuildID = ""
	_, ok = messageEvent(dm, "bot-1")
	assert.False(t, ok)
}

func TestReplyContent(t *testing.T) {
	assert.Equal(t, "Your room has been closed.", replyContent(service.Response{Content: "Your room has been closed."}))
	assert.Equal(t, "Your Counting room is ready. <#chan-9>", replyContent(service.Response{
		Content:    "Your Counting room is ready.",
		ChannelRef: "chan-9",
	}))
}
