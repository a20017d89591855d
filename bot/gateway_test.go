package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"gamerooms/service"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannelAPI struct {
	created    []discordgo.GuildChannelCreateData
	createdIn  []string
	deleted    []string
	messages   map[string][]string
	prompts    []*discordgo.MessageSend
	createErr  error
	sendErr    error
	nextChanID string
}

func newFakeChannelAPI() *fakeChannelAPI {
	return &fakeChannelAPI{messages: make(map[string][]string), nextChanID: "chan-1"}
}

func (f *fakeChannelAPI) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdIn = append(f.createdIn, guildID)
	f.created = append(f.created, data)
	return &discordgo.Channel{ID: f.nextChanID, GuildID: guildID, Name: data.Name}, nil
}

func (f *fakeChannelAPI) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.deleted = append(f.deleted, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

func (f *fakeChannelAPI) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.messages[channelID] = append(f.messages[channelID], content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeChannelAPI) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.prompts = append(f.prompts, data)
	return &discordgo.Message{ChannelID: channelID, Content: data.Content}, nil
}

func TestGateway_CreateChannel(t *testing.T) {
	api := newFakeChannelAPI()
	gw := NewGateway(api, "category-1", func() string { return "bot-1" })

	ref, err := gw.CreateChannel(context.Background(), service.ChannelSpec{
		CommunityID: "guild-1",
		OwnerID:     "user-1",
		Name:        "guess-Alice Smith!",
		Topic:       "Guess the Number room",
	})

	require.NoError(t, err)
	assert.Equal(t, "chan-1", ref)
	require.Len(t, api.created, 1)
	assert.Equal(t, "guild-1", api.createdIn[0])

	data := api.created[0]
	assert.Equal(t, "guess-alice-smith", data.Name)
	assert.Equal(t, "category-1", data.ParentID)
	assert.Equal(t, discordgo.ChannelTypeGuildText, data.Type)

	require.Len(t, data.PermissionOverwrites, 3)
	everyone := data.PermissionOverwrites[0]
	assert.Equal(t, "guild-1", everyone.ID)
	assert.Equal(t, int64(discordgo.PermissionViewChannel), everyone.Deny)
	owner := data.PermissionOverwrites[1]
	assert.Equal(t, "user-1", owner.ID)
	assert.NotZero(t, owner.Allow&discordgo.PermissionSendMessages)
	assert.Equal(t, "bot-1", data.PermissionOverwrites[2].ID)
}

func TestGateway_CreateChannelError(t *testing.T) {
	api := newFakeChannelAPI()
	api.createErr = errors.New("missing access")
	gw := NewGateway(api, "", func() string { return "" })

	_, err := gw.CreateChannel(context.Background(), service.ChannelSpec{CommunityID: "guild-1", OwnerID: "user-1", Name: "x"})

	assert.ErrorContains(t, err, "missing access")
}

func TestGateway_SendPromptAttachesButtons(t *testing.T) {
	api := newFakeChannelAPI()
	gw := NewGateway(api, "", func() string { return "bot-1" })

	err := gw.SendPrompt(context.Background(), "chan-1", "Pick one", []service.Choice{
		{ID: "hl_higher", Label: "Higher"},
		{ID: "hl_lower", Label: "Lower"},
	})

	require.NoError(t, err)
	require.Len(t, api.prompts, 1)
	assert.Equal(t, "Pick one", api.prompts[0].Content)
	assert.Len(t, api.prompts[0].Components, 1)
}

func TestGateway_SendAndDelete(t *testing.T) {
	api := newFakeChannelAPI()
	gw := NewGateway(api, "", func() string { return "bot-1" })
	ctx := context.Background()

	require.NoError(t, gw.SendMessage(ctx, "chan-1", "hello"))
	require.NoError(t, gw.DeleteChannel(ctx, "chan-1"))

	assert.Equal(t, []string{"hello"}, api.messages["chan-1"])
	assert.Equal(t, []string{"chan-1"}, api.deleted)

	api.sendErr = errors.New("unknown channel")
	assert.Error(t, gw.SendMessage(ctx, "chan-1", "again"))
}

func TestSanitizeChannelName(t *testing.T) {
	tests := map[string]string{
		"guess-Alice":         "guess-alice",
		"counting-  Bob  ":    "counting-bob",
		"highlow-🎲dice":       "highlow-dice",
		"!!!":                 "room",
		"guess-user_1":        "guess-user_1",
		"guess--double--dash": "guess-double-dash",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeChannelName(in), in)
	}
}

func TestSanitizeChannelName_TruncatesWholeCharacters(t *testing.T) {
	tests := map[string]string{
		"guess-" + strings.Repeat("名", 40):  "guess-" + strings.Repeat("名", 40),
		"guess-" + strings.Repeat("名", 120): "guess-" + strings.Repeat("名", 94),
		strings.Repeat("a", 99) + "-b":      strings.Repeat("a", 99),
	}
	for in, want := range tests {
		got := sanitizeChannelName(in)
		assert.Equal(t, want, got)
		assert.True(t, utf8.ValidString(got))
		assert.LessOrEqual(t, utf8.RuneCountInString(got), 100)
	}
}
