package common

import (
	"gamerooms/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const maxButtonsPerRow = 5

// DeferResponse sends a deferred response to give more time for processing
func DeferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: flags,
		},
	})
}

// RespondWithContent sends a plain message as the interaction response
func RespondWithContent(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Content: content,
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// RespondWithError sends an ephemeral error message
func RespondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	if err := RespondWithContent(s, i, "❌ "+message, true); err != nil {
		log.Errorf("Error sending error response: %v", err)
	}
}

// FollowUp sends a follow-up to a deferred interaction
func FollowUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent, ephemeral bool) error {
	params := &discordgo.WebhookParams{
		Content: content,
	}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if len(components) > 0 {
		params.Components = components
	}

	_, err := s.FollowupMessageCreate(i.Interaction, false, params)
	return err
}

// ChoiceComponents lays the choices out as buttons, five to a row
func ChoiceComponents(choices []service.Choice) []discordgo.MessageComponent {
	if len(choices) == 0 {
		return nil
	}

	var rows []discordgo.MessageComponent
	for start := 0; start < len(choices); start += maxButtonsPerRow {
		end := min(start+maxButtonsPerRow, len(choices))

		row := &discordgo.ActionsRow{}
		for _, choice := range choices[start:end] {
			row.Components = append(row.Components, &discordgo.Button{
				Label:    choice.Label,
				Style:    buttonStyle(choice.ID),
				CustomID: choice.ID,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func buttonStyle(customID string) discordgo.ButtonStyle {
	if customID == service.ChoiceResume {
		return discordgo.SecondaryButton
	}
	return discordgo.PrimaryButton
}
