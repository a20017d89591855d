package rooms

import (
	"context"
	"time"

	"gamerooms/bot/common"
	"gamerooms/metrics"
	"gamerooms/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (f *Feature) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	start := time.Now()
	command := i.ApplicationCommandData().Name

	ev, err := commandEvent(i)
	if err != nil {
		log.WithError(err).WithField("command", command).Warn("Rejected room command")
		common.RespondWithError(s, i, "That command only works inside a server.")
		metrics.RecordCommand(command, "rejected", time.Since(start))
		return
	}

	// Channel creation can outlast the interaction deadline
	if err := common.DeferResponse(s, i, true); err != nil {
		log.WithError(err).WithField("command", command).Error("Failed to defer room command")
		metrics.RecordCommand(command, "error", time.Since(start))
		return
	}

	ev.Reply = &interactionReplier{session: s, interaction: i}
	f.dispatch(ev)
	metrics.RecordCommand(command, "ok", time.Since(start))
}

func (f *Feature) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	start := time.Now()

	ev, ok := componentEvent(i)
	if !ok {
		return
	}

	var err error
	if ev.Kind == service.EventMove {
		// The result is posted into the room; only problems get a private reply
		err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		})
	} else {
		err = common.DeferResponse(s, i, true)
	}
	if err != nil {
		log.WithError(err).WithField("customID", i.MessageComponentData().CustomID).Error("Failed to acknowledge room button")
		metrics.RecordCommand("button", "error", time.Since(start))
		return
	}

	ev.Reply = &interactionReplier{session: s, interaction: i}
	f.dispatch(ev)
	metrics.RecordCommand("button", "ok", time.Since(start))
}

func (f *Feature) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	ev, ok := messageEvent(m, f.botUserID())
	if !ok {
		return
	}

	ev.Reply = &messageReplier{session: s, message: m}
	f.dispatch(ev)
}

func (f *Feature) dispatch(ev service.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	f.dispatcher.Dispatch(ctx, ev)
}

// interactionReplier answers a deferred interaction with a follow-up
type interactionReplier struct {
	session     *discordgo.Session
	interaction *discordgo.InteractionCreate
}

func (r *interactionReplier) Reply(_ context.Context, resp service.Response) error {
	return common.FollowUp(r.session, r.interaction, replyContent(resp), common.ChoiceComponents(resp.Choices), resp.Private)
}

// messageReplier answers a room message in its channel
type messageReplier struct {
	session *discordgo.Session
	message *discordgo.MessageCreate
}

func (r *messageReplier) Reply(ctx context.Context, resp service.Response) error {
	_, err := r.session.ChannelMessageSendComplex(r.message.ChannelID, &discordgo.MessageSend{
		Content:    replyContent(resp),
		Reference:  r.message.Reference(),
		Components: common.ChoiceComponents(resp.Choices),
	}, discordgo.WithContext(ctx))
	return err
}

func replyContent(resp service.Response) string {
	if resp.ChannelRef == "" {
		return resp.Content
	}
	return resp.Content + " " + common.ChannelMention(resp.ChannelRef)
}
