package points

import (
	"context"
	"fmt"
	"time"

	"gamerooms/bot/common"
	"gamerooms/metrics"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (f *Feature) handlePoints(s *discordgo.Session, i *discordgo.InteractionCreate) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	target := invokingUser(i)
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "user" {
			target = opt.UserValue(nil)
		}
	}
	if target == nil {
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	points, err := f.ledger.Balance(ctx, target.ID)
	if err != nil {
		log.WithError(err).WithField("user", target.ID).Error("Failed to load balance")
		common.RespondWithError(s, i, "Unable to retrieve points. Please try again.")
		metrics.RecordCommand("points", "error", time.Since(start))
		return
	}

	if err := common.RespondWithContent(s, i, formatBalance(target.ID, points), false); err != nil {
		log.Errorf("Error responding to points command: %v", err)
	}
	metrics.RecordCommand("points", "ok", time.Since(start))
}

func (f *Feature) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	board, err := f.ledger.TopN(ctx, leaderboardSize)
	if err != nil {
		log.WithError(err).Error("Failed to load leaderboard")
		common.RespondWithError(s, i, "Unable to load the leaderboard. Please try again.")
		metrics.RecordCommand("leaderboard", "error", time.Since(start))
		return
	}

	if err := common.RespondWithContent(s, i, common.FormatLeaderboard(board), false); err != nil {
		log.Errorf("Error responding to leaderboard command: %v", err)
	}
	metrics.RecordCommand("leaderboard", "ok", time.Since(start))
}

func (f *Feature) handleSetPoints(s *discordgo.Session, i *discordgo.InteractionCreate) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	caller := invokingUser(i)
	if caller == nil || !f.isAdmin(caller.ID) {
		common.RespondWithError(s, i, "You are not allowed to set points.")
		metrics.RecordCommand("setpoints", "forbidden", time.Since(start))
		return
	}

	var (
		targetID string
		value    int64
		hasValue bool
	)
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "user":
			if u := opt.UserValue(nil); u != nil {
				targetID = u.ID
			}
		case "value":
			value = opt.IntValue()
			hasValue = true
		}
	}
	if targetID == "" || !hasValue {
		common.RespondWithError(s, i, "Please provide both a user and a value.")
		return
	}

	if err := f.ledger.SetAbsolute(ctx, targetID, value); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"admin":  caller.ID,
			"target": targetID,
			"value":  value,
		}).Error("Failed to set points")
		common.RespondWithError(s, i, "Unable to set points. Please try again.")
		metrics.RecordCommand("setpoints", "error", time.Since(start))
		return
	}

	log.WithFields(log.Fields{
		"admin":  caller.ID,
		"target": targetID,
		"value":  value,
	}).Info("Points set by admin")

	message := fmt.Sprintf("✅ Set <@%s> to **%s points**.", targetID, common.FormatPoints(value))
	if err := common.RespondWithContent(s, i, message, true); err != nil {
		log.Errorf("Error responding to setpoints command: %v", err)
	}
	metrics.RecordCommand("setpoints", "ok", time.Since(start))
}

func formatBalance(userID string, points int64) string {
	return fmt.Sprintf("<@%s> has **%s points**.", userID, common.FormatPoints(points))
}

func invokingUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
