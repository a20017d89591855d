package points

import (
	"gamerooms/service"

	"github.com/bwmarrin/discordgo"
)

const leaderboardSize = 10

// Feature serves /points, /leaderboard and the admin /setpoints command
type Feature struct {
	ledger  service.LedgerService
	isAdmin func(userID string) bool
}

// New creates the points feature
func New(ledger service.LedgerService, isAdmin func(userID string) bool) *Feature {
	return &Feature{
		ledger:  ledger,
		isAdmin: isAdmin,
	}
}

// HandleCommand routes ledger commands to their handlers
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.ApplicationCommandData().Name {
	case "points":
		f.handlePoints(s, i)
	case "leaderboard":
		f.handleLeaderboard(s, i)
	case "setpoints":
		f.handleSetPoints(s, i)
	}
}
