package common

import (
	"fmt"
	"strings"
	"time"

	"gamerooms/models"
)

// FormatPoints formats a point amount with thousand separators
func FormatPoints(points int64) string {
	if points < 0 {
		return "-" + FormatPoints(-points)
	}

	str := fmt.Sprintf("%d", points)
	n := len(str)
	if n <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in user's local timezone
// Format types: "t" = short time, "T" = long time, "d" = short date, "D" = long date,
// "f" = short date/time, "F" = long date/time, "R" = relative time
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}

// FormatLeaderboard renders ranked entries as mention lines
func FormatLeaderboard(board *models.Leaderboard) string {
	if board == nil || len(board.Entries) == 0 {
		return "Nobody has any points yet."
	}

	var b strings.Builder
	b.WriteString("🏆 **Leaderboard**\n")
	for _, entry := range board.Entries {
		medal := ""
		switch entry.Rank {
		case 1:
			medal = "🥇 "
		case 2:
			medal = "🥈 "
		case 3:
			medal = "🥉 "
		}
		fmt.Fprintf(&b, "%s%d. <@%s>: **%s**\n", medal, entry.Rank, entry.UserID, FormatPoints(entry.Points))
	}
	fmt.Fprintf(&b, "Updated %s", FormatDiscordTimestamp(board.AsOf, "R"))
	return b.String()
}

// ChannelMention links a channel in message content
func ChannelMention(channelID string) string {
	return fmt.Sprintf("<#%s>", channelID)
}
