package announce

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"cardroom/internal/room"
	"cardroom/internal/store"
)

const (
	colorSettled   = 0x2ecc71
	colorAborted   = 0xe74c3c
	colorCancelled = 0x95a5a6
)

// FormatMatch renders a settled or aborted match as an announcement.
func FormatMatch(summary room.MatchSummary, now time.Time) Message {
	color := colorSettled
	switch summary.Status {
	case store.MatchStatusAborted:
		color = colorAborted
	case store.MatchStatusCancelled:
		color = colorCancelled
	}

	users := make([]string, 0, len(summary.Outcomes))
	for uid := range summary.Outcomes {
		users = append(users, uid)
	}
	sort.Strings(users)

	fields := make([]Field, 0, len(users))
	for _, uid := range users {
		fields = append(fields, Field{
			Name:   uid,
			Value:  fmt.Sprintf("%s (%+d)", summary.Outcomes[uid], summary.Net[uid]),
			Inline: true,
		})
	}

	title := fmt.Sprintf("%s match %s", capitalize(summary.GameKey), summary.Status)
	content := fmt.Sprintf("Stake %d, %d players", summary.Stake, len(users))
	return Message{
		Title:     title,
		Content:   content,
		Color:     color,
		Timestamp: now.UTC().Format(time.RFC3339),
		Fields:    fields,
		Raw:       summary,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
