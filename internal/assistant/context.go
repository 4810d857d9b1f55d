package assistant

import (
	"strings"

	"github.com/dukerupert/pocketcal/internal/model"
)

// historyLimit bounds both the interactions loaded and the turns kept.
const historyLimit = 3

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one line of dialogue in the conversation context.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// turnsFromHistory converts interactions, newest first as loaded from the
// store, into chronological turns.
func turnsFromHistory(recent []model.Interaction) []Turn {
	turns := make([]Turn, 0, 2*len(recent)+1)
	for i := len(recent) - 1; i >= 0; i-- {
		in := recent[i]
		if in.UserMessage != "" {
			turns = append(turns, Turn{Role: RoleUser, Content: in.UserMessage})
		}
		if in.OutputText != "" {
			turns = append(turns, Turn{Role: RoleAssistant, Content: in.OutputText})
		}
	}
	return turns
}

// lastTurns keeps at most historyLimit turns from the end.
func lastTurns(turns []Turn) []Turn {
	if len(turns) > historyLimit {
		return turns[len(turns)-historyLimit:]
	}
	return turns
}

// buildTurns appends the new utterance to the history and trims the result.
func buildTurns(recent []model.Interaction, utterance string) []Turn {
	turns := turnsFromHistory(recent)
	turns = append(turns, Turn{Role: RoleUser, Content: utterance})
	return lastTurns(turns)
}

func formatTranscript(turns []Turn) string {
	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for _, t := range turns {
		label := "User"
		if t.Role == RoleAssistant {
			label = "Assistant"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}
