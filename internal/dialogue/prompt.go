package dialogue

import (
	"fmt"
	"strings"

	"mb-mentor/internal/mentor"
	"mb-mentor/internal/session"
)

// NoContextMarker is what the model sees when retrieval produced nothing
// relevant.
const NoContextMarker = "no context"

// ComposePrompt renders the retrieved context and the full message history
// into a single completion request. Assistant turns are labelled with the
// active persona's display name so the model keeps addressing itself
// consistently across persona switches, and a trailing cue tells it to
// continue as that persona. Pure function of its inputs.
func ComposePrompt(ragContext string, hasContext bool, history []session.Message, mentorID string) string {
	display := "Assistant"
	if p, err := mentor.Get(mentorID); err == nil {
		display = p.DisplayName
	}

	if !hasContext {
		ragContext = NoContextMarker
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Context: %s\n", ragContext)
	b.WriteString("Conversation History:\n")
	for _, m := range history {
		label := string(m.Role)
		if m.Role == session.RoleAssistant {
			label = display
		}
		fmt.Fprintf(&b, "%s: %s\n", label, m.Content)
	}
	fmt.Fprintf(&b, "%s:", display)
	return b.String()
}
