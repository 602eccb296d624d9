package chat

import (
	"encoding/json"
	"fmt"

	"portfolio/internal/models"
)

// Pair is one completed exchange sent back to the backend as context.
// On the wire it is a two element array: ["prompt", "response"].
type Pair struct {
	Prompt   string
	Response string
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Prompt, p.Response})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	// pointers tell a JSON null apart from an empty string
	var raw []*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("history pair must have 2 entries, got %d", len(raw))
	}
	if raw[0] == nil || raw[1] == nil {
		return fmt.Errorf("history pair entries must be strings")
	}
	p.Prompt, p.Response = *raw[0], *raw[1]
	return nil
}

// EncodeHistory derives the completed (prompt, response) pairs of a
// transcript snapshot. A user message pairs with the message right after it
// when that one is a non-greeting assistant message; an unanswered trailing
// user message is left out. The result is never nil.
func EncodeHistory(messages []models.Message) []Pair {
	pairs := make([]Pair, 0, len(messages)/2)
	for i := 0; i < len(messages); i++ {
		msg := messages[i]
		switch msg.Role {
		case models.RoleUser:
			if i+1 >= len(messages) {
				continue
			}
			next := messages[i+1]
			if next.Role != models.RoleAssistant || next.Greeting {
				continue
			}
			pairs = append(pairs, Pair{Prompt: msg.Content, Response: next.Content})
			i++
		case models.RoleAssistant:
			// greeting or an assistant message without a preceding prompt
		}
	}
	return pairs
}
