package prompt

import (
	"fmt"
	"strings"

	"pathsetu/internal/models"
	"pathsetu/internal/persona"

	"github.com/cloudwego/eino/schema"
)

// Assembler builds the ordered message list for one generation request:
// system persona first, replayed history next, current user message last.
type Assembler struct {
	window int
}

// NewAssembler bounds history replay to the given recency window.
func NewAssembler(window int) *Assembler {
	return &Assembler{window: window}
}

// Window returns the configured recency window, the maximum number of
// turns a caller should read from the history store.
func (a *Assembler) Window() int {
	return a.window
}

// Assemble produces the generation request messages. Context blocks
// (attachment text, search results) are folded into the current user
// message rather than appended as separate messages.
func (a *Assembler) Assemble(mode string, history []models.Turn, userPrompt string, contextBlocks []string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, &schema.Message{
		Role:    schema.System,
		Content: persona.SystemPrompt(mode),
	})

	turns := history
	if a.window > 0 && len(turns) > a.window {
		turns = turns[len(turns)-a.window:]
	}
	for _, turn := range turns {
		messages = append(messages, &schema.Message{
			Role:    mapRole(turn.Role),
			Content: turn.Content,
		})
	}

	messages = append(messages, &schema.Message{
		Role:    schema.User,
		Content: composeUserContent(userPrompt, contextBlocks),
	})
	return messages
}

func mapRole(role models.Role) schema.RoleType {
	switch role {
	case models.RoleAssistant, models.RoleModel:
		return schema.Assistant
	case models.RoleSystem:
		return schema.System
	default:
		return schema.User
	}
}

func composeUserContent(userPrompt string, contextBlocks []string) string {
	blocks := make([]string, 0, len(contextBlocks))
	for _, b := range contextBlocks {
		if strings.TrimSpace(b) != "" {
			blocks = append(blocks, strings.TrimSpace(b))
		}
	}
	if len(blocks) == 0 {
		return userPrompt
	}
	return fmt.Sprintf("Context:\n%s\n\nUser: %s", strings.Join(blocks, "\n\n"), userPrompt)
}
