package service

import (
	"context"
	"fmt"
	"strings"

	"tutor-backend/internal/llm"
	"tutor-backend/internal/model"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// summaryWindow is how many trailing messages a summary covers.
const summaryWindow = 10

// 聊天模板：系统提示词 + 历史消息
var tutorTemplate = prompt.FromMessages(schema.FString,
	schema.SystemMessage("You are a helpful tutor teaching about {topic}. Be engaging, clear, and supportive. "+
		"Use markdown formatting. Use $...$ for inline and $$...$$ for block math."),
	schema.MessagesPlaceholder("history", true),
)

var summaryTemplate = prompt.FromMessages(schema.FString,
	schema.SystemMessage("You are a skilled tutor creating a concise summary. Format your response with:\n"+
		"• **Key Concepts Discussed:**\n"+
		"  - Use bullet points\n"+
		"  - Include mathematical concepts in LaTeX ($...$ for inline, $$...$$)\n\n"+
		"• **Main Takeaways:**\n"+
		"  - Summarize key learning points\n"+
		"  - Keep it clear and focused"),
	schema.UserMessage("Create a summary of this conversation about {topic}. Here's the conversation:\n\n{conversation}"),
)

func tutorMessages(ctx context.Context, session *model.Session) ([]llm.Message, error) {
	return render(ctx, tutorTemplate, map[string]any{
		"topic":   session.Topic,
		"history": toSchemaHistory(session.Messages),
	})
}

func summaryMessages(ctx context.Context, session *model.Session) ([]llm.Message, error) {
	messages := session.Messages
	if len(messages) > summaryWindow {
		messages = messages[len(messages)-summaryWindow:]
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}

	return render(ctx, summaryTemplate, map[string]any{
		"topic":        session.Topic,
		"conversation": strings.Join(lines, "\n"),
	})
}

func render(ctx context.Context, tpl prompt.ChatTemplate, vars map[string]any) ([]llm.Message, error) {
	rendered, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	out := make([]llm.Message, 0, len(rendered))
	for _, m := range rendered {
		role := llm.RoleUser
		switch m.Role {
		case schema.System:
			role = llm.RoleSystem
		case schema.Assistant:
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out, nil
}

func toSchemaHistory(history []model.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		if m.Role == model.RoleAssistant {
			out = append(out, schema.AssistantMessage(m.Content, nil))
		} else {
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

// withSystem prepends one system message to the stored history. Stored
// messages are only ever user or assistant turns.
func withSystem(system string, history []model.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == model.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}
