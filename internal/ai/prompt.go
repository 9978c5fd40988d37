package ai

import "strings"

// BuildSuggestPrompt embeds the task's title and, if present, its
// description into the subtask instruction.
func BuildSuggestPrompt(title, description string) string {
	var b strings.Builder

	b.WriteString("Break the following task into 5 concise actionable subtasks:\n\n")
	b.WriteString(title)
	if description != "" {
		b.WriteString(" - ")
		b.WriteString(description)
	}
	b.WriteString("\n\nSubtasks:")

	return b.String()
}
