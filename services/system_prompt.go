package services

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github/itish2003/vaultchat/models"
)

// contextNotes is how many matches feed the prompt and the file list.
const contextNotes = 3

// BuildContext concatenates the notes given to the model.
func BuildContext(notes []models.NoteMatch) string {
	var sb strings.Builder
	for _, n := range notes {
		fmt.Fprintf(&sb, "\nFile: %s\n%s\n", n.Name, n.Content)
	}
	return sb.String()
}

// BuildPrompt is the prompt sent for a question.
func BuildPrompt(question, context string) string {
	return fmt.Sprintf("Context: %s\n\nQuestion: %s", context, question)
}

// GetSystemPrompt is the system instruction for models that take one.
func GetSystemPrompt() *genai.Content {
	prompt := `You are a helpful assistant answering questions about the user's personal notes.

The prompt starts with a Context section holding the notes most relevant to the question, each introduced by a "File:" line with its name, followed by the Question.

Answer from the notes when they cover the question and mention which file the information comes from. Format the answer in Markdown. Do not invent information; if the notes do not contain the answer, say so.`

	contents := genai.Text(prompt)
	if len(contents) == 0 {
		return nil
	}
	return contents[0]
}
