package chat

import (
	"bytes"
	"text/template"
)

const AnswerSystemMessage = `You are an assistant that answers questions about the user's uploaded documents. Base your answer only on the provided document excerpts and the conversation so far. If the excerpts do not contain the answer, say so.`

const answerPromptTmpl = `{{if .Context}}Document excerpts:
{{range .Context}}[{{.Source}}]
{{.Content}}

{{end}}{{end}}{{if .History}}Conversation so far:
{{range .History}}User: {{.Question}}
Assistant: {{.Answer}}
{{end}}
{{end}}User question: {{.Question}}

Answer:`

var answerPrompt = template.Must(template.New("answer").Parse(answerPromptTmpl))

type promptData struct {
	Context  []Hit
	History  []Turn
	Question string
}

// buildPrompt assembles retrieved excerpts, the full prior transcript
// and the current question into one generation prompt.
func buildPrompt(history []Turn, hits []Hit, question string) (string, error) {
	var buf bytes.Buffer
	err := answerPrompt.Execute(&buf, promptData{
		Context:  hits,
		History:  history,
		Question: question,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
