package llm

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts/*.txt
var promptFiles embed.FS

// Prompt names shipped with the binary.
const (
	PromptRouter      = "router"
	PromptChat        = "chat"
	PromptHistory     = "history"
	PromptRAG         = "rag"
	PromptSQLGenerate = "sql_generate"
	PromptSQLAnswer   = "sql_answer"
	PromptAdvisor     = "advisor"
	PromptCoverLetter = "cover_letter"
	PromptInterview   = "interview"
	PromptAgent       = "agent"
)

// PromptTemplate returns the raw template text and whether it exists.
func PromptTemplate(name string) (string, bool) {
	data, err := promptFiles.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Render fills {{key}} placeholders of the named template.
func Render(name string, vars map[string]string) (string, error) {
	tmpl, ok := PromptTemplate(name)
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(tmpl)), nil
}

// MustRender is Render for templates known to exist at compile time.
func MustRender(name string, vars map[string]string) string {
	out, err := Render(name, vars)
	if err != nil {
		panic(err)
	}
	return out
}
