package llm

import (
	"embed"
	"fmt"
	"strings"
)

// Prompt names.
const (
	PromptSummary  = "summary"
	PromptEntities = "entities"
	PromptRisks    = "risks"
	PromptQA       = "qa"
	PromptLegalQA  = "legal_qa"
	PromptDraft    = "draft"
	PromptOCR      = "ocr"
	PromptFixJSON  = "fix_json"
)

//go:embed prompts/*.txt
var promptFiles embed.FS

// PromptTemplate returns the raw template text for name.
func PromptTemplate(name string) (string, bool) {
	data, err := promptFiles.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return string(data), true
}

// RenderPrompt substitutes {{key}} placeholders in the named template.
// Unknown placeholders are left as-is.
func RenderPrompt(name string, vars map[string]string) (string, error) {
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
