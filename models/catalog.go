package models

import "strings"

// DefaultModel is used when a setup request names no model.
const DefaultModel = "mistral"

// ModelOption is an entry of the model selector on the setup form.
type ModelOption struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// ModelCatalog lists the models offered by the setup form.
func ModelCatalog() []ModelOption {
	return []ModelOption{
		{Name: "mistral", Label: "Mistral (ollama)"},
		{Name: "llama2", Label: "Llama 2 (ollama)"},
		{Name: "codellama", Label: "Code Llama (ollama)"},
		{Name: "gemini-2.5-flash", Label: "Gemini 2.5 Flash"},
	}
}

// IsGeminiModel reports whether the model is served by the Gemini API rather than ollama.
func IsGeminiModel(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "gemini")
}
