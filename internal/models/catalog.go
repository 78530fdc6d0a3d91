package models

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Defaults for new chats and the composer.
const (
	DefaultProvider    = ProviderOpenAI
	DefaultModel       = "gpt-4-turbo-preview"
	DefaultTemperature = 0.7
	DefaultPersonality = "friendly"

	MinTemperature  = 0.0
	MaxTemperature  = 1.0
	TemperatureStep = 0.1
)

// ModelOption is a selectable model of a provider.
type ModelOption struct {
	Value string
	Label string
}

// Provider groups the models offered for one vendor.
type Provider struct {
	Value  string
	Label  string
	Models []ModelOption
}

// Providers is the fixed provider/model catalog, in display order.
// The first model of each provider is the one selected when switching to it.
var Providers = []Provider{
	{
		Value: ProviderOpenAI,
		Label: "OpenAI",
		Models: []ModelOption{
			{Value: "gpt-4-turbo-preview", Label: "GPT-4 Turbo"},
			{Value: "gpt-4", Label: "GPT-4"},
			{Value: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo"},
		},
	},
	{
		Value: ProviderAnthropic,
		Label: "Anthropic (Claude)",
		Models: []ModelOption{
			{Value: "claude-sonnet-4-20250514", Label: "Claude Sonnet 4"},
		},
	},
}

// LookupProvider returns the catalog entry for a provider.
func LookupProvider(value string) (Provider, bool) {
	for _, p := range Providers {
		if p.Value == value {
			return p, true
		}
	}
	return Provider{}, false
}

// FirstModel returns the model selected by default for a provider.
func FirstModel(provider string) (string, bool) {
	p, ok := LookupProvider(provider)
	if !ok || len(p.Models) == 0 {
		return "", false
	}
	return p.Models[0].Value, true
}

// HasModel reports whether model belongs to provider.
func HasModel(provider, model string) bool {
	p, ok := LookupProvider(provider)
	if !ok {
		return false
	}
	for _, m := range p.Models {
		if m.Value == model {
			return true
		}
	}
	return false
}

// ModelLabel returns the display label of a model, or "Select Model" if unknown.
func ModelLabel(model string) string {
	for _, p := range Providers {
		for _, m := range p.Models {
			if m.Value == model {
				return m.Label
			}
		}
	}
	return "Select Model"
}

// ProviderValues returns provider identifiers in catalog order.
func ProviderValues() []string {
	out := make([]string, len(Providers))
	for i, p := range Providers {
		out[i] = p.Value
	}
	return out
}

// TemperatureHint describes a temperature in words.
func TemperatureHint(t float64) string {
	switch {
	case t < 0.35:
		return "Precise"
	case t < 0.75:
		return "Balanced"
	default:
		return "Creative"
	}
}

// ClampTemperature bounds t to [MinTemperature, MaxTemperature] without rounding.
func ClampTemperature(t float64) float64 {
	if t < MinTemperature {
		return MinTemperature
	}
	if t > MaxTemperature {
		return MaxTemperature
	}
	return t
}

// Personality is a tone preset applied to a chat.
type Personality struct {
	Value       string
	Label       string
	Description string
}

// Personalities lists the available tone presets.
var Personalities = []Personality{
	{Value: "friendly", Label: "Friendly", Description: "Warm and conversational"},
	{Value: "factual", Label: "Factual", Description: "Precise and data-driven"},
	{Value: "humorous", Label: "Humorous", Description: "Witty and entertaining"},
}

// RolePreset is a named system prompt.
type RolePreset struct {
	Label  string
	Prompt string
}

// RolePresets lists the assistant roles offered when creating a chat.
// The first preset is the default system prompt.
var RolePresets = []RolePreset{
	{Label: "Research Assistant", Prompt: "You are a helpful AI research assistant."},
	{Label: "Document Analyzer", Prompt: "You are an expert document analyzer."},
	{Label: "Tutor", Prompt: "You are a knowledgeable tutor helping students learn."},
	{Label: "Consultant", Prompt: "You are a professional consultant providing expert advice."},
	{Label: "Writer", Prompt: "You are a creative writer helping with content."},
}

// PresetIndex returns the index of the preset whose prompt equals prompt, or -1.
func PresetIndex(prompt string) int {
	for i, p := range RolePresets {
		if p.Prompt == prompt {
			return i
		}
	}
	return -1
}
