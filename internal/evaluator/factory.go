package evaluator

import "fmt"

const (
	ProviderAnthropic = "anthropic"
	ProviderLorem     = "lorem"
)

// Config selects and tunes an evaluator provider
type Config struct {
	Provider  string
	Model     string
	MaxTokens int64
	Jobs      int
}

// Factory builds an evaluator for the API key of each evaluation call.
type Factory func(apiKey string) (Evaluator, error)

// NewFactory returns the Factory for a provider configuration.
func NewFactory(cfg Config) (Factory, error) {
	switch cfg.Provider {
	case ProviderAnthropic, "":
		return func(apiKey string) (Evaluator, error) {
			return NewAnthropic(apiKey, cfg.Model, cfg.MaxTokens)
		}, nil
	case ProviderLorem:
		lorem := NewLorem()
		return func(string) (Evaluator, error) { return lorem, nil }, nil
	default:
		return nil, fmt.Errorf("unknown evaluator provider '%s'", cfg.Provider)
	}
}

// Static returns a Factory that always hands out ev.
func Static(ev Evaluator) Factory {
	return func(string) (Evaluator, error) { return ev, nil }
}
