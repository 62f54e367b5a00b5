package evaluator

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	loremgen "github.com/bozaro/golorem"

	"github.com/lewtec/imgreader/internal/domain"
)

// Lorem is an offline evaluator producing placeholder descriptions.
// Used for development and tests without an API key.
type Lorem struct {
	mu        sync.Mutex
	generator *loremgen.Lorem
}

// NewLorem creates a lorem ipsum evaluator.
func NewLorem() *Lorem {
	return &Lorem{generator: loremgen.New()}
}

func (l *Lorem) Evaluate(ctx context.Context, in Input) (*domain.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	description := l.generator.Sentence(4, 8)
	word := l.generator.Word(3, 6)
	l.mu.Unlock()

	raw, err := json.Marshal(modelOutput{
		BriefDescription: description,
		SuggestedSuffix:  "_" + strings.ToUpper(word),
	})
	if err != nil {
		return nil, err
	}
	return ParseOutput(string(raw), in.OriginalPath)
}
