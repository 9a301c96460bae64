package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"dicescraper/pkg/config"
	"dicescraper/pkg/dice"
	errs "dicescraper/pkg/errors"
	"dicescraper/pkg/models"
)

// Record keys written by Enrich
const (
	FieldPositionTypes   = "Position Types (AI)"
	FieldPositionPhrases = "Position Phrases (AI)"
)

// Supported providers
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// Generator produces a completion for a single prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is the parsed model answer
type Result struct {
	PositionTypes []string `json:"position_types"`
	RawPhrases    []string `json:"raw_phrases"`
}

// Classifier tags records with position types found in their description
type Classifier struct {
	gen     Generator
	timeout time.Duration
}

// New wraps a Generator
func New(gen Generator, timeout time.Duration) *Classifier {
	return &Classifier{gen: gen, timeout: timeout}
}

// NewLLM builds a classifier backed by a langchaingo model
func NewLLM(cfg config.ClassifierConfig, apiKey string) (*Classifier, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.Provider {
	case ProviderOllama, "":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderOpenAI, ProviderGroq:
		if apiKey == "" {
			return nil, fmt.Errorf("%s API key required", cfg.Provider)
		}
		opts := []openai.Option{
			openai.WithToken(apiKey),
			openai.WithModel(cfg.Model),
		}
		baseURL := cfg.BaseURL
		if baseURL == "" && cfg.Provider == ProviderGroq {
			baseURL = groqBaseURL
		}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create %s model: %w", cfg.Provider, err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return New(&llmGenerator{llm: model}, cfg.Timeout), nil
}

type llmGenerator struct {
	llm llms.Model
}

func (g *llmGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, llms.WithTemperature(0.2))
}

// Classify asks the model for the position types in description
func (c *Classifier) Classify(ctx context.Context, description string) (*Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := c.gen.Generate(ctx, BuildPrompt(description))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeClassifier, "generate", err)
	}
	return ParseResponse(text), nil
}

// Enrich classifies the record's job description and stores the tags on it.
// Records without a usable description are left alone.
func (c *Classifier) Enrich(ctx context.Context, rec *models.Record) error {
	desc := rec.GetString(dice.FieldJobDescription)
	if desc == "" || desc == models.Unavailable || desc == models.NotAvailable {
		return nil
	}

	res, err := c.Classify(ctx, desc)
	if err != nil {
		return err
	}
	rec.Set(FieldPositionTypes, res.PositionTypes)
	rec.Set(FieldPositionPhrases, res.RawPhrases)
	return nil
}

// ParseResponse reads the model output. It tries the whole text as JSON,
// then the outermost {...} block, and finally treats the text as a single
// position type.
func ParseResponse(text string) *Result {
	text = strings.TrimSpace(text)

	if r, ok := decode(text); ok {
		return r
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start != -1 && end > start {
		if r, ok := decode(text[start : end+1]); ok {
			return r
		}
	}
	return &Result{PositionTypes: []string{text}, RawPhrases: []string{}}
}

func decode(text string) (*Result, bool) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}
	return &Result{
		PositionTypes: stringList(raw["position_types"]),
		RawPhrases:    stringList(raw["raw_phrases"]),
	}, true
}

// stringList coerces a JSON value into a list of strings
func stringList(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if val == "" {
			return []string{}
		}
		return []string{val}
	default:
		return []string{fmt.Sprint(val)}
	}
}
