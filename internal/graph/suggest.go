// Package graph asks a language model for a graph data model and a Cypher
// query describing a document page, and runs such queries against Neo4j.
package graph

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
)

var (
	ErrNoContent = fmt.Errorf("%w: no page content to describe", common.ErrInput)
	ErrNoCypher  = fmt.Errorf("%w: no valid Cypher query detected in the response", common.ErrInput)
)

const systemPrompt = "You are a helpful assistant. You are skilled in Neo4j (data models), Cypher and graph modelling."

// SuggesterOptions tunes the two model calls.
type SuggesterOptions struct {
	DataModelModel     string
	CypherModel        string
	DataModelMaxTokens int
	CypherMaxTokens    int
}

// Suggestion is the outcome of one suggestion run.
type Suggestion struct {
	DataModel string
	Reply     string
	Cypher    string
}

// Suggester drives the language model.
type Suggester struct {
	model  llms.Model
	opts   SuggesterOptions
	logger *zap.Logger
}

func NewSuggester(model llms.Model, opts SuggesterOptions, logger *zap.Logger) *Suggester {
	if opts.DataModelMaxTokens <= 0 {
		opts.DataModelMaxTokens = 500
	}
	if opts.CypherMaxTokens <= 0 {
		opts.CypherMaxTokens = 1000
	}
	return &Suggester{model: model, opts: opts, logger: logger}
}

// NewOpenAIModel builds the OpenAI chat model used in production.
func NewOpenAIModel(apiKey, baseURL, model string) (llms.Model, error) {
	opts := []openai.Option{openai.WithToken(apiKey)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	return openai.New(opts...)
}

// Suggest proposes a data model for pageText and a Cypher query creating it.
// When the reply carries no fenced query, the partial suggestion is returned
// together with ErrNoCypher.
func (s *Suggester) Suggest(ctx context.Context, pageText string) (*Suggestion, error) {
	dataModel, err := s.SuggestDataModel(ctx, pageText)
	if err != nil {
		return nil, err
	}

	reply, err := s.SuggestCypher(ctx, dataModel)
	if err != nil {
		return nil, err
	}

	out := &Suggestion{DataModel: dataModel, Reply: reply}
	cypher, err := ExtractCypher(reply)
	if err != nil {
		s.logger.Warn("model reply has no cypher block", zap.Int("reply_len", len(reply)))
		return out, err
	}
	out.Cypher = cypher
	return out, nil
}

// SuggestDataModel asks for a graph data model for the given page text.
func (s *Suggester) SuggestDataModel(ctx context.Context, pageText string) (string, error) {
	if strings.TrimSpace(pageText) == "" {
		return "", ErrNoContent
	}

	prompt := "Suggest graph data model based on elements extracted from PDF drawings in input_data: " + pageText
	opts := []llms.CallOption{llms.WithMaxTokens(s.opts.DataModelMaxTokens)}
	if s.opts.DataModelModel != "" {
		opts = append(opts, llms.WithModel(s.opts.DataModelModel))
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, s.model, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: suggest data model: %w", common.ErrNetwork, err)
	}
	s.logger.Debug("data model suggested", zap.Int("prompt_len", len(prompt)), zap.Int("reply_len", len(out)))
	return strings.TrimSpace(out), nil
}

// SuggestCypher asks for a Cypher query creating the given data model.
func (s *Suggester) SuggestCypher(ctx context.Context, dataModel string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman,
			"Generate a Neo4j Cypher query to create nodes and relationships, properties, and labels "+
				"based on the following suggested data model: "+dataModel),
	}
	opts := []llms.CallOption{llms.WithMaxTokens(s.opts.CypherMaxTokens)}
	if s.opts.CypherModel != "" {
		opts = append(opts, llms.WithModel(s.opts.CypherModel))
	}

	resp, err := s.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: suggest cypher: %w", common.ErrNetwork, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: suggest cypher: empty response", common.ErrNetwork)
	}
	return resp.Choices[0].Content, nil
}

var fenceRe = regexp.MustCompile("(?s)```(.*?)```")

// fence info strings that are dropped from the first line of a code block
var languageTags = map[string]bool{
	"":          true,
	"cypher":    true,
	"neo4j":     true,
	"cql":       true,
	"sql":       true,
	"text":      true,
	"plaintext": true,
}

// ExtractCypher returns the contents of the first fenced code block in reply.
func ExtractCypher(reply string) (string, error) {
	m := fenceRe.FindStringSubmatch(reply)
	if m == nil {
		return "", ErrNoCypher
	}

	body := m[1]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if languageTags[strings.ToLower(strings.TrimSpace(body[:nl]))] {
			body = body[nl+1:]
		}
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrNoCypher
	}
	return body, nil
}
