package retrieval

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/jotdown/internal/embedder"
	"github.com/dshills/jotdown/internal/generator"
	"github.com/dshills/jotdown/internal/vectorindex"
	"github.com/dshills/jotdown/pkg/types"
)

// Mode selects the retrieval strategy
type Mode string

const (
	ModeLiteral  Mode = "literal"  // Case-insensitive regular expression over content
	ModeSemantic Mode = "semantic" // Cosine ranking of stored vectors against the query embedding
	ModeAnswer   Mode = "answer"   // Semantic candidates passed to answer synthesis
)

// DefaultLimit is the number of semantic results (and answer candidates) returned by default
const DefaultLimit = 5

// MaxLimit caps any requested limit
const MaxLimit = 100

// ErrUnknownMode is returned for a mode outside ModeLiteral, ModeSemantic and ModeAnswer
var ErrUnknownMode = errors.New("unknown search mode")

// ParseMode converts user input to a Mode; empty input selects ModeLiteral
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLiteral:
		return ModeLiteral, nil
	case ModeSemantic:
		return ModeSemantic, nil
	case ModeAnswer:
		return ModeAnswer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Request describes one search over a set of thoughts
type Request struct {
	Query string
	Mode  Mode
	// Limit caps result count. Semantic and answer modes default to DefaultLimit;
	// literal mode returns every match unless a limit is given.
	Limit int
	Items []types.Thought // Candidate thoughts, newest first
}

// Response holds search output. Callers branch on Mode: literal and semantic
// fill Results, answer fills Answer and Sources.
type Response struct {
	Mode     Mode
	Query    string
	Results  []types.SearchResult
	Answer   string
	Sources  []types.SearchResult // Candidates the answer was synthesized from
	Keywords []string             // Answer mode: keyword cloud over all items, query matches first
	Skipped  int                  // Items excluded for vector dimension mismatch
	Duration time.Duration
}

// IsEmpty reports whether the response carries nothing to show
func (r *Response) IsEmpty() bool {
	return len(r.Results) == 0 && r.Answer == ""
}

// Options configures an Engine
type Options struct {
	DefaultLimit int
	Logger       zerolog.Logger
}

// Engine runs the three retrieval strategies. It keeps no state between calls.
type Engine struct {
	embedder     embedder.Embedder
	synthesizer  generator.AnswerSynthesizer
	defaultLimit int
	logger       zerolog.Logger
}

// New creates an Engine. synthesizer may be nil, in which case answer mode fails
// with types.ErrGenerationUnavailable.
func New(e embedder.Embedder, synthesizer generator.AnswerSynthesizer, opts Options) *Engine {
	limit := opts.DefaultLimit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Engine{
		embedder:     e,
		synthesizer:  synthesizer,
		defaultLimit: limit,
		logger:       opts.Logger,
	}
}

// Search runs req. An empty query returns an empty response without doing any work.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	if err := e.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	response := &Response{Mode: req.Mode, Query: req.Query}
	if req.Query == "" {
		return response, nil
	}

	var err error
	switch req.Mode {
	case ModeLiteral:
		err = e.literalSearch(req, response)
	case ModeSemantic:
		err = e.semanticSearch(ctx, req, response)
	case ModeAnswer:
		err = e.answerSearch(ctx, req, response)
	}
	if err != nil {
		return nil, err
	}

	response.Duration = time.Since(startTime)
	return response, nil
}

// validateRequest trims the query and fills defaults
func (e *Engine) validateRequest(req *Request) error {
	req.Query = strings.TrimSpace(req.Query)

	if req.Mode == "" {
		req.Mode = ModeLiteral
	}
	if _, err := ParseMode(string(req.Mode)); err != nil {
		return err
	}

	if req.Limit < 0 {
		req.Limit = 0
	}
	if req.Limit == 0 && req.Mode != ModeLiteral {
		req.Limit = e.defaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	return nil
}

// CompilePattern compiles query as a case-insensitive regular expression
func CompilePattern(query string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidPattern, err)
	}
	return re, nil
}

func (e *Engine) literalSearch(req Request, response *Response) error {
	re, err := CompilePattern(req.Query)
	if err != nil {
		return err
	}

	for _, item := range req.Items {
		if !re.MatchString(item.Content) {
			continue
		}
		response.Results = append(response.Results, types.SearchResult{
			Thought: item,
			Rank:    len(response.Results) + 1,
			Score:   1,
		})
		if req.Limit > 0 && len(response.Results) == req.Limit {
			break
		}
	}
	return nil
}

func (e *Engine) semanticSearch(ctx context.Context, req Request, response *Response) error {
	results, skipped, err := e.rank(ctx, req)
	if err != nil {
		return err
	}
	response.Results = results
	response.Skipped = skipped
	return nil
}

func (e *Engine) answerSearch(ctx context.Context, req Request, response *Response) error {
	if e.synthesizer == nil {
		return fmt.Errorf("%w: no answer synthesizer configured", types.ErrGenerationUnavailable)
	}

	sources, skipped, err := e.rank(ctx, req)
	if err != nil {
		return err
	}

	candidates := make([]types.Thought, len(sources))
	for i, s := range sources {
		candidates[i] = s.Thought
	}

	answer, err := e.synthesizer.SynthesizeAnswer(ctx, req.Query, candidates)
	if err != nil {
		if !errors.Is(err, types.ErrGenerationUnavailable) {
			err = fmt.Errorf("%w: %v", types.ErrGenerationUnavailable, err)
		}
		return fmt.Errorf("synthesize answer: %w", err)
	}

	texts := make([]string, len(req.Items))
	for i, item := range req.Items {
		texts[i] = item.Content
	}

	response.Answer = answer
	response.Sources = sources
	response.Skipped = skipped
	response.Keywords = PrioritizeKeywords(ExtractKeywords(texts), req.Query)
	return nil
}

// rank embeds the query and ranks the items' stored vectors against it
func (e *Engine) rank(ctx context.Context, req Request) ([]types.SearchResult, int, error) {
	if e.embedder == nil {
		return nil, 0, fmt.Errorf("%w: no embedder configured", types.ErrEmbeddingUnavailable)
	}

	emb, err := e.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		if !errors.Is(err, types.ErrEmbeddingUnavailable) {
			err = fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
		}
		return nil, 0, fmt.Errorf("embed query: %w", err)
	}

	entries := make([]vectorindex.Entry, len(req.Items))
	byID := make(map[string]types.Thought, len(req.Items))
	for i, item := range req.Items {
		entries[i] = vectorindex.Entry{ID: item.ID, Vector: item.Vector}
		byID[item.ID] = item
	}

	ranking, err := vectorindex.Rank(emb.Vector, entries, req.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("rank: %w", err)
	}

	for _, s := range ranking.Skipped {
		e.logger.Warn().
			Str("thought_id", s.ID).
			Int("dimension", s.Dimension).
			Int("query_dimension", len(emb.Vector)).
			Msg("thought skipped: vector dimension mismatch")
	}

	results := make([]types.SearchResult, len(ranking.Results))
	for i, scored := range ranking.Results {
		results[i] = types.SearchResult{
			Thought: byID[scored.ID],
			Rank:    i + 1,
			Score:   scored.Score,
		}
	}
	return results, len(ranking.Skipped), nil
}
