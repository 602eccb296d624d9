package ai

import (
	"context"
	"embed"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

const (
	chunkSize    = 500
	chunkOverlap = 50
	// DefaultRetrieveCount is the number of chunks placed into the prompt.
	DefaultRetrieveCount = 4
)

//go:embed knowledge/*.md
var builtinKnowledge embed.FS

type chunk struct {
	source string
	text   string
	terms  map[string]struct{}
}

// Knowledge holds the documents the assistant answers from, split into
// chunks and ranked per question by term overlap.
type Knowledge struct {
	loader   document.Loader
	splitter document.Transformer
	paths    []string
	logger   zerolog.Logger

	mu     sync.RWMutex
	resume string
	chunks []chunk
}

// NewKnowledge builds the document loader and performs the first load.
// Extra documents that fail to load are logged and skipped.
func NewKnowledge(ctx context.Context, paths []string, logger zerolog.Logger) (*Knowledge, error) {
	pdfParser, err := pdf.NewPDFParser(ctx, &pdf.Config{})
	if err != nil {
		return nil, fmt.Errorf("init pdf parser: %w", err)
	}
	parserExt, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		Parsers: map[string]parser.Parser{
			".pdf": pdfParser,
		},
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("init document parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      parserExt,
	})
	if err != nil {
		return nil, fmt.Errorf("init document loader: %w", err)
	}
	splitter, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   chunkSize,
		OverlapSize: chunkOverlap,
		Separators:  []string{"\n\n", "\n", ". ", " "},
		LenFunc:     utf8.RuneCountInString,
	})
	if err != nil {
		return nil, fmt.Errorf("init document splitter: %w", err)
	}
	k := &Knowledge{loader: loader, splitter: splitter, paths: paths, logger: logger}
	if err := k.Reload(ctx); err != nil {
		return nil, err
	}
	return k, nil
}

// IndexResume makes path the resume document and rebuilds the index.
func (k *Knowledge) IndexResume(ctx context.Context, path string) error {
	k.mu.Lock()
	k.resume = path
	k.mu.Unlock()
	return k.Reload(ctx)
}

// Reload re-reads the built-in, configured and resume documents.
func (k *Knowledge) Reload(ctx context.Context) error {
	var chunks []chunk

	entries, err := builtinKnowledge.ReadDir("knowledge")
	if err != nil {
		return fmt.Errorf("read built-in knowledge: %w", err)
	}
	for _, entry := range entries {
		data, err := builtinKnowledge.ReadFile("knowledge/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		doc := &schema.Document{ID: entry.Name(), Content: string(data)}
		split, err := k.split(ctx, entry.Name(), []*schema.Document{doc})
		if err != nil {
			return err
		}
		chunks = append(chunks, split...)
	}

	k.mu.RLock()
	paths := append([]string(nil), k.paths...)
	if k.resume != "" {
		paths = append(paths, k.resume)
	}
	k.mu.RUnlock()

	for _, path := range paths {
		docs, err := k.loader.Load(ctx, document.Source{URI: path})
		if err != nil {
			k.logger.Warn().Err(err).Str("path", path).Msg("load knowledge document")
			continue
		}
		split, err := k.split(ctx, filepath.Base(path), docs)
		if err != nil {
			k.logger.Warn().Err(err).Str("path", path).Msg("split knowledge document")
			continue
		}
		chunks = append(chunks, split...)
	}

	k.mu.Lock()
	k.chunks = chunks
	k.mu.Unlock()
	k.logger.Info().Int("chunks", len(chunks)).Msg("knowledge index built")
	return nil
}

func (k *Knowledge) split(ctx context.Context, source string, docs []*schema.Document) ([]chunk, error) {
	parts, err := k.splitter.Transform(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", source, err)
	}
	out := make([]chunk, 0, len(parts))
	for _, part := range parts {
		text := strings.TrimSpace(part.Content)
		if text == "" {
			continue
		}
		out = append(out, chunk{source: source, text: text, terms: terms(text)})
	}
	return out, nil
}

// Retrieve returns up to n chunks ranked by how many query terms they
// contain. With no overlap at all the leading chunks are returned.
func (k *Knowledge) Retrieve(query string, n int) []string {
	if n <= 0 {
		n = DefaultRetrieveCount
	}
	k.mu.RLock()
	defer k.mu.RUnlock()

	type scored struct {
		idx   int
		score int
	}
	queryTerms := terms(query)
	ranked := make([]scored, len(k.chunks))
	for i, c := range k.chunks {
		score := 0
		for t := range queryTerms {
			if _, ok := c.terms[t]; ok {
				score++
			}
		}
		ranked[i] = scored{idx: i, score: score}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]string, 0, n)
	for _, r := range ranked[:n] {
		out = append(out, k.chunks[r.idx].text)
	}
	return out
}

// Len reports the number of indexed chunks.
func (k *Knowledge) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.chunks)
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "what": {}, "his": {}, "him": {},
	"does": {}, "with": {}, "about": {}, "you": {}, "has": {}, "have": {}, "tell": {},
	"he": {}, "which": {}, "who": {}, "how": {}, "can": {}, "this": {}, "that": {},
}

func terms(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	}) {
		if len([]rune(word)) < 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		out[word] = struct{}{}
	}
	return out
}
