// Package pipeline chains layout extraction, feature construction, labelling
// and TEI emission for whole documents.
package pipeline

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-medreport/internal/cluster"
	"github.com/a3tai/mcp-medreport/internal/errors"
	"github.com/a3tai/mcp-medreport/internal/features"
	"github.com/a3tai/mcp-medreport/internal/labels"
	"github.com/a3tai/mcp-medreport/internal/layout"
	"github.com/a3tai/mcp-medreport/internal/layout/pdfsource"
	"github.com/a3tai/mcp-medreport/internal/tagger"
	"github.com/a3tai/mcp-medreport/internal/tei"
)

// Result is the outcome of processing one document.
type Result struct {
	ID string `json:"id"`
	// Empty is set when the document has no text to featurise.
	Empty bool `json:"empty"`
	// Labeled is false when no tagger is configured; only the features and
	// the unlabeled text are then available.
	Labeled bool `json:"labeled"`

	Features string         `json:"features,omitempty"`
	Tokens   []layout.Token `json:"-"`
	Result   string         `json:"result,omitempty"`
	Body     string         `json:"body,omitempty"`

	Figures  []tei.Span        `json:"-"`
	Tables   []tei.Span        `json:"-"`
	Mapping  map[string]string `json:"mapping,omitempty"`
	Callouts cluster.Callouts  `json:"callouts"`
	Desyncs  int               `json:"desyncs"`
	Records  int               `json:"records"`

	// Paragraphs and Items hold the text of each paragraph and list item.
	// Figure and table markers inside them are kept in place.
	Paragraphs []string `json:"paragraphs,omitempty"`
	Items      []string `json:"items,omitempty"`
}

// TEI returns the complete TEI document: the labeled body, or the escaped
// raw text when the document was not labeled.
func (r *Result) TEI() string {
	if r.Labeled {
		return tei.Document(r.ID, r.Body)
	}
	return tei.Document(r.ID, tei.Escape(layout.Text(r.Tokens)))
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records activity in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithSource sets the PDF reader used by ProcessFile.
func WithSource(s *pdfsource.Source) Option {
	return func(e *Engine) {
		e.source = s
	}
}

// WithEmitterOptions configures the TEI emitter.
func WithEmitterOptions(opts ...tei.Option) Option {
	return func(e *Engine) {
		e.emitterOpts = append(e.emitterOpts, opts...)
	}
}

// WithClusterWindow sets the lookahead used when clustering labels.
func WithClusterWindow(window int) Option {
	return func(e *Engine) {
		e.window = window
	}
}

// Engine processes documents. It keeps no per-document state: every call
// uses its own builder and emission state, so one engine may serve
// concurrent calls.
type Engine struct {
	tagger      tagger.Tagger
	source      *pdfsource.Source
	metrics     *Metrics
	emitterOpts []tei.Option
	window      int
	logger      *zap.Logger

	builder   *features.FullTextBuilder
	emitter   *tei.Emitter
	clusteror *cluster.Clusteror
}

// NewEngine creates an engine. A nil tagger limits processing to feature
// construction.
func NewEngine(t tagger.Tagger, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{tagger: t, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.source == nil {
		e.source = pdfsource.New(pdfsource.Options{}, logger)
	}
	e.builder = features.NewFullTextBuilder(logger)
	e.emitter = tei.NewEmitter(logger, e.emitterOpts...)
	e.clusteror = cluster.NewClusteror(logger, e.window)
	return e
}

// Featurize builds the full text features of the whole document.
func (e *Engine) Featurize(doc *layout.Document) (*features.FullTextResult, error) {
	if doc == nil {
		return nil, nil
	}
	return e.builder.Build(doc, doc.WholeDocument())
}

// Process featurises, labels and emits doc.
func (e *Engine) Process(ctx context.Context, doc *layout.Document, id string) (*Result, error) {
	res := &Result{ID: id}

	ft, err := e.Featurize(doc)
	if err != nil {
		e.metrics.document(OutcomeFailed)
		return nil, asProcessingError(err, id)
	}
	if ft == nil || strings.TrimSpace(ft.Features) == "" {
		e.metrics.document(OutcomeEmpty)
		res.Empty = true
		return res, nil
	}
	res.Features = ft.Features
	res.Tokens = ft.Tokens
	res.Records = len(ft.Records)
	e.metrics.featurised(len(ft.Tokens))

	if e.tagger == nil {
		e.metrics.document(OutcomeProcessed)
		return res, nil
	}

	start := time.Now()
	labeled, err := tagger.Run(ctx, e.tagger, ft.Features)
	e.metrics.tagged(time.Since(start).Seconds())
	if err != nil {
		e.metrics.document(OutcomeFailed)
		return nil, asProcessingError(err, id)
	}

	res.Labeled = true
	res.Result = labeled
	res.Body = e.emitter.Emit(labeled, ft.Tokens)
	res.Figures = tei.FigureSpans(labeled, ft.Tokens)
	res.Tables = tei.TableSpans(labeled, ft.Tokens)

	clustered := e.clusteror.Cluster(labeled, ft.Tokens)
	res.Desyncs = clustered.Desyncs
	res.Callouts = cluster.MajorityCallouts(clustered.Clusters)
	res.Mapping = make(map[string]string)
	for tag, tokens := range cluster.ResultMapping(clustered.Clusters) {
		if tag == labels.TagNone {
			continue
		}
		res.Mapping[tag.String()] = layout.Text(tokens)
	}
	res.Paragraphs = sequenceTexts(cluster.FullTextSequences(clustered.Clusters, labels.TagParagraph))
	res.Items = sequenceTexts(cluster.FullTextSequences(clustered.Clusters, labels.TagItem))
	e.metrics.desynced(clustered.Desyncs)
	e.metrics.document(OutcomeProcessed)

	e.logger.Debug("document processed",
		zap.String("id", id),
		zap.Int("records", res.Records),
		zap.Int("figures", len(res.Figures)),
		zap.Int("tables", len(res.Tables)),
		zap.Int("paragraphs", len(res.Paragraphs)),
		zap.Int("desyncs", res.Desyncs))
	return res, nil
}

// ProcessFile reads the PDF at path and processes it. The document id is the
// file name without its extension.
func (e *Engine) ProcessFile(ctx context.Context, path string) (*Result, error) {
	doc, err := e.source.Open(ctx, path)
	if err != nil {
		e.metrics.document(OutcomeFailed)
		return nil, asProcessingError(err, path)
	}
	return e.Process(ctx, doc, DocumentID(path))
}

// DocumentID derives a document id from a file path.
func DocumentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func sequenceTexts(sequences [][]layout.Token) []string {
	var out []string
	for _, seq := range sequences {
		if text := strings.TrimSpace(layout.Text(seq)); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func asProcessingError(err error, doc string) error {
	if perr, ok := errors.As(err); ok {
		if perr.Document == "" {
			perr.Document = doc
		}
		return perr
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Wrap(errors.ErrorTypeUnknown, err).WithDocument(doc)
}
