// Package pdfsource reads a PDF file into the layout token model.
package pdfsource

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-medreport/internal/errors"
	"github.com/a3tai/mcp-medreport/internal/layout"
	"github.com/a3tai/mcp-medreport/internal/pagerange"
)

// Default page size, US Letter, used when no page box can be read.
const (
	defaultWidth  = 612.0
	defaultHeight = 792.0
)

// Options configures a Source.
type Options struct {
	// MaxFileSize rejects larger files. Zero disables the check.
	MaxFileSize int64
	// Pages restricts extraction to the given pages. Empty means all pages.
	Pages []pagerange.Range
}

// Source turns PDF files into layout documents.
type Source struct {
	opts   Options
	logger *zap.Logger
}

// New creates a source. A nil logger disables logging.
func New(opts Options, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{opts: opts, logger: logger}
}

// Validate checks that path names a readable, non-empty PDF file within the
// size limit.
func (s *Source) Validate(path string) error {
	if path == "" {
		return errors.New(errors.ErrorTypeInvalidInput, "path cannot be empty")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.New(errors.ErrorTypeResourceNotFound, "file does not exist").WithDocument(path)
	}
	if err != nil {
		return errors.Wrap(errors.ErrorTypeInvalidInput, err).WithDocument(path)
	}
	if info.IsDir() {
		return errors.New(errors.ErrorTypeInvalidInput, "path is a directory, not a file").WithDocument(path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return errors.New(errors.ErrorTypeInvalidInput, "file is not a PDF").WithDocument(path)
	}
	if info.Size() == 0 {
		return errors.New(errors.ErrorTypeInvalidInput, "file is empty").WithDocument(path)
	}
	if s.opts.MaxFileSize > 0 && info.Size() > s.opts.MaxFileSize {
		return errors.Newf(errors.ErrorTypeInvalidInput, "file too large: %d bytes (max: %d bytes)",
			info.Size(), s.opts.MaxFileSize).WithDocument(path)
	}
	return nil
}

// pageSizes reads the page dimensions with pdfcpu in relaxed mode.
func (s *Source) pageSizes(path string) ([][2]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	out := make([][2]float64, len(dims))
	for i, d := range dims {
		out[i] = [2]float64{d.Width, d.Height}
	}
	return out, nil
}

// Open reads the document at path. The context is checked between pages.
func (s *Source) Open(ctx context.Context, path string) (*layout.Document, error) {
	if err := s.Validate(path); err != nil {
		return nil, err
	}

	sizes, err := s.pageSizes(path)
	if err != nil {
		s.logger.Warn("page dimensions unavailable, using page boxes",
			zap.String("path", path), zap.Error(err))
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeInvalidInput, fmt.Errorf("invalid PDF file: %w", err)).WithDocument(path)
	}
	defer f.Close()

	total := r.NumPage()
	ranges := pagerange.Clamp(s.opts.Pages, total)

	b := layout.NewDocumentBuilder()
	blocks := 0
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(s.opts.Pages) > 0 && !selected(ranges, i) {
			continue
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		width, height := mediaBox(p)
		if i-1 < len(sizes) && sizes[i-1][0] > 0 && sizes[i-1][1] > 0 {
			width, height = sizes[i-1][0], sizes[i-1][1]
		}
		page := b.AddPage(i, width, height)

		content, err := pageContent(p)
		if err != nil {
			s.logger.Warn("skipping unreadable page",
				zap.String("path", path), zap.Int("page", i), zap.Error(err))
			continue
		}

		glyphs := make([]glyph, 0, len(content.Text))
		for _, t := range content.Text {
			glyphs = append(glyphs, glyph{S: t.S, Font: t.Font, X: t.X, Y: t.Y, W: t.W, Size: t.FontSize})
		}
		blocks += layoutPage(b, page, glyphs)

		for _, g := range vectorGraphics(page, content.Rect) {
			b.AddGraphic(g)
		}
		for _, g := range imageGraphics(p, page) {
			b.AddGraphic(g)
		}
	}

	doc := b.Build()
	s.logger.Debug("layout extracted",
		zap.String("path", path),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("blocks", blocks),
		zap.Int("tokens", len(doc.Tokens)),
		zap.Int("graphics", len(doc.Graphics)))
	return doc, nil
}

func selected(ranges []pagerange.Range, page int) bool {
	for _, r := range ranges {
		if r.Contains(page) {
			return true
		}
	}
	return false
}

// pageContent decodes the content stream, turning decoder panics on
// malformed streams into errors.
func pageContent(p pdf.Page) (content pdf.Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()
	return p.Content(), nil
}

// mediaBox returns the page size from the MediaBox, inherited from parent
// page nodes, or US Letter.
func mediaBox(p pdf.Page) (width, height float64) {
	defer func() {
		if r := recover(); r != nil {
			width, height = defaultWidth, defaultHeight
		}
	}()
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() >= 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
	}
	return defaultWidth, defaultHeight
}
