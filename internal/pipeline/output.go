package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-medreport/internal/errors"
	"github.com/a3tai/mcp-medreport/internal/labels"
	"github.com/a3tai/mcp-medreport/internal/tei"
)

// Training file suffixes, appended to the document id.
const (
	SuffixFeatures  = ".training.full.medical.text"
	SuffixTEI       = ".training.full.medical.text.tei.xml"
	SuffixBlankTEI  = ".training.full.medical.text.blank.tei.xml"
	SuffixFigure    = ".training.figure"
	SuffixFigureTEI = ".training.figure.tei.xml"
	SuffixTable     = ".training.table"
	SuffixTableTEI  = ".training.table.tei.xml"
)

// WriteTrainingFiles writes the training data of res into dir and returns
// the paths written. Empty results write nothing.
func WriteTrainingFiles(dir string, res *Result) ([]string, error) {
	if res == nil || res.Empty {
		return nil, nil
	}
	if dir == "" {
		return nil, errors.New(errors.ErrorTypeMissingWorkDir, "output directory is not set").WithDocument(res.ID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeMissingWorkDir, err).WithDocument(res.ID)
	}

	files := map[string]string{
		SuffixFeatures: res.Features + "\n",
	}
	if res.Labeled {
		files[SuffixTEI] = res.TEI()
		if len(res.Figures) > 0 {
			files[SuffixFigure] = featureBlocks(res.Figures)
			files[SuffixFigureTEI] = tei.SpansDocument(res.ID, res.Figures, labels.TagFigure)
		}
		if len(res.Tables) > 0 {
			files[SuffixTable] = featureBlocks(res.Tables)
			files[SuffixTableTEI] = tei.SpansDocument(res.ID, res.Tables, labels.TagTable)
		}
	} else {
		files[SuffixBlankTEI] = res.TEI()
	}

	var written []string
	for _, suffix := range []string{SuffixFeatures, SuffixTEI, SuffixBlankTEI, SuffixFigure, SuffixFigureTEI, SuffixTable, SuffixTableTEI} {
		content, ok := files[suffix]
		if !ok {
			continue
		}
		path := filepath.Join(dir, res.ID+suffix)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return written, errors.Wrap(errors.ErrorTypeUnknown, fmt.Errorf("failed to write %s: %w", path, err)).WithDocument(res.ID)
		}
		written = append(written, path)
	}
	return written, nil
}

// featureBlocks joins span feature rows, a blank line after each span.
func featureBlocks(spans []tei.Span) string {
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(s.FeatureBlock)
		sb.WriteString("\n")
	}
	return sb.String()
}
