package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/sorma/internal/chunker"
	"github.com/rcliao/sorma/internal/extract"
)

// summaryBudget caps the bytes of document text sent for summarization.
const summaryBudget = 2000

// ProcessFile extracts path, asks a model for a summary of its leading
// sections and remembers that the file was processed. Without a model the
// reply falls back to the document's counts.
func (a *Assistant) ProcessFile(ctx context.Context, path string) Reply {
	if path == "" {
		return Reply{Text: "Usage: process file: <path>"}
	}

	_, reply, err := a.SummarizeFile(ctx, path)
	switch {
	case errors.Is(err, extract.ErrNotFound):
		return Reply{Text: "File not found: " + path}
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return Reply{Text: fmt.Sprintf("Cannot process %s: %v", path, err)}
	case err != nil:
		return Reply{Text: fmt.Sprintf("Error processing file: %v", err)}
	}

	if _, err := a.mem.RememberFact(ctx, "Processed file: "+path, "file"); err != nil {
		a.logger.Warn("assistant: file fact not saved", "path", path, "error", err)
	}
	reply.Text = "File processed successfully!\n\n" + reply.Text
	return reply
}

// SummarizeFile extracts path and summarizes it without touching memory.
// The error is non-nil only when the file could not be extracted; a model
// failure yields the document's counts as the reply text.
func (a *Assistant) SummarizeFile(ctx context.Context, path string) (*extract.Document, Reply, error) {
	doc, err := extract.Extract(path)
	if err != nil {
		if !errors.Is(err, extract.ErrNotFound) && !errors.Is(err, extract.ErrUnsupportedFormat) {
			a.logger.Warn("assistant: extract failed", "path", path, "error", err)
		}
		return nil, Reply{}, err
	}

	reply := Reply{Text: fmt.Sprintf("File processed: %s (%d lines, %d words)", doc.Name, doc.Lines, doc.Words)}
	if doc.Structure != "" {
		reply.Text += "\nStructure: " + doc.Structure
	}

	lead := chunker.Lead(chunker.Split(doc.Text, chunker.DefaultOptions()), summaryBudget)
	if lead == "" {
		return doc, reply, nil
	}
	prompt := fmt.Sprintf("Please provide a concise summary of this %s content:\n\n%s", doc.Kind, lead)
	res, err := a.models.Generate(ctx, prompt, "")
	a.metrics.RecordGeneration(string(res.Backend))
	if err != nil {
		a.logger.Warn("assistant: summary unavailable", "path", path, "error", err)
		return doc, reply, nil
	}
	return doc, Reply{Text: res.Text, Backend: res.Backend, Model: res.Model}, nil
}
