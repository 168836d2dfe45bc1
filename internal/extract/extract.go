// Package extract reads local files into plain text for summarization.
package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
)

var (
	ErrNotFound          = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrParse             = errors.New("could not parse file")
)

// MaxFileSize bounds how much of a file is read.
const MaxFileSize = 10 << 20

// Kind is the detected document type.
type Kind string

const (
	KindText Kind = "Text"
	KindJSON Kind = "JSON"
	KindCSV  Kind = "CSV"
	KindHTML Kind = "HTML"
	KindPDF  Kind = "PDF"
	KindDOCX Kind = "DOCX"
	KindXLSX Kind = "Excel"
)

// Document is the text extracted from one file.
type Document struct {
	Path  string `json:"path,omitempty"`
	Name  string `json:"file_name"`
	Kind  Kind   `json:"file_type"`
	Text  string `json:"text"`
	Lines int    `json:"line_count"`
	Words int    `json:"word_count"`

	// Structure describes the layout, e.g. "object with 3 keys: a, b, c"
	// or "2 pages".
	Structure string `json:"structure,omitempty"`
}

var parsers = map[string]func([]byte) (Kind, string, string, error){
	".txt":      parseText,
	".md":       parseText,
	".markdown": parseText,
	".log":      parseText,
	".json":     parseJSON,
	".csv":      parseCSV,
	".html":     parseHTML,
	".htm":      parseHTML,
	".pdf":      parsePDF,
	".docx":     parseDOCX,
	".xlsx":     parseXLSX,
	".xlsm":     parseXLSX,
}

// legacy binary office formats
var unsupported = map[string]bool{
	".doc": true,
	".xls": true,
	".ppt": true,
}

// Supported lists the handled extensions, sorted.
func Supported() []string {
	out := make([]string, 0, len(parsers))
	for ext := range parsers {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extract reads path and returns its text.
func Extract(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedFormat, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	parse, ok := parsers[ext]
	if !ok {
		if unsupported[ext] {
			return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(Supported(), ", "))
		}
		if ext == "" {
			ext = "no extension"
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	kind, text, structure, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, filepath.Base(path), err)
	}
	return &Document{
		Path:      path,
		Name:      filepath.Base(path),
		Kind:      kind,
		Text:      text,
		Lines:     countLines(text),
		Words:     len(strings.Fields(text)),
		Structure: structure,
	}, nil
}

func parseText(data []byte) (Kind, string, string, error) {
	if !utf8.Valid(data) {
		return "", "", "", errors.New("not valid UTF-8 text")
	}
	return KindText, strings.TrimSpace(string(data)), "", nil
}

func parseJSON(data []byte) (Kind, string, string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", "", "", err
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", "", "", err
	}
	return KindJSON, string(pretty), describeJSON(v), nil
}

func describeJSON(v any) string {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("object with %d keys: %s", len(keys), strings.Join(keys, ", "))
	case []any:
		seen := map[string]bool{}
		var types []string
		for _, item := range x[:min(len(x), 10)] {
			t := jsonType(item)
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
		return fmt.Sprintf("array of %d items (%s)", len(x), strings.Join(types, ", "))
	default:
		return jsonType(v)
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func parseCSV(data []byte) (Kind, string, string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return "", "", "", err
	}
	if len(records) == 0 {
		return KindCSV, "", "0 rows", nil
	}

	header := records[0]
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(strings.Join(rec, ", "))
		b.WriteByte('\n')
	}
	structure := fmt.Sprintf("%d rows, %d columns: %s", len(records)-1, len(header), strings.Join(header, ", "))
	return KindCSV, strings.TrimSpace(b.String()), structure, nil
}

func parseHTML(data []byte) (Kind, string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", "", "", err
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, title)
	}
	blocks := doc.Find("body").Find("h1, h2, h3, h4, h5, h6, p, li, pre, td, blockquote")
	blocks.Each(func(_ int, s *goquery.Selection) {
		if t := collapse(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if blocks.Length() == 0 {
		if body := collapse(doc.Find("body").Text()); body != "" {
			parts = append(parts, body)
		}
	}
	return KindHTML, strings.Join(parts, "\n\n"), "", nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
