package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

func parsePDF(data []byte) (kind Kind, text, structure string, err error) {
	// The pdf reader panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", "", "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", "", "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", "", "", err
	}
	return KindPDF, strings.TrimSpace(buf.String()), plural(r.NumPage(), "page"), nil
}

// parseDOCX reads the paragraphs of word/document.xml.
func parseDOCX(data []byte) (Kind, string, string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", "", "", err
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", "", "", errors.New("word/document.xml missing")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", "", "", err
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(io.LimitReader(rc, MaxFileSize))
	if err != nil {
		return "", "", "", err
	}
	return KindDOCX, strings.Join(paragraphs, "\n"), plural(len(paragraphs), "paragraph"), nil
}

// docxParagraphs collects w:t text per w:p, turning w:tab and w:br into
// whitespace. Empty paragraphs are dropped.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		cur        strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := strings.TrimSpace(cur.String()); p != "" {
					paragraphs = append(paragraphs, p)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return paragraphs, nil
}

// parseXLSX renders every sheet as "Sheet: name" followed by its rows,
// cells joined with ", ".
func parseXLSX(data []byte) (Kind, string, string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", "", "", err
	}
	defer f.Close()

	var (
		text   strings.Builder
		shapes []string
	)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", "", "", fmt.Errorf("sheet %s: %w", sheet, err)
		}
		cols := 0
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		fmt.Fprintf(&text, "Sheet: %s", sheet)
		for _, row := range rows {
			cols = max(cols, len(row))
			text.WriteString("\n")
			text.WriteString(strings.Join(row, ", "))
		}
		shapes = append(shapes, fmt.Sprintf("%s (%d rows, %d columns)", sheet, len(rows), cols))
	}
	structure := fmt.Sprintf("%s: %s", plural(len(shapes), "sheet"), strings.Join(shapes, ", "))
	return KindXLSX, text.String(), structure, nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
