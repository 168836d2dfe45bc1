// Package chunker splits extracted document text into sections so that long
// files can be summarized from their leading part.
package chunker

import (
	"strings"
)

const (
	DefaultTargetSize = 400
	DefaultMaxSize    = 600
)

// Options configures section sizes in bytes.
type Options struct {
	TargetSize int
	MaxSize    int
}

// DefaultOptions returns the default section sizes.
func DefaultOptions() Options {
	return Options{TargetSize: DefaultTargetSize, MaxSize: DefaultMaxSize}
}

func (o Options) normalized() Options {
	if o.TargetSize <= 0 {
		o.TargetSize = DefaultTargetSize
	}
	if o.MaxSize < o.TargetSize {
		o.MaxSize = o.TargetSize
	}
	return o
}

// Section is a run of lines from the source text. Lines are 1-based.
type Section struct {
	Text      string
	StartLine int
	EndLine   int
}

// Split breaks text into sections on headings and paragraph breaks,
// merging neighbours up to TargetSize. Text no longer than MaxSize is a
// single section.
func Split(text string, opts Options) []Section {
	opts = opts.normalized()

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	first, last := 0, len(lines)-1
	for first <= last && strings.TrimSpace(lines[first]) == "" {
		first++
	}
	for last >= first && strings.TrimSpace(lines[last]) == "" {
		last--
	}
	if first > last {
		return nil
	}

	whole := strings.Join(lines[first:last+1], "\n")
	if len(whole) <= opts.MaxSize {
		return []Section{{Text: whole, StartLine: first + 1, EndLine: last + 1}}
	}
	return merge(paragraphs(lines, first, last), opts)
}

// Lead returns the leading sections joined by blank lines, stopping before
// the total would exceed budget. The first section is truncated to budget
// when it alone is too large.
func Lead(sections []Section, budget int) string {
	if len(sections) == 0 || budget <= 0 {
		return ""
	}
	var b strings.Builder
	for i, s := range sections {
		if i == 0 {
			if len(s.Text) > budget {
				return truncate(s.Text, budget)
			}
			b.WriteString(s.Text)
			continue
		}
		if b.Len()+2+len(s.Text) > budget {
			break
		}
		b.WriteString("\n\n")
		b.WriteString(s.Text)
	}
	return b.String()
}

// paragraphs groups lines[first..last] into blocks separated by blank lines
// or starting at markdown headings.
func paragraphs(lines []string, first, last int) []Section {
	var out []Section
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}
		out = append(out, Section{
			Text:      strings.TrimSpace(strings.Join(lines[start:end+1], "\n")),
			StartLine: start + 1,
			EndLine:   end + 1,
		})
		start = -1
	}

	for i := first; i <= last; i++ {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case trimmed == "":
			flush(i - 1)
		case strings.HasPrefix(trimmed, "#"):
			flush(i - 1)
			start = i
		case start < 0:
			start = i
		}
	}
	flush(last)
	return out
}

func merge(blocks []Section, opts Options) []Section {
	var out []Section
	var acc *Section

	emit := func() {
		if acc == nil {
			return
		}
		if len(acc.Text) > opts.MaxSize {
			out = append(out, hardSplit(*acc, opts)...)
		} else {
			out = append(out, *acc)
		}
		acc = nil
	}

	for _, b := range blocks {
		if acc == nil {
			acc = &b
			continue
		}
		if len(acc.Text)+2+len(b.Text) <= opts.TargetSize {
			acc.Text += "\n\n" + b.Text
			acc.EndLine = b.EndLine
			continue
		}
		emit()
		acc = &b
	}
	emit()
	return out
}

// hardSplit breaks an oversized section on line boundaries, and a single
// oversized line on word boundaries.
func hardSplit(s Section, opts Options) []Section {
	var out []Section
	var cur []string
	curLen := 0
	curStart := s.StartLine

	for i, line := range strings.Split(s.Text, "\n") {
		lineNo := s.StartLine + i
		if len(cur) > 0 && curLen+len(line) > opts.TargetSize {
			out = append(out, Section{Text: strings.Join(cur, "\n"), StartLine: curStart, EndLine: lineNo - 1})
			cur, curLen = nil, 0
		}
		if len(cur) == 0 {
			curStart = lineNo
		}
		if len(line) > opts.MaxSize {
			for _, piece := range wrapWords(line, opts.TargetSize) {
				out = append(out, Section{Text: piece, StartLine: lineNo, EndLine: lineNo})
			}
			continue
		}
		cur = append(cur, line)
		curLen += len(line) + 1
	}
	if len(cur) > 0 {
		out = append(out, Section{
			Text:      strings.TrimSpace(strings.Join(cur, "\n")),
			StartLine: curStart,
			EndLine:   curStart + len(cur) - 1,
		})
	}
	return out
}

func wrapWords(line string, size int) []string {
	var out []string
	var b strings.Builder
	for _, w := range strings.Fields(line) {
		if b.Len() > 0 && b.Len()+1+len(w) > size {
			out = append(out, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8Start(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }
