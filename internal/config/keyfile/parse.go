package keyfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxLineLength is the longest line Parse accepts.
const MaxLineLength = 1 << 20

// Parse reads a key-file from r. The name is used in error messages.
// Variables appearing before the first header go to the default section "".
func Parse(name string, r io.Reader) (*Document, error) {
	doc := NewDocument()
	section := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineLength)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(strings.TrimSuffix(scanner.Text(), "\r"))

		switch {
		case text == "":
			continue
		case text[0] == '#' || text[0] == ';':
			continue
		case text[0] == '[':
			if text[len(text)-1] != ']' {
				return nil, &ParseError{Path: name, Line: line, Message: "unterminated section header"}
			}
			section = strings.TrimSpace(text[1 : len(text)-1])
			if strings.ContainsAny(section, "[]") {
				return nil, &ParseError{Path: name, Line: line, Message: fmt.Sprintf("invalid section name %q", section)}
			}
			doc.Section(section)
		default:
			key, value, ok := strings.Cut(text, "=")
			if !ok {
				return nil, &ParseError{Path: name, Line: line, Message: "expected key = value"}
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, &ParseError{Path: name, Line: line, Message: "empty key"}
			}
			doc.Set(section, key, strings.TrimSpace(value))
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &ParseError{Path: name, Line: line + 1, Message: "line too long", Err: err}
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	return doc, nil
}
