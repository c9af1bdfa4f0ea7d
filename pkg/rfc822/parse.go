package rfc822

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"
)

// Parser parses RFC822-style messages, extended with deb822's blank-line
// stanza separator and last-write-wins duplicate-field handling.
type Parser struct{}

// NewParser creates a new RFC822-style message parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseHeader parses a single header: fields up to the first blank line (or
// EOF). Anything after the first blank line is ignored — callers wanting
// every stanza in a multi-stanza document should use ParseRecords.
func (p *Parser) ParseHeader(r io.Reader) (Header, error) {
	var header Header
	for h, err := range p.ParseRecords(r) {
		if err != nil {
			return nil, err
		}
		header = h
		break
	}
	return header, nil
}

// ParseRecords returns an iterator over stanzas (blank-line-separated
// groups of fields) from an RFC822/deb822-style document.
func (p *Parser) ParseRecords(r io.Reader) iter.Seq2[Header, error] {
	return func(yield func(Header, error) bool) {
		if err := p.parseRecords(r, yield); err != nil {
			yield(nil, err)
		}
	}
}

func (p *Parser) parseRecords(r io.Reader, yield func(Header, error) bool) error {
	scanner := bufio.NewScanner(r)
	var current Header
	var currentField string
	var currentValue strings.Builder

	// flushCurrentField records (or overwrites, per the last-write-wins duplicate policy)
	// the field named by currentField before starting a new one.
	flushCurrentField := func() {
		if currentField == "" {
			return
		}
		value := strings.TrimSpace(currentValue.String())
		lines := strings.Split(value, "\n")
		if i := indexOfField(current, currentField); i >= 0 {
			current[i].Value = lines
		} else {
			current = append(current, Field{Name: currentField, Value: lines})
		}
		currentField = ""
		currentValue.Reset()
	}

	flushCurrentRecord := func() bool {
		flushCurrentField()
		if len(current) > 0 {
			if !yield(current, nil) {
				return false
			}
			current = Header{}
		}
		return true
	}

	for scanner.Scan() {
		line := scanner.Text()

		// Comment lines aren't RFC822, but deb822 documents use them and
		// it's simplest to swallow them here.
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
			continue
		}

		if strings.TrimSpace(line) == "" {
			if !flushCurrentRecord() {
				return nil
			}
			continue
		}

		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			if currentField == "" {
				// continuation without a preceding field: recoverable, skip the line
				continue
			}
			currentValue.WriteString("\n")
			currentValue.WriteString(strings.TrimLeft(line, " \t"))
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			// line without a colon: recoverable, skip the line
			continue
		}

		flushCurrentField()

		fieldName := strings.TrimSpace(parts[0])
		if err := p.validateFieldName(fieldName); err != nil {
			return fmt.Errorf("invalid field name %q: %w", fieldName, err)
		}

		currentField = fieldName
		currentValue.WriteString(strings.TrimLeft(parts[1], " \t"))
	}

	flushCurrentRecord()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

func indexOfField(h Header, name string) int {
	for i, f := range h {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// validateFieldName checks if a field name is valid according to RFC822 rules.
func (p *Parser) validateFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if strings.HasPrefix(name, "#") || strings.HasPrefix(name, "-") {
		return fmt.Errorf("field name cannot start with '#' or '-'")
	}
	if !validFieldName.MatchString(name) {
		return fmt.Errorf("field name contains invalid characters (must be US-ASCII excluding control chars, spaces, and colons)")
	}
	return nil
}

var validFieldName = regexp.MustCompile(`^[!-9;-~]+$`)
