package parameter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Parse reads one parameter map from r.
func Parse(r io.Reader) (Map, error) {
	m := Map{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		tokens, err := tokenize(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if len(tokens) == 0 {
			continue
		}
		key := tokens[0]
		if _, dup := m[key]; dup {
			return nil, fmt.Errorf("line %d: parameter %q given more than once", lineNo, key)
		}
		m[key] = tokens[1:]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading parameter file: %w", err)
	}
	return m, nil
}

// tokenize splits a "(Key v1 "v 2")" line into its key and values. Blank
// and comment-only lines yield no tokens.
func tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
		inEntry bool
		quoted  bool
	)
	flush := func() {
		if cur.Len() > 0 || quoted {
			tokens = append(tokens, cur.String())
		}
		cur.Reset()
		quoted = false
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote:
			if c == '"' {
				inQuote = false
			} else {
				cur.WriteByte(c)
			}
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			if inEntry {
				return nil, fmt.Errorf("unterminated parameter entry")
			}
			return tokens, nil
		case c == '(':
			if inEntry {
				return nil, fmt.Errorf("nested '(' in parameter entry")
			}
			if len(tokens) > 0 {
				return nil, fmt.Errorf("more than one parameter entry on a line")
			}
			inEntry = true
		case c == ')':
			if !inEntry {
				return nil, fmt.Errorf("unexpected ')'")
			}
			flush()
			inEntry = false
		case c == '"':
			if !inEntry {
				return nil, fmt.Errorf("value outside parameter entry")
			}
			inQuote = true
			quoted = true
		case c == ' ' || c == '\t' || c == '\r':
			if inEntry {
				flush()
			}
		default:
			if !inEntry {
				return nil, fmt.Errorf("unexpected %q outside parameter entry", c)
			}
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quoted value")
	}
	if inEntry {
		return nil, fmt.Errorf("unterminated parameter entry")
	}
	return tokens, nil
}

// Read loads a parameter map from the file at path.
func Read(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening parameter file: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("error parsing parameter file %s: %w", path, err)
	}
	return m, nil
}

// ErrUnencodable is returned when a key or value cannot be stored in the
// parameter file format, which has no escaping.
var ErrUnencodable = errors.New("parameter cannot be encoded")

// Check reports the first key or value of m that Encode cannot write so
// that Parse reads it back unchanged.
func Check(m Map) error {
	for _, key := range m.Keys() {
		if key == "" {
			return fmt.Errorf("%w: empty key", ErrUnencodable)
		}
		if strings.ContainsAny(key, "\"() \t\r\n") || strings.Contains(key, "//") {
			return fmt.Errorf("%w: key %q", ErrUnencodable, key)
		}
		for _, v := range m[key] {
			if strings.ContainsAny(v, "\"()\r\n") {
				return fmt.Errorf("%w: value %q of %s", ErrUnencodable, v, key)
			}
		}
	}
	return nil
}

// Encode writes m to w, one entry per line with keys in sorted order. It
// writes nothing when Check fails.
func Encode(w io.Writer, m Map) error {
	if err := Check(m); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, key := range m.Keys() {
		bw.WriteString("(")
		bw.WriteString(key)
		for _, v := range m[key] {
			bw.WriteString(" ")
			bw.WriteString(formatValue(v))
		}
		bw.WriteString(")\n")
	}
	return bw.Flush()
}

func formatValue(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	return `"` + v + `"`
}

// Write stores m in the file at path.
func Write(m Map, path string) error {
	if err := Check(m); err != nil {
		return fmt.Errorf("error writing parameter file %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating parameter file: %w", err)
	}
	if err := Encode(f, m); err != nil {
		f.Close()
		return fmt.Errorf("error writing parameter file %s: %w", path, err)
	}
	return f.Close()
}

// WriteStack stores stage i of s in paths[i].
func WriteStack(s Stack, paths []string) error {
	if len(s) != len(paths) {
		return fmt.Errorf("number of parameter maps (%d) does not match number of file names (%d)", len(s), len(paths))
	}
	for i, m := range s {
		if err := Write(m, paths[i]); err != nil {
			return err
		}
	}
	return nil
}

// Print writes a human readable listing of every stage in s.
func Print(w io.Writer, s Stack) error {
	for i, m := range s {
		if _, err := fmt.Fprintf(w, "ParameterMap %d:\n", i); err != nil {
			return err
		}
		if err := Encode(w, m); err != nil {
			return err
		}
		if i < len(s)-1 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}
	return nil
}
