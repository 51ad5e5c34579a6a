package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ArgumentText returns the text placed between the parentheses of the solve
// call. A JSON string is taken verbatim as argument-list source; any other
// value is rendered as a single Python literal.
func ArgumentText(input json.RawMessage) (string, error) {
	if s, ok := jsonString(input); ok {
		return s, nil
	}
	return PyLiteral(input)
}

// ExpectedText returns the text stdout must match. Strings compare as is;
// other values compare against their Python str() form.
func ExpectedText(output json.RawMessage) (string, error) {
	if s, ok := jsonString(output); ok {
		return s, nil
	}
	return PyLiteral(output)
}

// PyLiteral renders a JSON document as the equivalent Python expression,
// keeping object key order.
func PyLiteral(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var b strings.Builder
	if err := writeLiteral(&b, dec); err != nil {
		return "", fmt.Errorf("convert json to python literal failed: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", fmt.Errorf("convert json to python literal failed: trailing data")
	}
	return b.String(), nil
}

func writeLiteral(b *strings.Builder, dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch v := tok.(type) {
	case nil:
		b.WriteString("None")
	case bool:
		if v {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case json.Number:
		b.WriteString(v.String())
	case string:
		b.WriteString(pyRepr(v))
	case json.Delim:
		switch v {
		case '[':
			b.WriteByte('[')
			for i := 0; dec.More(); i++ {
				if i > 0 {
					b.WriteString(", ")
				}
				if err := writeLiteral(b, dec); err != nil {
					return err
				}
			}
			b.WriteByte(']')
		case '{':
			b.WriteByte('{')
			for i := 0; dec.More(); i++ {
				if i > 0 {
					b.WriteString(", ")
				}
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, ok := keyTok.(string)
				if !ok {
					return fmt.Errorf("unexpected object key %v", keyTok)
				}
				b.WriteString(pyRepr(key))
				b.WriteString(": ")
				if err := writeLiteral(b, dec); err != nil {
					return err
				}
			}
			b.WriteByte('}')
		default:
			return fmt.Errorf("unexpected delimiter %v", v)
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

// pyRepr quotes s the way Python's repr does for str values.
func pyRepr(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case unicode.IsPrint(r):
			b.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r < 0x10000:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			fmt.Fprintf(&b, `\U%08x`, r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

func jsonString(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var out string
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return "", false
	}
	return out, true
}
