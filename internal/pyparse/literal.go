package pyparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"hintgen/internal/pyast"
)

func parseNumber(text string) (pyast.Value, error) {
	s := strings.ReplaceAll(text, "_", "")
	lower := strings.ToLower(s)
	if strings.HasSuffix(lower, "j") {
		return nil, errors.New("complex literal")
	}
	lower = strings.TrimSuffix(lower, "l")
	base := 10
	digits := lower
	switch {
	case strings.HasPrefix(lower, "0x"):
		base, digits = 16, lower[2:]
	case strings.HasPrefix(lower, "0o"):
		base, digits = 8, lower[2:]
	case strings.HasPrefix(lower, "0b"):
		base, digits = 2, lower[2:]
	}
	if base == 10 && strings.ContainsAny(lower, ".e") {
		f, err := strconv.ParseFloat(lower, 64)
		if err != nil {
			return nil, fmt.Errorf("float literal %s: %w", text, err)
		}
		return pyast.FloatVal(f), nil
	}
	i, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return nil, fmt.Errorf("integer literal %s out of range", text)
	}
	return pyast.IntVal(i), nil
}

func (c *conv) str(n *sitter.Node) (*pyast.Node, error) {
	parts := []*sitter.Node{n}
	if n.Type() == "concatenated_string" {
		parts = named(n)
	}
	var sb strings.Builder
	isBytes := false
	for i, p := range parts {
		val, b, err := decodeString(c.text(p))
		if err != nil {
			return nil, c.unsupported(p, err.Error())
		}
		if i > 0 && b != isBytes {
			return nil, &Error{Kind: ErrSyntax, Line: int(p.StartPoint().Row) + 1, Col: int(p.StartPoint().Column), Msg: "cannot mix bytes and nonbytes literals"}
		}
		isBytes = b
		sb.WriteString(val)
	}
	if isBytes {
		return c.at(pyast.New(pyast.Bytes, pyast.BytesVal(sb.String())), n), nil
	}
	return c.at(pyast.NewStr(sb.String()), n), nil
}

// decodeString evaluates one Python string literal, prefix and quotes included.
func decodeString(lit string) (string, bool, error) {
	i := 0
	raw, isBytes := false, false
	for i < len(lit) && lit[i] != '\'' && lit[i] != '"' {
		switch lit[i] {
		case 'r', 'R':
			raw = true
		case 'b', 'B':
			isBytes = true
		case 'f', 'F':
			return "", false, errors.New("f-string")
		case 'u', 'U':
		default:
			return "", false, fmt.Errorf("string prefix %q", lit[:i+1])
		}
		i++
	}
	body := lit[i:]
	q := 1
	if len(body) >= 6 && (strings.HasPrefix(body, `'''`) || strings.HasPrefix(body, `"""`)) {
		q = 3
	}
	if len(body) < 2*q {
		return "", false, errors.New("unterminated string")
	}
	body = body[q : len(body)-q]
	if raw {
		return body, isBytes, nil
	}
	out, err := unescape(body, isBytes)
	return out, isBytes, err
}

func unescape(s string, isBytes bool) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' || i+1 == len(s) {
			sb.WriteByte(ch)
			continue
		}
		i++
		switch e := s[i]; e {
		case '\n':
		case '\\', '\'', '"':
			sb.WriteByte(e)
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 32)
			writeCode(&sb, rune(v), isBytes)
			i = j - 1
		case 'x':
			if i+3 > len(s) {
				return "", errors.New("truncated \\x escape")
			}
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 32)
			if err != nil {
				return "", errors.New("invalid \\x escape")
			}
			writeCode(&sb, rune(v), isBytes)
			i += 2
		case 'u', 'U':
			if isBytes {
				sb.WriteByte('\\')
				sb.WriteByte(e)
				continue
			}
			width := 4
			if e == 'U' {
				width = 8
			}
			if i+1+width > len(s) {
				return "", fmt.Errorf("truncated \\%c escape", e)
			}
			v, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32)
			if err != nil || !utf8.ValidRune(rune(v)) {
				return "", fmt.Errorf("invalid \\%c escape", e)
			}
			sb.WriteRune(rune(v))
			i += width
		case 'N':
			return "", errors.New("named unicode escape")
		default:
			sb.WriteByte('\\')
			sb.WriteByte(e)
		}
	}
	return sb.String(), nil
}

func writeCode(sb *strings.Builder, r rune, isBytes bool) {
	if isBytes {
		sb.WriteByte(byte(r))
		return
	}
	sb.WriteRune(r)
}
