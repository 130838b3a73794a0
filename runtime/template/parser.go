package template

import (
	"fmt"
	"strings"

	"github.com/viant/parsly"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

type (
	node interface{ String() string }

	// reference points at inputs or request attributes: name, inputs.name, request.id
	reference struct{ parts []string }

	literal struct{ value string }

	call struct {
		name string
		args []node
	}

	// segment is either literal text or an expression.
	segment struct {
		text string
		expr node
	}
)

func (p *reference) String() string { return strings.Join(p.parts, ".") }
func (l *literal) String() string { return fmt.Sprintf("%q", l.value) }
func (c *call) String() string {
	args := make([]string, len(c.args))
	for i, arg := range c.args {
		args[i] = arg.String()
	}
	return c.name + "(" + strings.Join(args, ", ") + ")"
}

// parse splits a fragment into literal text and {{ expression }} segments.
func parse(fragment string) ([]*segment, error) {
	var ret []*segment
	rest := fragment
	for {
		start := strings.Index(rest, openDelim)
		if start == -1 {
			if rest != "" {
				ret = append(ret, &segment{text: rest})
			}
			return ret, nil
		}
		if start > 0 {
			ret = append(ret, &segment{text: rest[:start]})
		}
		rest = rest[start+len(openDelim):]
		end := strings.Index(rest, closeDelim)
		if end == -1 {
			return nil, fmt.Errorf("unterminated %s", openDelim)
		}
		expr, err := parseExpression(rest[:end])
		if err != nil {
			return nil, err
		}
		ret = append(ret, &segment{expr: expr})
		rest = rest[end+len(closeDelim):]
	}
}

func parseExpression(text string) (node, error) {
	cursor := parsly.NewCursor("", []byte(text), 0)
	expr, err := parseNode(cursor)
	if err != nil {
		return nil, err
	}
	cursor.MatchOne(whitespaceToken)
	if cursor.Pos < cursor.InputSize {
		return nil, fmt.Errorf("unexpected %q in expression %q", string(cursor.Input[cursor.Pos:]), strings.TrimSpace(text))
	}
	return expr, nil
}

func parseNode(cursor *parsly.Cursor) (node, error) {
	matched := cursor.MatchAfterOptional(whitespaceToken, stringToken, identifierToken)
	switch matched.Code {
	case stringToken.Code:
		return &literal{value: unquote(matched.Text(cursor))}, nil
	case identifierToken.Code:
	default:
		return nil, cursor.NewError(stringToken, identifierToken)
	}
	name := matched.Text(cursor)
	pos := cursor.Pos
	matched = cursor.MatchAfterOptional(whitespaceToken, openParenToken, dotToken)
	switch matched.Code {
	case openParenToken.Code:
		return parseCall(cursor, name)
	case dotToken.Code:
		ret := &reference{parts: []string{name}}
		for {
			part := cursor.MatchOne(identifierToken)
			if part.Code != identifierToken.Code {
				return nil, cursor.NewError(identifierToken)
			}
			ret.parts = append(ret.parts, part.Text(cursor))
			if cursor.MatchOne(dotToken).Code != dotToken.Code {
				return ret, nil
			}
		}
	}
	cursor.Pos = pos
	return &reference{parts: []string{name}}, nil
}

func parseCall(cursor *parsly.Cursor, name string) (node, error) {
	ret := &call{name: name}
	pos := cursor.Pos
	if cursor.MatchAfterOptional(whitespaceToken, closeParenToken).Code == closeParenToken.Code {
		return ret, nil
	}
	cursor.Pos = pos
	for {
		arg, err := parseNode(cursor)
		if err != nil {
			return nil, err
		}
		ret.args = append(ret.args, arg)
		matched := cursor.MatchAfterOptional(whitespaceToken, commaToken, closeParenToken)
		switch matched.Code {
		case commaToken.Code:
			continue
		case closeParenToken.Code:
			return ret, nil
		default:
			return nil, cursor.NewError(commaToken, closeParenToken)
		}
	}
}

func unquote(text string) string {
	body := text[1 : len(text)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(body[i])
			}
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
