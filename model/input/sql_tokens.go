package input

import (
	"strings"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceCode = iota
	selectCode
	fromCode
	whereCode
	andCode
	orCode
	likeCode
	orderCode
	byCode
	ascCode
	descCode
	limitCode
	identifierCode
	starCode
	commaCode
	operatorCode
	numberCode
	stringCode
	semicolonCode
)

var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	selectToken     = parsly.NewToken(selectCode, "SELECT", newKeywordMatcher("select"))
	fromToken       = parsly.NewToken(fromCode, "FROM", newKeywordMatcher("from"))
	whereToken      = parsly.NewToken(whereCode, "WHERE", newKeywordMatcher("where"))
	andToken        = parsly.NewToken(andCode, "AND", newKeywordMatcher("and"))
	orToken         = parsly.NewToken(orCode, "OR", newKeywordMatcher("or"))
	likeToken       = parsly.NewToken(likeCode, "LIKE", newKeywordMatcher("like"))
	orderToken      = parsly.NewToken(orderCode, "ORDER", newKeywordMatcher("order"))
	byToken         = parsly.NewToken(byCode, "BY", newKeywordMatcher("by"))
	ascToken        = parsly.NewToken(ascCode, "ASC", newKeywordMatcher("asc"))
	descToken       = parsly.NewToken(descCode, "DESC", newKeywordMatcher("desc"))
	limitToken      = parsly.NewToken(limitCode, "LIMIT", newKeywordMatcher("limit"))
	identifierToken = parsly.NewToken(identifierCode, "Identifier", &identifierMatcher{})
	starToken       = parsly.NewToken(starCode, "*", matcher.NewByte('*'))
	commaToken      = parsly.NewToken(commaCode, ",", matcher.NewByte(','))
	operatorToken   = parsly.NewToken(operatorCode, "Operator", &operatorMatcher{})
	numberToken     = parsly.NewToken(numberCode, "Number", &numberMatcher{})
	stringToken     = parsly.NewToken(stringCode, "String", &quotedMatcher{})
	semicolonToken  = parsly.NewToken(semicolonCode, ";", matcher.NewByte(';'))
)

var reserved = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true, "like": true,
	"order": true, "by": true, "asc": true, "desc": true, "limit": true,
}

// keywordMatcher matches a case insensitive keyword followed by a word boundary.
type keywordMatcher struct {
	keyword []byte
}

func newKeywordMatcher(keyword string) parsly.Matcher {
	return &keywordMatcher{keyword: []byte(keyword)}
}

func (m *keywordMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := len(m.keyword)
	if pos+size > cursor.InputSize {
		return 0
	}
	for i := 0; i < size; i++ {
		if lower(input[pos+i]) != m.keyword[i] {
			return 0
		}
	}
	if pos+size < cursor.InputSize && isWordByte(input[pos+size]) {
		return 0
	}
	return size
}

// identifierMatcher matches name or qualifier.name, excluding reserved words.
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size || !(isLetter(input[pos]) || input[pos] == '_') {
		return 0
	}
	matched := 1
	dotted := false
	for i := pos + 1; i < size; i++ {
		c := input[i]
		if isWordByte(c) {
			matched++
			continue
		}
		if c == '.' && !dotted && i+1 < size && (isLetter(input[i+1]) || input[i+1] == '_' || input[i+1] == '*') {
			dotted = true
			matched++
			if input[i+1] == '*' {
				matched++
				break
			}
			continue
		}
		break
	}
	if reserved[strings.ToLower(string(input[pos:pos+matched]))] {
		return 0
	}
	return matched
}

type operatorMatcher struct{}

func (m *operatorMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos >= cursor.InputSize {
		return 0
	}
	if pos+1 < cursor.InputSize {
		switch string(input[pos : pos+2]) {
		case "<=", ">=", "<>", "!=":
			return 2
		}
	}
	switch input[pos] {
	case '=', '<', '>':
		return 1
	}
	return 0
}

type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	i := pos
	if i < size && input[i] == '-' {
		i++
	}
	digits := 0
	for ; i < size && isDigit(input[i]); i++ {
		digits++
	}
	if digits == 0 {
		return 0
	}
	if i+1 < size && input[i] == '.' && isDigit(input[i+1]) {
		i++
		for ; i < size && isDigit(input[i]); i++ {
		}
	}
	if i < size && isLetter(input[i]) {
		return 0
	}
	return i - pos
}

// quotedMatcher matches a single quoted literal, '' escapes a quote.
type quotedMatcher struct{}

func (m *quotedMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size || input[pos] != '\'' {
		return 0
	}
	for i := pos + 1; i < size; i++ {
		if input[i] != '\'' {
			continue
		}
		if i+1 < size && input[i+1] == '\'' {
			i++
			continue
		}
		return i - pos + 1
	}
	return 0
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordByte(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}
