package input

import (
	"fmt"
	"strings"

	"github.com/viant/parsly"
)

// Statement is the parsed form of a restricted single-table SELECT:
//
//	SELECT *|col[, col] FROM table [WHERE cond [AND|OR cond]] [ORDER BY col [ASC|DESC][, ...]] [LIMIT n]
type Statement struct {
	Columns    []string
	Table      string
	References []*Reference
	Limit      string
}

// Reference is a column reference, optionally qualified with the table name.
type Reference struct {
	Qualifier string
	Column    string
}

func (r *Reference) String() string {
	if r.Qualifier == "" {
		return r.Column
	}
	return r.Qualifier + "." + r.Column
}

func newReference(text string) *Reference {
	if index := strings.IndexByte(text, '.'); index != -1 {
		return &Reference{Qualifier: text[:index], Column: text[index+1:]}
	}
	return &Reference{Column: text}
}

// ParseSQL parses query into a Statement.
func ParseSQL(query string) (*Statement, error) {
	cursor := parsly.NewCursor("", []byte(query), 0)
	stmt := &Statement{}

	matched := cursor.MatchAfterOptional(whitespaceToken, selectToken)
	if matched.Code != selectToken.Code {
		return nil, cursor.NewError(selectToken)
	}
	for {
		matched = cursor.MatchAfterOptional(whitespaceToken, starToken, identifierToken)
		switch matched.Code {
		case starToken.Code:
			stmt.Columns = append(stmt.Columns, "*")
		case identifierToken.Code:
			text := matched.Text(cursor)
			stmt.Columns = append(stmt.Columns, text)
			stmt.References = append(stmt.References, newReference(text))
		default:
			return nil, cursor.NewError(starToken, identifierToken)
		}
		matched = cursor.MatchAfterOptional(whitespaceToken, commaToken, fromToken)
		if matched.Code == fromToken.Code {
			break
		}
		if matched.Code != commaToken.Code {
			return nil, cursor.NewError(commaToken, fromToken)
		}
	}

	matched = cursor.MatchAfterOptional(whitespaceToken, identifierToken)
	if matched.Code != identifierToken.Code {
		return nil, cursor.NewError(identifierToken)
	}
	stmt.Table = matched.Text(cursor)
	if strings.Contains(stmt.Table, ".") {
		return nil, fmt.Errorf("invalid table name %q", stmt.Table)
	}

	matched = cursor.MatchAfterOptional(whitespaceToken, whereToken, orderToken, limitToken, semicolonToken)
	if matched.Code == whereToken.Code {
		if err := parseConditions(cursor, stmt); err != nil {
			return nil, err
		}
		matched = cursor.MatchAfterOptional(whitespaceToken, orderToken, limitToken, semicolonToken)
	}
	if matched.Code == orderToken.Code {
		if err := parseOrderBy(cursor, stmt); err != nil {
			return nil, err
		}
		matched = cursor.MatchAfterOptional(whitespaceToken, limitToken, semicolonToken)
	}
	if matched.Code == limitToken.Code {
		number := cursor.MatchAfterOptional(whitespaceToken, numberToken)
		if number.Code != numberToken.Code {
			return nil, cursor.NewError(numberToken)
		}
		stmt.Limit = number.Text(cursor)
		if strings.ContainsAny(stmt.Limit, ".-") {
			return nil, fmt.Errorf("invalid limit %q", stmt.Limit)
		}
		matched = cursor.MatchAfterOptional(whitespaceToken, semicolonToken)
	}
	cursor.MatchOne(whitespaceToken)
	if cursor.Pos < cursor.InputSize {
		return nil, fmt.Errorf("unexpected %q at position %d", string(cursor.Input[cursor.Pos:]), cursor.Pos)
	}
	return stmt, nil
}

func parseConditions(cursor *parsly.Cursor, stmt *Statement) error {
	for {
		if err := parseOperand(cursor, stmt); err != nil {
			return err
		}
		matched := cursor.MatchAfterOptional(whitespaceToken, operatorToken, likeToken)
		if matched.Code != operatorToken.Code && matched.Code != likeToken.Code {
			return cursor.NewError(operatorToken, likeToken)
		}
		if err := parseOperand(cursor, stmt); err != nil {
			return err
		}
		pos := cursor.Pos
		matched = cursor.MatchAfterOptional(whitespaceToken, andToken, orToken)
		if matched.Code != andToken.Code && matched.Code != orToken.Code {
			cursor.Pos = pos
			return nil
		}
	}
}

func parseOperand(cursor *parsly.Cursor, stmt *Statement) error {
	matched := cursor.MatchAfterOptional(whitespaceToken, numberToken, stringToken, identifierToken)
	switch matched.Code {
	case numberToken.Code, stringToken.Code:
		return nil
	case identifierToken.Code:
		ref := newReference(matched.Text(cursor))
		if ref.Column == "*" {
			return fmt.Errorf("unexpected wildcard in condition")
		}
		stmt.References = append(stmt.References, ref)
		return nil
	}
	return cursor.NewError(numberToken, stringToken, identifierToken)
}

func parseOrderBy(cursor *parsly.Cursor, stmt *Statement) error {
	if matched := cursor.MatchAfterOptional(whitespaceToken, byToken); matched.Code != byToken.Code {
		return cursor.NewError(byToken)
	}
	for {
		matched := cursor.MatchAfterOptional(whitespaceToken, identifierToken)
		if matched.Code != identifierToken.Code {
			return cursor.NewError(identifierToken)
		}
		stmt.References = append(stmt.References, newReference(matched.Text(cursor)))
		pos := cursor.Pos
		matched = cursor.MatchAfterOptional(whitespaceToken, ascToken, descToken)
		if matched.Code != ascToken.Code && matched.Code != descToken.Code {
			cursor.Pos = pos
		}
		pos = cursor.Pos
		if matched = cursor.MatchAfterOptional(whitespaceToken, commaToken); matched.Code != commaToken.Code {
			cursor.Pos = pos
			return nil
		}
	}
}
