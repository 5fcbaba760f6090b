package store

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrEmptyQuery         = errors.New("empty query")
	ErrMultipleStatements = errors.New("only a single statement is allowed")
	ErrNotSelect          = errors.New("only SELECT statements are allowed")
)

// CheckSelect accepts exactly one SELECT statement (optionally introduced by a
// WITH clause and followed by a semicolon) and rejects everything else.
func CheckSelect(sql string) error {
	stmts, err := split(sql)
	if err != nil {
		return err
	}
	switch len(stmts) {
	case 0:
		return ErrEmptyQuery
	case 1:
	default:
		return ErrMultipleStatements
	}
	words := keywords(stmts[0])
	if len(words) == 0 {
		return ErrNotSelect
	}
	switch words[0] {
	case "SELECT":
		return nil
	case "WITH":
		for i, w := range words {
			switch w {
			case "INSERT", "UPDATE", "DELETE":
				return ErrNotSelect
			case "REPLACE":
				if i+1 < len(words) && words[i+1] == "INTO" {
					return ErrNotSelect
				}
			}
		}
		for _, w := range words {
			if w == "SELECT" {
				return nil
			}
		}
	}
	return ErrNotSelect
}

// split removes comments and the contents of quoted strings and identifiers,
// then splits the remainder on top-level semicolons. Empty statements are dropped.
func split(sql string) ([]string, error) {
	var (
		stmts []string
		cur   strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}
	r := []rune(sql)
	for i := 0; i < len(r); i++ {
		c := r[i]
		switch {
		case c == '-' && i+1 < len(r) && r[i+1] == '-':
			for i < len(r) && r[i] != '\n' {
				i++
			}
			cur.WriteRune(' ')
		case c == '/' && i+1 < len(r) && r[i+1] == '*':
			j := i + 2
			for ; j+1 < len(r); j++ {
				if r[j] == '*' && r[j+1] == '/' {
					break
				}
			}
			if j+1 >= len(r) {
				return nil, errors.New("unterminated comment")
			}
			i = j + 1
			cur.WriteRune(' ')
		case c == '\'' || c == '"' || c == '`' || c == '[':
			closing := c
			if c == '[' {
				closing = ']'
			}
			j := i + 1
			for ; j < len(r); j++ {
				if r[j] == closing {
					// doubled quote is an escaped quote
					if closing != ']' && j+1 < len(r) && r[j+1] == closing {
						j++
						continue
					}
					break
				}
			}
			if j >= len(r) {
				return nil, errors.New("unterminated quoted string")
			}
			i = j
			// keep a neutral placeholder so keywords inside quotes are ignored
			cur.WriteString(" _q_ ")
		case c == ';':
			flush()
		default:
			cur.WriteRune(c)
		}
	}
	flush()
	return stmts, nil
}

// keywords returns the bare words of a cleaned statement, upper-cased.
func keywords(stmt string) []string {
	fields := strings.FieldsFunc(stmt, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToUpper(f))
	}
	return out
}
