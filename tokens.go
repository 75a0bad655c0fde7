package fragcache

import "strings"

// TokenType classifies a lexical token of the host template engine.
type TokenType int

const (
	TokenText TokenType = iota
	TokenVar
	TokenBlock
	TokenComment
)

// Token is one lexical token as produced by the host engine. Contents holds
// the text between the delimiters, untrimmed.
type Token struct {
	Type     TokenType
	Contents string
}

// Syntax lists the delimiters of the host engine.
type Syntax struct {
	BlockStart   string
	BlockEnd     string
	VarStart     string
	VarEnd       string
	CommentStart string
	CommentEnd   string
	// Load is the directive that imports tag libraries, e.g. "load".
	Load string
}

// DefaultSyntax matches Django-like engines (Django, pongo2, jinja-ish).
var DefaultSyntax = Syntax{
	BlockStart:   "{%",
	BlockEnd:     "%}",
	VarStart:     "{{",
	VarEnd:       "}}",
	CommentStart: "{#",
	CommentEnd:   "#}",
	Load:         "load",
}

func (s Syntax) withDefaults() Syntax {
	s.BlockStart = coalesce(s.BlockStart, DefaultSyntax.BlockStart)
	s.BlockEnd = coalesce(s.BlockEnd, DefaultSyntax.BlockEnd)
	s.VarStart = coalesce(s.VarStart, DefaultSyntax.VarStart)
	s.VarEnd = coalesce(s.VarEnd, DefaultSyntax.VarEnd)
	s.CommentStart = coalesce(s.CommentStart, DefaultSyntax.CommentStart)
	s.CommentEnd = coalesce(s.CommentEnd, DefaultSyntax.CommentEnd)
	s.Load = coalesce(s.Load, DefaultSyntax.Load)
	return s
}

// Source rebuilds template source from tokens by putting the delimiters back.
func (s Syntax) Source(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		switch t.Type {
		case TokenVar:
			b.WriteString(s.VarStart)
			b.WriteString(t.Contents)
			b.WriteString(s.VarEnd)
		case TokenBlock:
			b.WriteString(s.BlockStart)
			b.WriteString(t.Contents)
			b.WriteString(s.BlockEnd)
		case TokenComment:
			b.WriteString(s.CommentStart)
			b.WriteString(t.Contents)
			b.WriteString(s.CommentEnd)
		default:
			b.WriteString(t.Contents)
		}
	}
	return b.String()
}

// Block wraps contents in block delimiters.
func (s Syntax) Block(contents string) string {
	return s.BlockStart + contents + s.BlockEnd
}
