package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the O lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42, -7
	TokenReal       // 3.14, -0.5
	TokenIdentifier // foo, Bar

	// Delimiters
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenComma    // ,
	TokenDot      // .
	TokenColon    // :
	TokenAssign   // :=
	TokenArrow    // =>

	// Keywords
	TokenClass
	TokenExtends
	TokenIs
	TokenEnd
	TokenVar
	TokenMethod
	TokenThis
	TokenReturn
	TokenIf
	TokenThen
	TokenElse
	TokenWhile
	TokenLoop
	TokenTrue
	TokenFalse
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenInteger:    "INTEGER",
	TokenReal:       "REAL",
	TokenIdentifier: "IDENTIFIER",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenComma:      ",",
	TokenDot:        ".",
	TokenColon:      ":",
	TokenAssign:     ":=",
	TokenArrow:      "=>",
	TokenClass:      "class",
	TokenExtends:    "extends",
	TokenIs:         "is",
	TokenEnd:        "end",
	TokenVar:        "var",
	TokenMethod:     "method",
	TokenThis:       "this",
	TokenReturn:     "return",
	TokenIf:         "if",
	TokenThen:       "then",
	TokenElse:       "else",
	TokenWhile:      "while",
	TokenLoop:       "loop",
	TokenTrue:       "true",
	TokenFalse:      "false",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"class":   TokenClass,
	"extends": TokenExtends,
	"is":      TokenIs,
	"end":     TokenEnd,
	"var":     TokenVar,
	"method":  TokenMethod,
	"this":    TokenThis,
	"return":  TokenReturn,
	"if":      TokenIf,
	"then":    TokenThen,
	"else":    TokenElse,
	"while":   TokenWhile,
	"loop":    TokenLoop,
	"true":    TokenTrue,
	"false":   TokenFalse,
}
