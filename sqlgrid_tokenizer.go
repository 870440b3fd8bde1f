package sqlgrid

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

/*
Partial SQL tokenizer used internally by `Parse` and by the placeholder tracker.

Goals:

	* Correctly split whitespace, comments, quoted strings and identifiers,
	  positional "?" placeholders, parens and commas.

	* Separate word-like text (identifiers, keywords, numbers) from operator-like
	  text, so that "a>=?" yields three tokens.

Non-goals:

	* Full SQL parser.

Notable limitations:

	* No special support for dollar-quoted strings.

	* A doubled quote inside a string ('it''s') is tokenized as two adjacent
	  quoted tokens. Concatenating their text restores the original.

Unterminated quotes and block comments cause a panic with `ErrSyntax`.
Exported functions of this package convert such panics into errors.
*/
type Tokenizer struct {
	Source string
	cursor int
}

/*
Returns the next token if possible. When the tokenizer reaches the end, this
returns an empty `Token{}`. Call `Token.IsInvalid` to detect the end.
*/
func (self *Tokenizer) Next() Token {
	if !self.more() {
		return Token{}
	}

	start := self.cursor

	if self.maybeWhitespace(); self.cursor > start {
		return self.token(start, TokenTypeWhitespace)
	}
	if self.maybeQuotedSingle(); self.cursor > start {
		return self.token(start, TokenTypeQuotedSingle)
	}
	if self.maybeQuotedDouble(); self.cursor > start {
		return self.token(start, TokenTypeQuotedDouble)
	}
	if self.maybeQuotedGrave(); self.cursor > start {
		return self.token(start, TokenTypeQuotedGrave)
	}
	if self.maybeCommentLine(); self.cursor > start {
		return self.token(start, TokenTypeCommentLine)
	}
	if self.maybeCommentBlock(); self.cursor > start {
		return self.token(start, TokenTypeCommentBlock)
	}
	if self.skippedByte(placeholder) {
		return self.token(start, TokenTypePlaceholder)
	}
	if self.skippedByte(parenOpen) {
		return self.token(start, TokenTypeParenOpen)
	}
	if self.skippedByte(parenClose) {
		return self.token(start, TokenTypeParenClose)
	}
	if self.skippedByte(comma) {
		return self.token(start, TokenTypeComma)
	}
	if self.maybeWord(); self.cursor > start {
		return self.token(start, TokenTypeWord)
	}

	self.skipSymbol()
	return self.token(start, TokenTypeSymbol)
}

// Tokenizes the entire source. Panics on malformed input.
func (self *Tokenizer) All() (out []Token) {
	for {
		tok := self.Next()
		if tok.IsInvalid() {
			return
		}
		out = append(out, tok)
	}
}

func (self *Tokenizer) token(start int, typ TokenType) Token {
	return Token{self.from(start), typ}
}

func (self *Tokenizer) maybeWhitespace() {
	for self.more() && charsetWhitespace.has(self.headByte()) {
		self.skipBytes(1)
	}
}

func (self *Tokenizer) maybeQuotedSingle() {
	self.maybeStringBetweenBytes(quoteSingle, quoteSingle)
}

func (self *Tokenizer) maybeQuotedDouble() {
	self.maybeStringBetweenBytes(quoteDouble, quoteDouble)
}

func (self *Tokenizer) maybeQuotedGrave() {
	self.maybeStringBetweenBytes(quoteGrave, quoteGrave)
}

func (self *Tokenizer) maybeCommentLine() {
	if !self.skippedString(commentLinePrefix) {
		return
	}
	for self.more() && !self.skippedNewline() && self.skippedChar() {
	}
}

func (self *Tokenizer) maybeCommentBlock() {
	self.maybeStringBetween(commentBlockPrefix, commentBlockSuffix)
}

func (self *Tokenizer) maybeWord() {
	for self.more() && charsetWord.has(self.headByte()) {
		self.skipBytes(1)
	}
}

// Always consumes at least one character.
func (self *Tokenizer) skipSymbol() {
	self.skipChar()
	for self.more() && self.isSymbolHead() {
		self.skipChar()
	}
}

func (self *Tokenizer) isSymbolHead() bool {
	head := self.headByte()
	return !charsetWhitespace.has(head) &&
		!charsetWord.has(head) &&
		!charsetPunct.has(head) &&
		!strings.HasPrefix(self.rest(), commentLinePrefix) &&
		!strings.HasPrefix(self.rest(), commentBlockPrefix)
}

func (self *Tokenizer) skippedNewline() bool {
	start := self.cursor
	self.skipBytes(leadingNewlineSize(self.rest()))
	return self.cursor > start
}

func (self *Tokenizer) skippedChar() bool {
	start := self.cursor
	self.skipChar()
	return self.cursor > start
}

func (self *Tokenizer) skipChar() {
	_, size := utf8.DecodeRuneInString(self.rest())
	self.skipBytes(size)
}

func (self *Tokenizer) maybeStringBetween(prefix, suffix string) {
	if !self.skippedString(prefix) {
		return
	}

	for self.more() {
		if self.skippedString(suffix) {
			return
		}
		self.skipChar()
	}

	panic(errSyntax(
		`tokenizing SQL`,
		fmt.Errorf(`expected closing %q, got unexpected %w`, suffix, io.EOF),
	))
}

func (self *Tokenizer) maybeStringBetweenBytes(prefix, suffix byte) {
	if !self.skippedByte(prefix) {
		return
	}

	for self.more() {
		if self.skippedByte(suffix) {
			return
		}
		self.skipChar()
	}

	panic(errSyntax(
		`tokenizing SQL`,
		fmt.Errorf(`unterminated quote: expected closing %q, got unexpected %w`, rune(suffix), io.EOF),
	))
}

func (self *Tokenizer) skipBytes(val int) {
	self.cursor += val
}

func (self *Tokenizer) more() bool {
	return self.cursor < len(self.Source)
}

func (self *Tokenizer) rest() string {
	return self.Source[self.cursor:]
}

func (self *Tokenizer) from(start int) string {
	return self.Source[start:self.cursor]
}

func (self *Tokenizer) headByte() byte {
	return self.Source[self.cursor]
}

func (self *Tokenizer) skippedByte(val byte) bool {
	if self.more() && self.headByte() == val {
		self.skipBytes(1)
		return true
	}
	return false
}

func (self *Tokenizer) skippedString(val string) bool {
	if strings.HasPrefix(self.rest(), val) {
		self.skipBytes(len(val))
		return true
	}
	return false
}

const (
	TokenTypeInvalid TokenType = iota
	TokenTypeWhitespace
	TokenTypeQuotedSingle
	TokenTypeQuotedDouble
	TokenTypeQuotedGrave
	TokenTypeCommentLine
	TokenTypeCommentBlock
	TokenTypePlaceholder
	TokenTypeParenOpen
	TokenTypeParenClose
	TokenTypeComma
	TokenTypeWord
	TokenTypeSymbol
)

// Part of `Token`.
type TokenType byte

// Represents an arbitrary chunk of SQL text parsed by `Tokenizer`.
type Token struct {
	Text string
	Type TokenType
}

/*
True if the token's type is `TokenTypeInvalid`. This is used to detect end of
iteration when calling `(*Tokenizer).Next`.
*/
func (self Token) IsInvalid() bool {
	return self.Type == TokenTypeInvalid
}

// Implement `fmt.Stringer` for debug purposes.
func (self Token) String() string { return self.Text }

// True for whitespace and comments.
func (self Token) IsBlank() bool {
	switch self.Type {
	case TokenTypeWhitespace, TokenTypeCommentLine, TokenTypeCommentBlock:
		return true
	default:
		return false
	}
}

// True if the token is a word equal to the given keyword, ignoring case.
func (self Token) IsKeyword(val string) bool {
	return self.Type == TokenTypeWord && strings.EqualFold(self.Text, val)
}

// True if the token may serve as a column reference in a simple predicate.
func (self Token) IsIdent() bool {
	switch self.Type {
	case TokenTypeWord:
		return !isReservedWord(self.Text) && !charsetDigitDec.has(self.Text[0])
	case TokenTypeQuotedDouble, TokenTypeQuotedGrave:
		return true
	default:
		return false
	}
}
