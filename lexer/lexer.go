package lexer

import "github.com/slc-lang/slc/token"

type Lexer struct {
	input        []rune
	position     int  // current position in input (points to current rune)
	readPosition int  // current reading position in input (after current rune)
	curr         rune // current rune under examination
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{input: []rune(input), line: 1, column: 0}
	l.readRune()
	return l
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.pos()
	var tok token.Token
	switch l.curr {
	case '(':
		tok = l.newToken(token.LPAREN, pos)
	case ')':
		tok = l.newToken(token.RPAREN, pos)
	case ':':
		tok = l.newToken(token.COLON, pos)
	case '<':
		// `list<int>` puts a type name right after the bracket; the
		// comparison atoms `<` and `<=` are followed by '=' or a delimiter.
		if l.peekRune() == '=' {
			l.readRune()
			tok = token.Token{Type: token.IDENT, Literal: "<=", Pos: pos}
		} else if isLetter(l.peekRune()) {
			tok = l.newToken(token.LT, pos)
		} else {
			tok = token.Token{Type: token.IDENT, Literal: "<", Pos: pos}
		}
	case '>':
		if l.peekRune() == '=' {
			l.readRune()
			tok = token.Token{Type: token.IDENT, Literal: ">=", Pos: pos}
		} else {
			// bare '>' closes a type annotation or names the comparison;
			// the parser decides from context.
			tok = l.newToken(token.GT, pos)
		}
	case '=':
		tok = token.Token{Type: token.IDENT, Literal: "=", Pos: pos}
	case '"':
		return l.readString(pos)
	case 0:
		tok = token.Token{Type: token.EOF, Literal: "", Pos: pos}
	default:
		if isDigit(l.curr) || (l.curr == '-' && isDigit(l.peekRune())) {
			return l.readNumber(pos)
		}
		if isAtomRune(l.curr) {
			return l.readAtom(pos)
		}
		tok = l.newToken(token.ILLEGAL, pos)
	}

	l.readRune()
	return tok
}

func (l *Lexer) pos() token.Position {
	return token.Position{Line: l.line, Column: l.column}
}

func (l *Lexer) newToken(tokenType token.TokenType, pos token.Position) token.Token {
	return token.Token{Type: tokenType, Literal: string(l.curr), Pos: pos}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.curr == ' ' || l.curr == '\t' || l.curr == '\n' || l.curr == '\r' {
			l.readRune()
		}
		if l.curr != ';' {
			return
		}
		for l.curr != '\n' && l.curr != 0 {
			l.readRune()
		}
	}
}

func (l *Lexer) readRune() {
	if l.curr == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.curr = 0
	} else {
		l.curr = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekRune() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// readAtom consumes an identifier or operator atom. Delimiters are
// whitespace, parens, colon, and the type-annotation brackets.
func (l *Lexer) readAtom(pos token.Position) token.Token {
	position := l.position
	for isAtomRune(l.curr) {
		l.readRune()
	}
	return token.Token{Type: token.IDENT, Literal: string(l.input[position:l.position]), Pos: pos}
}

func (l *Lexer) readNumber(pos token.Position) token.Token {
	position := l.position
	if l.curr == '-' {
		l.readRune()
	}
	tokType := token.INT
	for isDigit(l.curr) {
		l.readRune()
	}
	if l.curr == '.' && isDigit(l.peekRune()) {
		tokType = token.FLOAT
		l.readRune()
		for isDigit(l.curr) {
			l.readRune()
		}
	}
	return token.Token{Type: tokType, Literal: string(l.input[position:l.position]), Pos: pos}
}

func (l *Lexer) readString(pos token.Position) token.Token {
	l.readRune() // consume opening quote
	var out []rune
	for l.curr != '"' && l.curr != 0 {
		if l.curr == '\\' {
			l.readRune()
			switch l.curr {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			default:
				out = append(out, '\\', l.curr)
			}
			l.readRune()
			continue
		}
		out = append(out, l.curr)
		l.readRune()
	}
	if l.curr == 0 {
		return token.Token{Type: token.ILLEGAL, Literal: string(out), Pos: pos}
	}
	l.readRune() // consume closing quote
	return token.Token{Type: token.STRING, Literal: string(out), Pos: pos}
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

// isAtomRune covers identifier characters and the symbolic operator atoms.
func isAtomRune(ch rune) bool {
	if isLetter(ch) || isDigit(ch) {
		return true
	}
	switch ch {
	case '+', '-', '*', '/', '?', '!', '.':
		return true
	}
	return false
}
