package dotenv

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Pair is one resolved assignment.
type Pair struct {
	Key   string
	Value string
}

// SubstitutionTable holds the keys assigned so far in one parse pass. A nil
// entry marks a key that was assigned but whose value could not be parsed.
type SubstitutionTable map[string]*string

func (t SubstitutionTable) Record(key, value string) {
	t[key] = &value
}

func (t SubstitutionTable) MarkUnresolved(key string) {
	t[key] = nil
}

// Lookup reports the value recorded for name, if any.
func (t SubstitutionTable) Lookup(name string) (string, bool) {
	v, ok := t[name]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// ParseLine parses one logical line. It returns ok=false for blank and
// comment lines and a *LineError when the line is malformed. A successful
// assignment is recorded in table after its own value has been resolved, so
// FOO=$FOO+1 refers to the previous FOO.
//
// Substitutions prefer env and fall back to table. env may be nil.
func ParseLine(line string, table SubstitutionTable, env Lookuper) (Pair, bool, error) {
	if table == nil {
		table = SubstitutionTable{}
	}
	p := &lineParser{
		original: line,
		rest:     strings.TrimRightFunc(line, unicode.IsSpace),
		table:    table,
		env:      env,
	}
	return p.parse()
}

type lineParser struct {
	original string
	rest     string
	pos      int
	table    SubstitutionTable
	env      Lookuper
}

func (p *lineParser) fail() error {
	return &LineError{Line: p.original, Offset: p.pos}
}

func (p *lineParser) parse() (Pair, bool, error) {
	p.skipWhitespace()
	if p.rest == "" || p.rest[0] == '#' {
		return Pair{}, false, nil
	}

	key, err := p.parseKey()
	if err != nil {
		return Pair{}, false, err
	}
	p.skipWhitespace()

	// export is either a prefix or a key of its own.
	if key == "export" {
		if !p.expect('=') {
			if key, err = p.parseKey(); err != nil {
				return Pair{}, false, err
			}
			p.skipWhitespace()
			if !p.expect('=') {
				return Pair{}, false, p.fail()
			}
		}
	} else if !p.expect('=') {
		return Pair{}, false, p.fail()
	}
	p.skipWhitespace()

	if p.rest == "" || p.rest[0] == '#' {
		p.table.Record(key, "")
		return Pair{Key: key}, true, nil
	}

	value, err := p.parseValue()
	if err != nil {
		p.table.MarkUnresolved(key)
		return Pair{}, false, err
	}
	p.table.Record(key, value)
	return Pair{Key: key, Value: value}, true, nil
}

func (p *lineParser) parseKey() (string, error) {
	if p.rest == "" || !isKeyStart(p.rest[0]) {
		return "", p.fail()
	}
	n := 1
	for n < len(p.rest) && isKeyByte(p.rest[n]) {
		n++
	}
	key := p.rest[:n]
	p.advance(n)
	return key, nil
}

func (p *lineParser) expect(c byte) bool {
	if p.rest == "" || p.rest[0] != c {
		return false
	}
	p.advance(1)
	return true
}

func (p *lineParser) skipWhitespace() {
	trimmed := strings.TrimLeftFunc(p.rest, unicode.IsSpace)
	p.advance(len(p.rest) - len(trimmed))
}

func (p *lineParser) advance(n int) {
	p.pos += n
	p.rest = p.rest[n:]
}

type valueMode int

const (
	modeUnquoted valueMode = iota
	modeExpectEnd
	modeStrong
	modeWeak
)

type substMode int

const (
	substNone substMode = iota
	substBare
	substBlock
)

// parseValue runs the value grammar over the rest of the line.
func (p *lineParser) parseValue() (string, error) {
	s := p.rest
	failAt := func(i int) error {
		return &LineError{Line: p.original, Offset: p.pos + i}
	}

	var out, name strings.Builder
	mode := modeUnquoted
	subst := substNone
	escaped := false

scan:
	for i := 0; i < len(s); {
		c, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case mode == modeExpectEnd:
			switch c {
			case ' ', '\t':
			case '#':
				break scan
			default:
				return "", failAt(i)
			}
		case escaped:
			switch c {
			case '\\', '\'', '"', '$', ' ':
				out.WriteRune(c)
			case 'n':
				out.WriteByte('\n')
			default:
				return "", failAt(i)
			}
			escaped = false
		case mode == modeStrong:
			if c == '\'' {
				mode = modeUnquoted
			} else {
				out.WriteRune(c)
			}
		case subst == substBlock:
			if c == '}' {
				p.substitute(&out, name.String())
				name.Reset()
				subst = substNone
			} else {
				name.WriteRune(c)
			}
		case subst == substBare:
			if c == '{' && name.Len() == 0 {
				subst = substBlock
				break
			}
			if unicode.IsLetter(c) || unicode.IsDigit(c) {
				name.WriteRune(c)
				break
			}
			p.substitute(&out, name.String())
			name.Reset()
			subst = substNone
			// c ends the name and is handled in the current mode.
			continue
		case c == '$':
			subst = substBare
		case mode == modeWeak:
			switch c {
			case '"':
				mode = modeUnquoted
			case '\\':
				escaped = true
			default:
				out.WriteRune(c)
			}
		case c == '\'':
			mode = modeStrong
		case c == '"':
			mode = modeWeak
		case c == '\\':
			escaped = true
		case c == ' ' || c == '\t':
			mode = modeExpectEnd
		default:
			out.WriteRune(c)
		}
		i += size
	}

	if subst == substBlock || mode == modeStrong || mode == modeWeak || escaped {
		last := len(s) - 1
		if last < 0 {
			last = 0
		}
		return "", failAt(last)
	}
	if subst == substBare {
		p.substitute(&out, name.String())
	}
	return out.String(), nil
}

func (p *lineParser) substitute(out *strings.Builder, name string) {
	if p.env != nil {
		if v, ok := p.env.LookupEnv(name); ok {
			out.WriteString(v)
			return
		}
	}
	if v, ok := p.table.Lookup(name); ok {
		out.WriteString(v)
	}
}

func isKeyStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isKeyByte(c byte) bool {
	return isKeyStart(c) || c == '.' || ('0' <= c && c <= '9')
}
