package manifest

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/funvibe/lumen/internal/types"
)

// ParseType parses a type expression. scope maps names to archetypes that
// are in scope at the point of use: generic parameters of the enclosing
// declaration, a protocol's associated types, and Self.
//
// The grammar covers what manifests need:
//
//	any A & B                    existential
//	(label: T, U...) -> R        function or subscript
//	(T, U)                       tuple
//	Outer<A>.Inner<B>            nominal, possibly nested and specialized
func ParseType(src string, scope map[string]types.Type) (types.Type, error) {
	p := &typeParser{src: src, scope: scope}
	t, err := p.parseType()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing type %q", src)
	}
	p.skipSpaces()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("parsing type %q: trailing input at offset %d", src, p.pos)
	}
	return t, nil
}

type typeParser struct {
	src   string
	pos   int
	scope map[string]types.Type
}

func (p *typeParser) parseType() (types.Type, error) {
	p.skipSpaces()
	if p.peekWord("any") {
		return p.parseExistential()
	}
	if p.peekByte('(') {
		return p.parseFuncOrTuple()
	}
	return p.parseNominalChain()
}

func (p *typeParser) parseExistential() (types.Type, error) {
	p.expectWord("any")
	var protocols []string
	for {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		protocols = append(protocols, name)
		p.skipSpaces()
		if !p.consumeByte('&') {
			break
		}
	}
	return types.Existential{Protocols: protocols}, nil
}

func (p *typeParser) parseFuncOrTuple() (types.Type, error) {
	p.consumeByte('(')
	var params []types.Param
	p.skipSpaces()
	for !p.peekByte(')') {
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		p.skipSpaces()
		if !p.consumeByte(',') {
			break
		}
		p.skipSpaces()
	}
	if !p.consumeByte(')') {
		return nil, fmt.Errorf("expected ')' at offset %d", p.pos)
	}
	p.skipSpaces()
	if p.consumeArrow() {
		result, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return types.Func{Params: params, Result: result}, nil
	}
	elems := make([]types.Type, len(params))
	for i, param := range params {
		if param.Label != "" || param.Variadic {
			return nil, fmt.Errorf("labels and variadics are only valid in function types")
		}
		elems[i] = param.Type
	}
	return types.Tuple{Elems: elems}, nil
}

func (p *typeParser) parseParam() (types.Param, error) {
	var param types.Param
	// A label is an identifier directly followed by ':'.
	mark := p.pos
	if name, err := p.ident(); err == nil {
		p.skipSpaces()
		if p.consumeByte(':') {
			param.Label = name
			p.skipSpaces()
		} else {
			p.pos = mark
		}
	} else {
		p.pos = mark
	}
	t, err := p.parseType()
	if err != nil {
		return param, err
	}
	param.Type = t
	p.skipSpaces()
	if strings.HasPrefix(p.src[p.pos:], "...") {
		p.pos += 3
		param.Variadic = true
	}
	return param, nil
}

func (p *typeParser) parseNominalChain() (types.Type, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if scoped, ok := p.scope[name]; ok {
		return scoped, nil
	}
	args, err := p.parseTypeArgs()
	if err != nil {
		return nil, err
	}
	result := types.Type(types.Nominal{Name: name, Args: args})
	for {
		p.skipSpaces()
		if !p.consumeByte('.') {
			break
		}
		inner, err := p.ident()
		if err != nil {
			return nil, err
		}
		innerArgs, err := p.parseTypeArgs()
		if err != nil {
			return nil, err
		}
		result = types.Nominal{Name: inner, Args: innerArgs, Parent: result}
	}
	return result, nil
}

func (p *typeParser) parseTypeArgs() ([]types.Type, error) {
	p.skipSpaces()
	if !p.consumeByte('<') {
		return nil, nil
	}
	var args []types.Type
	for {
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipSpaces()
		if p.consumeByte(',') {
			p.skipSpaces()
			continue
		}
		break
	}
	if !p.consumeByte('>') {
		return nil, fmt.Errorf("expected '>' at offset %d", p.pos)
	}
	return args, nil
}

func (p *typeParser) skipSpaces() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) peekByte(b byte) bool {
	p.skipSpaces()
	return p.pos < len(p.src) && p.src[p.pos] == b
}

func (p *typeParser) consumeByte(b byte) bool {
	if p.peekByte(b) {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) consumeArrow() bool {
	p.skipSpaces()
	if strings.HasPrefix(p.src[p.pos:], "->") {
		p.pos += 2
		return true
	}
	return false
}

func (p *typeParser) peekWord(word string) bool {
	p.skipSpaces()
	rest := p.src[p.pos:]
	if !strings.HasPrefix(rest, word) {
		return false
	}
	after := rest[len(word):]
	return after == "" || !isIdentChar(rune(after[0]))
}

func (p *typeParser) expectWord(word string) {
	p.skipSpaces()
	p.pos += len(word)
}

func (p *typeParser) ident() (string, error) {
	p.skipSpaces()
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(rune(p.src[p.pos])) {
		p.pos++
	}
	if p.pos == start {
		return "", fmt.Errorf("expected identifier at offset %d", start)
	}
	first := rune(p.src[start])
	if !unicode.IsLetter(first) && first != '_' {
		return "", fmt.Errorf("identifier cannot start with %q at offset %d", first, start)
	}
	return p.src[start:p.pos], nil
}

func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
