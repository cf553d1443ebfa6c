// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package schema

import "strings"

// Parse tokenizes and parses a protocol definition file. It returns
// the raw declaration list; semantic checks happen in Analyze. Parsing
// stops at the first error, which is always a *Error with position.
func Parse(src string) (*File, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.fill(); err != nil {
		return nil, err
	}
	return p.parseFile()
}

type parser struct {
	lex *lexer
	tok token // current token
}

// fill loads the first token.
func (p *parser) fill() error {
	return p.advance()
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expect(kind tokenKind) (token, error) {
	if p.tok.kind != kind {
		return token{}, errorf(p.tok.line, p.tok.col, "expected %s, found %s", kind, p.tok.kind)
	}
	t := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return t, nil
}

// skipBlank consumes newlines.
func (p *parser) skipBlank() error {
	for p.tok.kind == tokNewline {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseFile() (*File, error) {
	f := &File{}
	for {
		if err := p.skipBlank(); err != nil {
			return nil, err
		}
		switch p.tok.kind {
		case tokEOF:
			return f, nil
		case tokComment:
			f.Comments = append(f.Comments, p.tok.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokAt, tokIdent:
			var annotations []Annotation
			for p.tok.kind == tokAt {
				ann, err := p.parseAnnotation()
				if err != nil {
					return nil, err
				}
				annotations = append(annotations, ann)
				if err := p.skipBlank(); err != nil {
					return nil, err
				}
			}
			if err := p.parseDecl(f, annotations); err != nil {
				return nil, err
			}
		default:
			return nil, errorf(p.tok.line, p.tok.col, "expected declaration, found %s", p.tok.kind)
		}
	}
}

func (p *parser) parseDecl(f *File, annotations []Annotation) error {
	kw, err := p.expect(tokIdent)
	if err != nil {
		return err
	}
	switch kw.text {
	case "enum":
		e, err := p.parseEnum(f)
		if err != nil {
			return err
		}
		e.Annotations = annotations
		f.Enums = append(f.Enums, e)
	case "struct":
		s, err := p.parseStruct(f)
		if err != nil {
			return err
		}
		s.Annotations = annotations
		f.Structs = append(f.Structs, s)
	case "protocol":
		if f.Protocol != nil {
			return errorf(kw.line, kw.col, "duplicate protocol block")
		}
		proto, err := p.parseProtocol()
		if err != nil {
			return err
		}
		proto.Annotations = annotations
		f.Protocol = proto
	default:
		return errorf(kw.line, kw.col, "expected 'enum', 'struct', or 'protocol', found %q", kw.text)
	}
	return nil
}

func (p *parser) parseAnnotation() (Annotation, error) {
	if _, err := p.expect(tokAt); err != nil {
		return Annotation{}, err
	}
	name, err := p.expect(tokIdent)
	if err != nil {
		return Annotation{}, err
	}
	ann := Annotation{Name: name.text}
	if p.tok.kind != tokLParen {
		return ann, nil
	}
	if err := p.advance(); err != nil {
		return Annotation{}, err
	}
	for p.tok.kind != tokRParen {
		arg, err := p.parseAnnotationArg()
		if err != nil {
			return Annotation{}, err
		}
		ann.Args = append(ann.Args, arg)
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return Annotation{}, err
			}
		}
	}
	if err := p.advance(); err != nil {
		return Annotation{}, err
	}
	return ann, nil
}

func (p *parser) parseAnnotationArg() (AnnotationArg, error) {
	switch p.tok.kind {
	case tokString, tokInt:
		arg := AnnotationArg{Value: p.tok.text}
		return arg, p.advance()
	case tokIdent:
		name := p.tok
		if err := p.advance(); err != nil {
			return AnnotationArg{}, err
		}
		if p.tok.kind != tokEquals {
			return AnnotationArg{Value: name.text}, nil
		}
		if err := p.advance(); err != nil {
			return AnnotationArg{}, err
		}
		switch p.tok.kind {
		case tokString, tokInt, tokIdent:
			arg := AnnotationArg{Name: name.text, Value: p.tok.text}
			return arg, p.advance()
		}
		return AnnotationArg{}, errorf(p.tok.line, p.tok.col, "expected annotation value, found %s", p.tok.kind)
	}
	return AnnotationArg{}, errorf(p.tok.line, p.tok.col, "expected annotation argument, found %s", p.tok.kind)
}

func (p *parser) parseEnum(f *File) (*Enum, error) {
	name, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon); err != nil {
		return nil, err
	}
	underlying, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}

	e := &Enum{Name: name.text, Type: TypeRef{Name: underlying.text}}
	for {
		if err := p.skipBlank(); err != nil {
			return nil, err
		}
		switch p.tok.kind {
		case tokRBrace:
			if err := p.advance(); err != nil {
				return nil, err
			}
			return e, nil
		case tokComment:
			f.Comments = append(f.Comments, p.tok.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokAt, tokIdent:
			var annotations []Annotation
			for p.tok.kind == tokAt {
				ann, err := p.parseAnnotation()
				if err != nil {
					return nil, err
				}
				annotations = append(annotations, ann)
				if err := p.skipBlank(); err != nil {
					return nil, err
				}
			}
			val, err := p.parseEnumValue()
			if err != nil {
				return nil, err
			}
			val.Annotations = annotations
			e.Values = append(e.Values, val)
		default:
			return nil, errorf(p.tok.line, p.tok.col, "expected enum value or '}', found %s", p.tok.kind)
		}
	}
}

func (p *parser) parseEnumValue() (EnumValue, error) {
	name, err := p.expect(tokIdent)
	if err != nil {
		return EnumValue{}, err
	}
	if _, err := p.expect(tokEquals); err != nil {
		return EnumValue{}, err
	}
	num, err := p.expect(tokInt)
	if err != nil {
		return EnumValue{}, err
	}
	val := EnumValue{Name: name.text, Value: num.num}
	if p.tok.kind == tokComment {
		val.Comment = p.tok.text
		if err := p.advance(); err != nil {
			return EnumValue{}, err
		}
	}
	return val, nil
}

func (p *parser) parseStruct(f *File) (*Struct, error) {
	name, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}

	s := &Struct{Name: name.text}
	for {
		if err := p.skipBlank(); err != nil {
			return nil, err
		}
		switch p.tok.kind {
		case tokRBrace:
			if err := p.advance(); err != nil {
				return nil, err
			}
			return s, nil
		case tokComment:
			f.Comments = append(f.Comments, p.tok.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokAt, tokIdent:
			var annotations []Annotation
			for p.tok.kind == tokAt {
				ann, err := p.parseAnnotation()
				if err != nil {
					return nil, err
				}
				annotations = append(annotations, ann)
				if err := p.skipBlank(); err != nil {
					return nil, err
				}
			}
			field, err := p.parseField()
			if err != nil {
				return nil, err
			}
			field.Annotations = annotations
			s.Fields = append(s.Fields, field)
		default:
			return nil, errorf(p.tok.line, p.tok.col, "expected field or '}', found %s", p.tok.kind)
		}
	}
}

func (p *parser) parseField() (Field, error) {
	name, err := p.expect(tokIdent)
	if err != nil {
		return Field{}, err
	}
	if _, err := p.expect(tokColon); err != nil {
		return Field{}, err
	}
	typeName, err := p.expect(tokIdent)
	if err != nil {
		return Field{}, err
	}

	field := Field{Name: name.text, Type: TypeRef{Name: typeName.text}}

	// bytes[N] and string[N] consume the first bracket as the type
	// capacity; any further bracket is the outer array modifier.
	sized := field.Type.IsBytes() || field.Type.IsString()
	if sized {
		if p.tok.kind != tokLBracket {
			return Field{}, errorf(p.tok.line, p.tok.col, "%s type requires a size, e.g. %s[16]", typeName.text, typeName.text)
		}
		size, err := p.parseBracketInt()
		if err != nil {
			return Field{}, err
		}
		field.Type.Size = size
	}
	if p.tok.kind == tokLBracket {
		size, err := p.parseBracketInt()
		if err != nil {
			return Field{}, err
		}
		field.ArraySize = size
	}

	if p.tok.kind == tokComment {
		field.Comment = p.tok.text
		if err := p.advance(); err != nil {
			return Field{}, err
		}
	}
	return field, nil
}

func (p *parser) parseBracketInt() (int, error) {
	if _, err := p.expect(tokLBracket); err != nil {
		return 0, err
	}
	num, err := p.expect(tokInt)
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(tokRBracket); err != nil {
		return 0, err
	}
	if num.num < 1 {
		return 0, errorf(num.line, num.col, "size must be at least 1, got %d", num.num)
	}
	return int(num.num), nil
}

func (p *parser) parseProtocol() (*Protocol, error) {
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	proto := &Protocol{}
	for {
		if err := p.skipBlank(); err != nil {
			return nil, err
		}
		switch p.tok.kind {
		case tokRBrace:
			if err := p.advance(); err != nil {
				return nil, err
			}
			return proto, nil
		case tokComment:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokIdent:
			name := p.tok
			if err := p.advance(); err != nil {
				return nil, err
			}
			if name.text == "messageIds" {
				if err := p.parseMessageIDs(proto); err != nil {
					return nil, err
				}
				continue
			}
			if _, err := p.expect(tokEquals); err != nil {
				return nil, err
			}
			if err := p.parseProtocolOption(proto, name); err != nil {
				return nil, err
			}
		default:
			return nil, errorf(p.tok.line, p.tok.col, "expected protocol option or '}', found %s", p.tok.kind)
		}
	}
}

func (p *parser) parseProtocolOption(proto *Protocol, name token) error {
	switch name.text {
	case "maxLength":
		num, err := p.expect(tokInt)
		if err != nil {
			return err
		}
		if num.num < 1 {
			return errorf(num.line, num.col, "maxLength must be positive")
		}
		proto.MaxLength = int(num.num)
	case "framing":
		val, err := p.expect(tokIdent)
		if err != nil {
			return err
		}
		switch strings.ToLower(val.text) {
		case "cobs", "none":
			proto.Framing = strings.ToLower(val.text)
		default:
			return errorf(val.line, val.col, "unknown framing type %q", val.text)
		}
	case "crc":
		val, err := p.expect(tokIdent)
		if err != nil {
			return err
		}
		switch strings.ToLower(val.text) {
		case "none":
			proto.CRC = CRCNone
		case "crc8":
			proto.CRC = CRC8
		case "crc16":
			proto.CRC = CRC16
		case "crc32":
			proto.CRC = CRC32
		default:
			return errorf(val.line, val.col, "unknown CRC type %q", val.text)
		}
	default:
		return errorf(name.line, name.col, "unknown protocol option %q", name.text)
	}
	return nil
}

func (p *parser) parseMessageIDs(proto *Protocol) error {
	if _, err := p.expect(tokLBrace); err != nil {
		return err
	}
	for {
		if err := p.skipBlank(); err != nil {
			return err
		}
		switch p.tok.kind {
		case tokRBrace:
			return p.advance()
		case tokComment:
			if err := p.advance(); err != nil {
				return err
			}
		case tokIdent:
			name := p.tok
			if err := p.advance(); err != nil {
				return err
			}
			if _, err := p.expect(tokEquals); err != nil {
				return err
			}
			num, err := p.expect(tokInt)
			if err != nil {
				return err
			}
			id := MessageID{Name: name.text, Number: int(num.num)}
			if p.tok.kind == tokComment {
				id.Comment = p.tok.text
				if err := p.advance(); err != nil {
					return err
				}
			}
			proto.MessageIDs = append(proto.MessageIDs, id)
		default:
			return errorf(p.tok.line, p.tok.col, "expected message id assignment or '}', found %s", p.tok.kind)
		}
	}
}
