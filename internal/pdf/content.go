package pdf

import (
	"bytes"
	"fmt"
)

// instruction is one content-stream operator with its operands. start and
// end delimit the original bytes, operands included.
type instruction struct {
	op         string
	start, end int
}

func isSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// scanner splits a content stream into instructions.
type scanner struct {
	data []byte
	pos  int
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

// next returns the next token and whether it is an operator.
func (s *scanner) next() (tok string, op bool, err error) {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return "", false, nil
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '(':
		depth := 0
		for s.pos < len(s.data) {
			switch s.data[s.pos] {
			case '\\':
				s.pos++
			case '(':
				depth++
			case ')':
				depth--
			}
			s.pos++
			if depth == 0 {
				return string(s.data[start:s.pos]), false, nil
			}
		}
		return "", false, fmt.Errorf("unterminated string at offset %d", start)
	case '<':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
			s.pos += 2
			return "<<", false, nil
		}
		end := bytes.IndexByte(s.data[s.pos:], '>')
		if end < 0 {
			return "", false, fmt.Errorf("unterminated hex string at offset %d", start)
		}
		s.pos += end + 1
		return string(s.data[start:s.pos]), false, nil
	case '>':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '>' {
			s.pos += 2
			return ">>", false, nil
		}
		return "", false, fmt.Errorf("unexpected '>' at offset %d", start)
	case '[', ']', '{', '}', ')':
		s.pos++
		return string(c), false, nil
	case '/':
		s.pos++
		for s.pos < len(s.data) && !isSpace(s.data[s.pos]) && !isDelim(s.data[s.pos]) {
			s.pos++
		}
		return string(s.data[start:s.pos]), false, nil
	}

	for s.pos < len(s.data) && !isSpace(s.data[s.pos]) && !isDelim(s.data[s.pos]) {
		s.pos++
	}
	tok = string(s.data[start:s.pos])
	switch {
	case tok == "true", tok == "false", tok == "null":
		return tok, false, nil
	case c >= '0' && c <= '9', c == '+', c == '-', c == '.':
		return tok, false, nil
	}
	return tok, true, nil
}

// skipInlineImage moves past the binary data of an inline image, which
// starts one byte after ID and ends at a whitespace-delimited EI.
func (s *scanner) skipInlineImage() error {
	s.pos++
	for i := s.pos; i+1 < len(s.data); i++ {
		if s.data[i] != 'E' || s.data[i+1] != 'I' {
			continue
		}
		if i > 0 && !isSpace(s.data[i-1]) {
			continue
		}
		if i+2 < len(s.data) && !isSpace(s.data[i+2]) {
			continue
		}
		s.pos = i + 2
		return nil
	}
	return fmt.Errorf("unterminated inline image")
}

// scanInstructions tokenizes data. Trailing operands without an operator
// are dropped.
func scanInstructions(data []byte) ([]instruction, error) {
	s := &scanner{data: data}
	var out []instruction
	start := -1
	for {
		s.skipSpace()
		if start < 0 {
			start = s.pos
		}
		tok, op, err := s.next()
		if err != nil {
			return out, err
		}
		if tok == "" {
			return out, nil
		}
		if !op {
			continue
		}
		if tok == "BI" {
			for {
				t, isOp, err := s.next()
				if err != nil {
					return out, err
				}
				if t == "" {
					return out, fmt.Errorf("inline image without data")
				}
				if isOp && t == "ID" {
					break
				}
			}
			if err := s.skipInlineImage(); err != nil {
				return out, err
			}
		}
		out = append(out, instruction{op: tok, start: start, end: s.pos})
		start = -1
	}
}

var (
	pathOps  = map[string]bool{"m": true, "l": true, "c": true, "v": true, "y": true, "h": true, "re": true}
	paintOps = map[string]bool{
		"S": true, "s": true, "f": true, "F": true, "f*": true,
		"B": true, "B*": true, "b": true, "b*": true, "n": true,
	}
)

// isStrokedSegment reports whether a path is one m+l pair stroked with S,
// the shape decoded into layout.Line.
func isStrokedSegment(path []instruction, paint string) bool {
	return paint == "S" && len(path) == 2 && path[0].op == "m" && path[1].op == "l"
}

// StripText removes text objects and single stroked segments from a
// content stream. The remainder is the page's non-text graphics.
func StripText(data []byte) ([]byte, error) {
	ins, err := scanInstructions(data)
	if err != nil {
		return nil, err
	}

	var (
		buf    bytes.Buffer
		inText bool
		path   []instruction
	)
	emit := func(in instruction) {
		buf.Write(data[in.start:in.end])
		buf.WriteByte('\n')
	}
	for _, in := range ins {
		switch {
		case in.op == "BT":
			inText = true
		case in.op == "ET":
			inText = false
		case inText:
		case pathOps[in.op]:
			path = append(path, in)
		case paintOps[in.op]:
			if !isStrokedSegment(path, in.op) {
				for _, p := range path {
					emit(p)
				}
				emit(in)
			}
			path = path[:0]
		case in.op == "W" || in.op == "W*":
			path = append(path, in)
		default:
			for _, p := range path {
				emit(p)
			}
			path = path[:0]
			emit(in)
		}
	}
	for _, p := range path {
		emit(p)
	}
	return buf.Bytes(), nil
}
