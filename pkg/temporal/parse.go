package temporal

import (
	"strconv"
	"strings"
	"time"

	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
	"github.com/tempora-db/tempora/pkg/timeset"
)

// Text grammar: `value@timestamp` instants, comma-separated lists, square
// or round brackets around sequences (encoding bound inclusivity), curly
// braces around sets, and an optional `@step` / `@linear` suffix after the
// closing bracket of a sequence or the closing brace of a sequence set
// (instant sets take no suffix). Parse errors carry the rune offset of the
// offending token.

// Parse parses a temporal literal of the given base type. loc binds the
// time zone used for zone-less timestamps; nil means UTC.
func Parse(s string, bt span.BaseType, loc *time.Location) (Temporal, error) {
	p := &parser{src: s, bt: bt, loc: loc}
	tm, err := p.parseTemporal()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, terrors.NewAt(terrors.InvalidInput, p.pos, "trailing input %q", p.src[p.pos:])
	}
	return tm, nil
}

type parser struct {
	src string
	pos int
	bt  span.BaseType
	loc *time.Location
}

func (p *parser) errf(format string, args ...interface{}) error {
	return terrors.NewAt(terrors.InvalidInput, p.pos, format, args...)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) parseTemporal() (Temporal, error) {
	p.skipSpace()
	switch p.peek() {
	case '{':
		return p.parseBraced()
	case '[', '(':
		seq, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		return seq, nil
	case 0:
		return nil, p.errf("empty temporal literal")
	default:
		return p.parseInstant()
	}
}

// parseBraced handles both instant sets and sequence sets: the shape of the
// first element decides.
func (p *parser) parseBraced() (Temporal, error) {
	open := p.pos
	p.pos++ // consume '{'
	p.skipSpace()
	if p.peek() == '[' || p.peek() == '(' {
		var seqs []Sequence
		for {
			seq, err := p.parseSequence()
			if err != nil {
				return nil, err
			}
			seqs = append(seqs, seq)
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
				p.skipSpace()
				continue
			}
			break
		}
		if p.peek() != '}' {
			return nil, p.errf("expected '}' closing sequence set opened at offset %d", open)
		}
		p.pos++
		interp, err := p.parseInterpSuffix()
		if err != nil {
			return nil, err
		}
		if interp != 0 {
			for i, s := range seqs {
				reinterp, err := NewSequence(s.instants, s.lowerInc, s.upperInc, interp)
				if err != nil {
					return nil, err
				}
				seqs[i] = reinterp
			}
		}
		set, err := NewSequenceSet(seqs)
		if err != nil {
			return nil, err
		}
		return set, nil
	}
	var instants []Instant
	for {
		in, err := p.parseInstantRaw()
		if err != nil {
			return nil, err
		}
		instants = append(instants, in)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			p.skipSpace()
			continue
		}
		break
	}
	if p.peek() != '}' {
		return nil, p.errf("expected '}' closing instant set opened at offset %d", open)
	}
	p.pos++
	set, err := NewInstantSet(instants)
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (p *parser) parseSequence() (Sequence, error) {
	var lowerInc bool
	switch p.peek() {
	case '[':
		lowerInc = true
	case '(':
		lowerInc = false
	default:
		return Sequence{}, p.errf("expected '[' or '(' opening a sequence")
	}
	p.pos++
	var instants []Instant
	for {
		p.skipSpace()
		in, err := p.parseInstantRaw()
		if err != nil {
			return Sequence{}, err
		}
		instants = append(instants, in)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	var upperInc bool
	switch p.peek() {
	case ']':
		upperInc = true
	case ')':
		upperInc = false
	default:
		return Sequence{}, p.errf("expected ']' or ')' closing a sequence")
	}
	p.pos++
	interp, err := p.parseInterpSuffix()
	if err != nil {
		return Sequence{}, err
	}
	if interp == 0 {
		interp = defaultInterp(p.bt)
	}
	return NewSequence(instants, lowerInc, upperInc, interp)
}

// parseInterpSuffix consumes an optional `@step` / `@linear` after a
// closing bracket. Returns 0 when absent.
func (p *parser) parseInterpSuffix() (Interp, error) {
	save := p.pos
	p.skipSpace()
	if p.peek() != '@' {
		p.pos = save
		return 0, nil
	}
	p.pos++
	rest := p.src[p.pos:]
	switch {
	case strings.HasPrefix(rest, "step"):
		p.pos += len("step")
		return InterpStep, nil
	case strings.HasPrefix(rest, "linear"):
		p.pos += len("linear")
		return InterpLinear, nil
	case strings.HasPrefix(rest, "discrete"):
		p.pos += len("discrete")
		return InterpDiscrete, nil
	}
	return 0, p.errf("unknown interpolation suffix")
}

func (p *parser) parseInstant() (Temporal, error) {
	in, err := p.parseInstantRaw()
	if err != nil {
		return nil, err
	}
	return in, nil
}

// parseInstantRaw parses `value@timestamp`.
func (p *parser) parseInstantRaw() (Instant, error) {
	v, err := p.parseValue()
	if err != nil {
		return Instant{}, err
	}
	p.skipSpace()
	if p.peek() != '@' {
		return Instant{}, p.errf("expected '@' between value and timestamp")
	}
	p.pos++
	t, err := p.parseTimestamp()
	if err != nil {
		return Instant{}, err
	}
	return NewInstant(v, t)
}

// parseTimestamp consumes characters up to the next delimiter and parses
// them as an ISO-8601 timestamp.
func (p *parser) parseTimestamp() (time.Time, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune(",]})", rune(p.src[p.pos])) {
		p.pos++
	}
	t, err := timeset.ParseTimestamp(p.src[start:p.pos], p.loc)
	if err != nil {
		return time.Time{}, terrors.NewAt(terrors.InvalidInput, start, "cannot parse timestamp %q", strings.TrimSpace(p.src[start:p.pos]))
	}
	return t, nil
}

func (p *parser) parseValue() (span.Value, error) {
	p.skipSpace()
	start := p.pos
	switch p.bt {
	case span.TypeBool:
		tok := p.takeToken()
		switch strings.ToLower(tok) {
		case "true", "t":
			return span.NewBool(true), nil
		case "false", "f":
			return span.NewBool(false), nil
		}
		return span.Value{}, terrors.NewAt(terrors.InvalidInput, start, "cannot parse bool %q", tok)
	case span.TypeInt32, span.TypeInt64:
		tok := p.takeToken()
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return span.Value{}, terrors.NewAt(terrors.InvalidInput, start, "cannot parse integer %q", tok)
		}
		if p.bt == span.TypeInt32 {
			if n > 1<<31-1 || n < -(1<<31) {
				return span.Value{}, terrors.NewAt(terrors.OutOfRange, start, "integer %d overflows i32", n)
			}
			return span.NewInt32(int32(n)), nil
		}
		return span.NewInt64(n), nil
	case span.TypeFloat64:
		tok := p.takeToken()
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return span.Value{}, terrors.NewAt(terrors.InvalidInput, start, "cannot parse float %q", tok)
		}
		return span.NewFloat64(f), nil
	case span.TypeText:
		return p.parseQuoted()
	case span.TypeGeom2D, span.TypeGeom3D, span.TypeGeog2D, span.TypeGeog3D:
		return p.parsePoint()
	}
	return span.Value{}, terrors.NewAt(terrors.UnsupportedOperation, start, "no literal form for %s", p.bt)
}

// takeToken consumes up to the next '@'.
func (p *parser) takeToken() string {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '@' {
		p.pos++
	}
	return strings.TrimSpace(p.src[start:p.pos])
}

func (p *parser) parseQuoted() (span.Value, error) {
	if p.peek() != '"' {
		return span.Value{}, p.errf("text value must be double-quoted")
	}
	start := p.pos
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\\' && p.pos+1 < len(p.src) {
			b.WriteByte(p.src[p.pos+1])
			p.pos += 2
			continue
		}
		if c == '"' {
			p.pos++
			return span.NewText(b.String()), nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return span.Value{}, terrors.NewAt(terrors.InvalidInput, start, "unterminated text literal")
}

// parsePoint parses `Point(x y)` or `Point(x y z)`.
func (p *parser) parsePoint() (span.Value, error) {
	start := p.pos
	rest := p.src[p.pos:]
	if !strings.HasPrefix(rest, "Point(") {
		return span.Value{}, p.errf("point value must start with \"Point(\"")
	}
	p.pos += len("Point(")
	end := strings.IndexByte(p.src[p.pos:], ')')
	if end < 0 {
		return span.Value{}, terrors.NewAt(terrors.InvalidInput, start, "unterminated point literal")
	}
	fields := strings.Fields(p.src[p.pos : p.pos+end])
	p.pos += end + 1
	wantZ := p.bt == span.TypeGeom3D || p.bt == span.TypeGeog3D
	want := 2
	if wantZ {
		want = 3
	}
	if len(fields) != want {
		return span.Value{}, terrors.NewAt(terrors.InvalidInput, start, "point needs %d coordinates, got %d", want, len(fields))
	}
	var coords [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return span.Value{}, terrors.NewAt(terrors.InvalidInput, start, "cannot parse coordinate %q", f)
		}
		coords[i] = v
	}
	return span.NewPoint(p.bt, span.Point{X: coords[0], Y: coords[1], Z: coords[2]}), nil
}
