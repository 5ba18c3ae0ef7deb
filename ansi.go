package main

import (
	"strconv"
	"strings"
)

// AnsiNone marks a segment with no explicit color.
const AnsiNone = -1

// AnsiSegment is a run of text with one SGR style applied.
type AnsiSegment struct {
	Text  string
	Color int // 0..15 into the terminal palette, or AnsiNone
	Bold  bool
}

const (
	escByte = 0x1b
	csiByte = 0x9b // single-byte C1 CSI
)

// StripANSI removes escape sequences from s without corrupting UTF-8.
// Multi-byte rune continuation bytes are >= 0x80 and never collide with the
// ranges scanned here, so they pass through untouched. A truncated sequence
// at the end of input is dropped.
func StripANSI(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != escByte && c != csiByte {
			out.WriteByte(c)
			continue
		}
		if c == escByte {
			if i+1 >= len(b) || (b[i+1] != '[' && b[i+1] != ']' && b[i+1] != '?') {
				// Lone ESC, not an introducer we recognize.
				out.WriteByte(c)
				continue
			}
			i++
		}
		i = skipSequenceBody(b, i)
	}
	return out.String()
}

// skipSequenceBody consumes parameter, intermediate and final bytes starting
// after the introducer at index i, returning the index of the last consumed
// byte.
func skipSequenceBody(b []byte, i int) int {
	for i+1 < len(b) {
		n := b[i+1]
		switch {
		case n >= 0x30 && n <= 0x3f: // parameters
			i++
		case n >= 0x20 && n <= 0x2f: // intermediates
			i++
		case n >= 0x40 && n <= 0x7e: // final byte
			return i + 1
		default:
			return i
		}
	}
	return i
}

// ParseANSILine splits a line into styled segments by scanning for SGR
// sequences. Text accumulated before a sequence is flushed with the style
// that was in effect when it was written. Unrecognized SGR codes are
// ignored; non-SGR sequences are consumed and dropped.
func ParseANSILine(s string) []AnsiSegment {
	var (
		segs    []AnsiSegment
		current []byte
		color   = AnsiNone
		bold    bool
	)
	flush := func() {
		if len(current) > 0 {
			segs = append(segs, AnsiSegment{Text: string(current), Color: color, Bold: bold})
			current = current[:0]
		}
	}

	b := []byte(s)
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != escByte && c != csiByte {
			current = append(current, c)
			continue
		}
		if c == escByte {
			if i+1 >= len(b) || b[i+1] != '[' {
				current = append(current, c)
				continue
			}
			i++
		}
		params, end, final := scanSequence(b, i)
		i = end
		if final != 'm' {
			continue
		}
		flush()
		color, bold = applySGR(params, color, bold)
	}
	flush()
	return segs
}

// scanSequence reads a control sequence body starting after the introducer
// at index i. It returns the raw parameter bytes, the index of the last
// consumed byte, and the final byte (0 when the sequence was malformed or
// truncated).
func scanSequence(b []byte, i int) (params []byte, end int, final byte) {
	for i+1 < len(b) {
		n := b[i+1]
		switch {
		case n >= 0x30 && n <= 0x3f:
			params = append(params, n)
			i++
		case n >= 0x20 && n <= 0x2f:
			i++
		case n >= 0x40 && n <= 0x7e:
			return params, i + 1, n
		default:
			return params, i, 0
		}
	}
	return params, i, 0
}

func applySGR(params []byte, color int, bold bool) (int, bool) {
	// An empty parameter list means reset, same as "0".
	if len(params) == 0 {
		return AnsiNone, false
	}
	for _, part := range strings.Split(string(params), ";") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			n = 0
		}
		switch {
		case n == 0:
			color = AnsiNone
			bold = false
		case n == 1:
			bold = true
		case n >= 30 && n <= 37:
			color = n - 30
		case n >= 90 && n <= 97:
			color = n - 90 + 8
		}
	}
	return color, bold
}
