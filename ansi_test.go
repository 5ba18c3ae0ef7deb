package main

import (
	"reflect"
	"testing"
)

func TestStripANSIPlainText(t *testing.T) {
	cases := []string{
		"",
		"hello world",
		"caffè ☕ — naïve",
		"tabs\tand spaces",
	}
	for _, tc := range cases {
		if got := StripANSI(tc); got != tc {
			t.Fatalf("expected plain text unchanged, got %q from %q", got, tc)
		}
	}
}

func TestStripANSIRemovesSequences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"color", "\x1b[31mred\x1b[0m", "red"},
		{"multi param", "\x1b[1;32mOK\x1b[0m done", "OK done"},
		{"private mode", "\x1b[?25lhidden\x1b[?25h", "hidden"},
		{"erase line", "before\x1b[2Kafter", "beforeafter"},
		{"c1 csi", "\x9b31mx", "x"},
		{"truncated at end", "tail\x1b[31", "tail"},
		{"lone esc kept", "a\x1bb", "a\x1bb"},
		{"utf8 around sequence", "é\x1b[33mü\x1b[0mß", "éüß"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripANSI(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestParseANSILinePlain(t *testing.T) {
	segs := ParseANSILine("just text")
	want := []AnsiSegment{{Text: "just text", Color: AnsiNone}}
	if !reflect.DeepEqual(segs, want) {
		t.Fatalf("expected %v, got %v", want, segs)
	}
}

func TestParseANSILineColorRuns(t *testing.T) {
	segs := ParseANSILine("\x1b[31mHello\x1b[0m World")
	want := []AnsiSegment{
		{Text: "Hello", Color: 1},
		{Text: " World", Color: AnsiNone},
	}
	if !reflect.DeepEqual(segs, want) {
		t.Fatalf("expected %v, got %v", want, segs)
	}
}

func TestParseANSILineBoldCombined(t *testing.T) {
	segs := ParseANSILine("\x1b[1;32mOK\x1b[0m")
	want := []AnsiSegment{{Text: "OK", Color: 2, Bold: true}}
	if !reflect.DeepEqual(segs, want) {
		t.Fatalf("expected %v, got %v", want, segs)
	}
}

func TestParseANSILineBrightColors(t *testing.T) {
	segs := ParseANSILine("\x1b[90mdim\x1b[97mbright")
	want := []AnsiSegment{
		{Text: "dim", Color: 8},
		{Text: "bright", Color: 15},
	}
	if !reflect.DeepEqual(segs, want) {
		t.Fatalf("expected %v, got %v", want, segs)
	}
}

func TestParseANSILineEmptyParamsReset(t *testing.T) {
	segs := ParseANSILine("\x1b[31mred\x1b[mplain")
	want := []AnsiSegment{
		{Text: "red", Color: 1},
		{Text: "plain", Color: AnsiNone},
	}
	if !reflect.DeepEqual(segs, want) {
		t.Fatalf("expected %v, got %v", want, segs)
	}
}

func TestParseANSILineDropsNonSGR(t *testing.T) {
	segs := ParseANSILine("a\x1b[2Kb")
	want := []AnsiSegment{{Text: "ab", Color: AnsiNone}}
	if !reflect.DeepEqual(segs, want) {
		t.Fatalf("expected %v, got %v", want, segs)
	}
}

func TestParseANSILineUnknownCodesIgnored(t *testing.T) {
	// 4 (underline) and 38;5;n (256-color) carry no mapping; the style in
	// effect stays what it was.
	segs := ParseANSILine("\x1b[31mred\x1b[4mstill red")
	want := []AnsiSegment{
		{Text: "red", Color: 1},
		{Text: "still red", Color: 1},
	}
	if !reflect.DeepEqual(segs, want) {
		t.Fatalf("expected %v, got %v", want, segs)
	}
}
