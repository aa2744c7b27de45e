package decision

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizer_Clean(t *testing.T) {
	s := NewSanitizer(280, []string{"nazi", "kill yourself"})
	cases := []struct {
		in, want string
	}{
		{"hello <b>friend</b>", "hello bfriend/b"},
		{"{\"x\":1} `rm`", "\"x\":1 rm"},
		{"You NAZI scum", "You *** scum"},
		{"just Kill Yourself now", "just *** now"},
		{"line\nbreak\x00\x07", "line break"},
		{"  padded  ", "padded"},
	}
	for _, tc := range cases {
		if got := s.Clean(tc.in); got != tc.want {
			t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizer_CapsRunes(t *testing.T) {
	s := NewSanitizer(280, nil)
	got := s.Clean(strings.Repeat("é", 400))
	if n := utf8.RuneCountInString(got); n != 280 {
		t.Fatalf("rune count = %d", n)
	}
}
