package match

import "testing"

func TestNormalizeCanonicalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sony WH-1000XM5", "sony wh-1000xm5"},
		{"  Apple   MacBook\tPro (M4, 2024)! ", "apple macbook pro m4 2024"},
		{"Dyson V15 Detect™", "dyson v15 detect"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCanonicalName(tt.in); got != tt.want {
			t.Errorf("NormalizeCanonicalName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNamesMatch(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"exact after normalization", "Sony WH-1000XM5", "sony wh-1000xm5!", true},
		{"hyphen is significant", "Sony WH-1000XM5", "sony wh1000xm5", false},
		{"word subset", "MacBook Pro M4", "MacBook Pro M4 Pro", true},
		{"word subset reversed", "MacBook Pro M4 Pro", "MacBook Pro M4", true},
		{"substring but not word", "pro", "processor", false},
		{"partial word at end", "iPhone 15 Pro", "iPhone 15 Pro Max", true},
		{"no containment", "Pixel 9", "Galaxy S24", false},
		{"empty", "", "Pixel 9", false},
		{"punctuation only", "!!", "!!", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NamesMatch(tt.a, tt.b); got != tt.want {
				t.Errorf("NamesMatch(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMatcherFunc(t *testing.T) {
	calls := 0
	m := MatcherFunc(func(a, b string) bool {
		calls++
		return a == b
	})
	if !m.Match("x", "x") || m.Match("x", "y") || calls != 2 {
		t.Errorf("MatcherFunc did not delegate, calls=%d", calls)
	}
	if !Words.Match("Kindle Paperwhite", "kindle paperwhite") {
		t.Error("Words should match normalized-equal names")
	}
}
