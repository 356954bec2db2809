package util

import "testing"

func TestParseCoins(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  int
		ok    bool
	}{
		{name: "thousands separator", input: "You get the feeling it will cost 1,234 coins.", want: 1234, ok: true},
		{name: "plain", input: "it will cost 75 coins", want: 75, ok: true},
		{name: "millions", input: "It will cost 2,500,000 coins to buy.", want: 2500000, ok: true},
		{name: "no coins word", input: "it will cost a lot", ok: false},
		{name: "unrelated", input: "The blade is made of vaalorn.", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseCoins(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestParseLooseInt(t *testing.T) {
	cases := map[string]int{"12": 12, "1,200": 1200, "1,200gp": 1200, " 7 ": 7, "-3": -3}
	for in, want := range cases {
		got, ok := ParseLooseInt(in)
		if !ok || got != want {
			t.Fatalf("%q: got %v,%v want %v", in, got, ok, want)
		}
	}
	if _, ok := ParseLooseInt("abc"); ok {
		t.Fatal("expected failure for abc")
	}
}

func TestParseRange(t *testing.T) {
	min, max, open := ParseRange("1000-10000")
	if min != 1000 || max != 10000 || open {
		t.Fatalf("got %d %d %v", min, max, open)
	}
	min, _, open = ParseRange("1000000-")
	if min != 1000000 || !open {
		t.Fatalf("got %d %v", min, open)
	}
}
