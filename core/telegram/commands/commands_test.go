package commands

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in, name, args string
	}{
		{"/pm 555 salut toi", "/pm", "555 salut toi"},
		{"/done@MenaceBot", "/done", ""},
		{"  /FIN  ", "/fin", ""},
		{"hello", "", ""},
	}
	for _, tc := range cases {
		name, args := Parse(tc.in)
		if name != tc.name || args != tc.args {
			t.Errorf("Parse(%q) = %q, %q", tc.in, name, args)
		}
	}
	if !IsCommand(" /start") || IsCommand("start") {
		t.Fatal("IsCommand mismatch")
	}
}
