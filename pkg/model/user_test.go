package model

import "testing"

func TestNameFromEmail(t *testing.T) {
	cases := map[string]string{
		DefaultUserEmail:     "Demo User",
		"trader@example.com": "trader",
		"a@b@c":              "a",
		"no-at-sign":         "no-at-sign",
	}
	for email, want := range cases {
		if got := NameFromEmail(email); got != want {
			t.Errorf("NameFromEmail(%q) 期望 %q，实际 %q", email, want, got)
		}
	}
}
