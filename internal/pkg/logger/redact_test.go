package logger

import "testing"

func TestRedactEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"a@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
		{"two@at@signs", "***@***"},
	}
	for _, c := range cases {
		if got := RedactEmail(c.in); got != c.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRedactValue_EmailKeys(t *testing.T) {
	if got := redactValue("email", "john.doe@example.com"); got != "jo***@example.com" {
		t.Errorf("email key not redacted: %q", got)
	}
	if got := redactValue("recipient", "john.doe@example.com"); got != "jo***@example.com" {
		t.Errorf("recipient key not redacted: %q", got)
	}
}

func TestRedactValue_EmbeddedEmail(t *testing.T) {
	got := redactValue("reason", "550 5.1.1 user jane.roe@example.org unknown")
	want := "550 5.1.1 user ja***@example.org unknown"
	if got != want {
		t.Errorf("embedded email not redacted: got %q, want %q", got, want)
	}
}

func TestRedactValue_PlainValueUntouched(t *testing.T) {
	if got := redactValue("status", "delivered"); got != "delivered" {
		t.Errorf("plain value changed: %q", got)
	}
}
