package quiz

import "testing"

func TestFirstMeaning(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"really good; amazing", "really good"},
		{"really good", "really good"},
		{"  padded  ", "padded"},
		{"one; two; three", "one"},
	}
	for _, tc := range cases {
		if got := FirstMeaning(tc.in); got != tc.want {
			t.Fatalf("FirstMeaning(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSentenceCase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"really good", "Really good"},
		{"REALLY GOOD", "Really good"},
		{"rEALLY gOOD", "Really good"},
		{"", ""},
		{"x", "X"},
	}
	for _, tc := range cases {
		if got := SentenceCase(tc.in); got != tc.want {
			t.Fatalf("SentenceCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeAppliesBothSteps(t *testing.T) {
	if got := Normalize("REALLY good; amazing"); got != "Really good" {
		t.Fatalf("Normalize = %q, want %q", got, "Really good")
	}
}
