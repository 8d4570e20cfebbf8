package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	n := NewNormalizer("us")

	tests := []struct {
		in   string
		want string
	}{
		{"(415) 555-2671", "+14155552671"},
		{"+1 415 555 2671", "+14155552671"},
		{"  ", ""},
		{"not a number", "not a number"},
	}

	for _, tc := range tests {
		if got := n.NormalizeE164(tc.in); got != tc.want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewNormalizerDefaultsRegion(t *testing.T) {
	if NewNormalizer("").region != DefaultRegion {
		t.Fatalf("expected default region %s", DefaultRegion)
	}
}
