package binding

import "testing"

func TestInterpolate(t *testing.T) {
	data := map[string]any{
		"user":  map[string]any{"name": "Ada", "tags": []any{"x", "y"}},
		"count": float64(1000000),
		"items": []any{
			map[string]any{"label": "first"},
		},
	}
	cases := []struct {
		in, want string
	}{
		{"Hello ${user.name}", "Hello Ada"},
		{"${ user.tags[1] }", "y"},
		{"${items[0].label}", "first"},
		{"n=${count}", "n=1000000"},
		{"${user.missing}", "${user.missing}"},
		{"${user.missing | anonymous}", "anonymous"},
		{"${items[3].label|none}", "none"},
		{"plain text", "plain text"},
	}
	for _, tc := range cases {
		if got := Interpolate(tc.in, data); got != tc.want {
			t.Fatalf("Interpolate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInterpolateNilData(t *testing.T) {
	if got := Interpolate("${a}", nil); got != "${a}" {
		t.Fatalf("nil data should keep placeholder, got %q", got)
	}
	if got := Interpolate("${a | b}", nil); got != "b" {
		t.Fatalf("nil data should use fallback, got %q", got)
	}
}

func TestLookupRejectsMalformedPaths(t *testing.T) {
	data := map[string]any{"a": []any{1}}
	for _, path := range []string{"a[x]", "a[0", "a..b", "a[0]b"} {
		if _, ok := Lookup(data, path); ok {
			t.Fatalf("Lookup(%q) should fail", path)
		}
	}
}
