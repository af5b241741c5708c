package env_mode

import "testing"

func TestParseEnv(t *testing.T) {
	cases := map[string]ENV_MODE{
		"":             DevMode,
		"dev":          DevMode,
		" Production ": ProMode,
		"prod":         ProMode,
		"testing":      TestMode,
		"staging":      DevMode,
	}
	for in, want := range cases {
		if got := ParseEnv(in); got != want {
			t.Errorf("ParseEnv(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSetMode(t *testing.T) {
	prev := Mode()
	t.Cleanup(func() { SetMode(prev) })

	SetMode(ProMode)
	if Mode() != ProMode || !IsProduction() {
		t.Fatalf("Mode() = %s after SetMode(production)", Mode())
	}
	SetMode(TestMode)
	if Mode() != TestMode {
		t.Fatalf("Mode() = %s after SetMode(test)", Mode())
	}
}
