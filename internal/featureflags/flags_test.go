package featureflags

import "testing"

func TestEnabledIn(t *testing.T) {
	env := map[string]string{
		"FLAG_EXPIRE_ON_READ": " Yes ",
		"FLAG_OFF":            "0",
	}
	lookup := func(key string) string { return env[key] }

	if !EnabledIn(lookup, ExpireOnRead) {
		t.Fatal("expected expire_on_read to be enabled")
	}
	if EnabledIn(lookup, "off") {
		t.Fatal("expected 0 to disable the flag")
	}
	if EnabledIn(lookup, "missing") {
		t.Fatal("expected unset flag to be disabled")
	}
}

func TestEnabledReadsEnvironment(t *testing.T) {
	t.Setenv("FLAG_EXPIRE_ON_READ", "true")
	if !Enabled(ExpireOnRead) {
		t.Fatal("expected flag from environment")
	}
}
