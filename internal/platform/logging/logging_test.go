package logging

import "testing"

func TestNewBuildsForEachEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production", "staging"} {
		logger, err := New(env)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", env, err)
		}
		if logger == nil {
			t.Fatalf("%s: expected logger", env)
		}
		_ = logger.Sync()
	}
}
