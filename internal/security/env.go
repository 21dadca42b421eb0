package security

import (
	"maps"
	"os"
	"slices"
)

// ProviderEnvVars lists, per provider, the environment variables checked
// for an API key when the configuration leaves it empty. The first
// non-empty variable wins.
var ProviderEnvVars = map[string][]string{
	"openai":     {"OPENAI_API_KEY"},
	"gemini":     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openrouter": {"OPENROUTER_API_KEY"},
}

// LoadEnvCredentials fills store with keys found in the environment for
// providers that have no credential yet. It returns the names of the
// providers it set.
func LoadEnvCredentials(store *CredentialStore, lookup func(string) (string, bool)) []string {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var loaded []string
	for _, name := range slices.Sorted(maps.Keys(ProviderEnvVars)) {
		if v, ok := store.Get(name); ok && v != "" {
			continue
		}
		for _, env := range ProviderEnvVars[name] {
			if v, ok := lookup(env); ok && store.SetIfPresent(name, v) {
				loaded = append(loaded, name)
				break
			}
		}
	}
	return loaded
}
