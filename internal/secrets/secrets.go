// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API credentials from a directory of plain-text files
// and from the environment. Each file in the directory is one secret: the
// filename is the key name and the trimmed contents are the value.
//
// Supported key files: anthropic-api-key, anthropic-api-key-1 through
// anthropic-api-key-5, tavily-api-key, semantic-scholar-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Secret names.
const (
	AnthropicAPIKey       = "anthropic-api-key"
	TavilyAPIKey          = "tavily-api-key"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
)

// MaxRotationKeys is the highest numbered suffix Keys looks for.
const MaxRotationKeys = 5

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// EnvName maps a secret name to its environment variable:
// "anthropic-api-key-2" becomes "ANTHROPIC_API_KEY_2".
func EnvName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// Lookup returns the named secret, preferring the loaded file over the
// environment.
func Lookup(secrets map[string]string, name string) string {
	if v := secrets[name]; v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(EnvName(name)))
}

// Keys returns the ordered credential list for rotation: name itself, then
// name-1 through name-MaxRotationKeys, each looked up in secrets and then
// the environment. Empty and repeated values are dropped so rotation never
// retries a key it has already spent.
func Keys(secrets map[string]string, name string) []string {
	names := []string{name}
	for i := 1; i <= MaxRotationKeys; i++ {
		names = append(names, fmt.Sprintf("%s-%d", name, i))
	}

	var keys []string
	seen := make(map[string]bool)
	for _, n := range names {
		v := Lookup(secrets, n)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		keys = append(keys, v)
	}
	return keys
}
