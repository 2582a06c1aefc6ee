// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider API keys from a directory of plain-text files
// and from a dotenv file. Each file in the directory represents one secret:
// the filename is the key name and the file contents (trimmed) are the value.
//
// Supported key files: openai-api-key, anthropic-api-key, perplexity-api-key.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/idea-engine/pkg/types"
)

// Key file names and the environment variables consulted when a file is
// absent.
const (
	FastKeyFile     = "openai-api-key"
	DeepKeyFile     = "anthropic-api-key"
	ResearchKeyFile = "perplexity-api-key"

	FastKeyEnv     = "OPENAI_API_KEY"
	DeepKeyEnv     = "ANTHROPIC_API_KEY"
	ResearchKeyEnv = "PERPLEXITY_API_KEY"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log logrus.FieldLogger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if log != nil {
				log.WithField("secret", name).WithError(err).Warn("secrets.read.failed")
			}
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnvFile exports the variables of a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyProviderKeys fills every provider API key left empty by the
// configuration, first from the secrets map and then from the environment.
func ApplyProviderKeys(cfg *types.ReasoningConfig, secrets map[string]string) {
	fill := func(p *types.ProviderConfig, file, env string) {
		if p.APIKey != "" {
			return
		}
		if v := secrets[file]; v != "" {
			p.APIKey = v
			return
		}
		p.APIKey = os.Getenv(env)
	}
	fill(&cfg.Fast, FastKeyFile, FastKeyEnv)
	fill(&cfg.Deep, DeepKeyFile, DeepKeyEnv)
	fill(&cfg.Research, ResearchKeyFile, ResearchKeyEnv)
}
