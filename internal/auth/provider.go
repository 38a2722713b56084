package auth

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"mystic-chat/internal/config"
)

// StaticProvider returns a fixed token. Used for tests and for tokens
// passed directly on the command line.
type StaticProvider string

func (p StaticProvider) Token(ctx context.Context) (string, error) {
	return string(p), nil
}

// EnvProvider reads the token from an environment variable on every
// refresh, so an updated variable is picked up after the cache expires.
type EnvProvider string

func (p EnvProvider) Token(ctx context.Context) (string, error) {
	return strings.TrimSpace(os.Getenv(string(p))), nil
}

// FileProvider reads the token from a file, e.g. one maintained by an
// external login helper.
type FileProvider string

func (p FileProvider) Token(ctx context.Context) (string, error) {
	data, err := os.ReadFile(string(p))
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// CommandProvider runs an external command and uses its trimmed stdout as
// the token, the way CLIs defer to `pass`, `gcloud auth print-access-token`
// and similar helpers.
type CommandProvider string

func (p CommandProvider) Token(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", string(p))
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("token command: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ProviderFromConfig picks the configured token source. Command wins over
// file, file over env; nil means anonymous mode.
func ProviderFromConfig(cfg config.AuthConfig) TokenProvider {
	switch {
	case cfg.TokenCommand != "":
		return CommandProvider(cfg.TokenCommand)
	case cfg.TokenFile != "":
		return FileProvider(cfg.TokenFile)
	case cfg.TokenEnv != "":
		return EnvProvider(cfg.TokenEnv)
	default:
		return nil
	}
}
