// Package actor resolves the identity attributed to the current process.
//
// Resolution order: TUSK_ACTOR, git user.email, git user.name, USER, then
// the literal "unknown". The result is used for soft-claim attribution and
// is stable for the lifetime of the process.
package actor

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// EnvOverride forces the actor identity, bypassing repository identity.
const EnvOverride = "TUSK_ACTOR"

const gitTimeout = 2 * time.Second

var cached string

// Resolve returns the current actor identity. Identity resolution is
// fallible at every step but always produces a non-empty string.
func Resolve() string {
	if cached != "" {
		return cached
	}
	cached = resolve(gitConfig)
	return cached
}

// resolve walks the priority list. The git lookup is injected for tests.
func resolve(git func(key string) string) string {
	if v := strings.TrimSpace(os.Getenv(EnvOverride)); v != "" {
		return v
	}
	if v := git("user.email"); v != "" {
		return v
	}
	if v := git("user.name"); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("USER")); v != "" {
		return v
	}
	return "unknown"
}

func gitConfig(key string) string {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "config", "--get", key).Output()
	if err != nil {
		log.Debug().Str("key", key).Err(err).Msg("git identity lookup failed")
		return ""
	}
	return strings.TrimSpace(string(out))
}
