package analyses

import (
	"fmt"
	"strings"
)

// Mode selects how the three stages are coordinated.
type Mode string

const (
	// ModeBatch waits for every stage and writes one combined update, or
	// nothing if any stage fails.
	ModeBatch Mode = "batch"
	// ModeStreaming persists and publishes each stage as soon as it resolves.
	ModeStreaming Mode = "streaming"
)

// ParseMode normalizes a mode string. Empty input yields def.
func ParseMode(raw string, def Mode) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		if def == "" {
			return ModeStreaming, nil
		}
		return def, nil
	case string(ModeBatch):
		return ModeBatch, nil
	case string(ModeStreaming), "stream":
		return ModeStreaming, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrValidation, raw)
}
