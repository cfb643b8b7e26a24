package commands

import (
	"fmt"
	"log/slog"

	urlguardService "github.com/mcpdeck/guard/internal/urlguard/service"
)

// RunCheckURL validates a single URL against the named trust profile and
// reports the outcome. A rejected URL is returned as an error so the
// command exits non-zero.
func RunCheckURL(
	validator urlguardService.URLValidator,
	logger *slog.Logger,
	rawURL, profile string,
) error {
	if rawURL == "" {
		return fmt.Errorf("missing URL argument")
	}

	var err error
	switch profile {
	case "external":
		_, err = validator.Validate(rawURL)
	case "internal":
		_, err = validator.ValidateInternal(rawURL)
	default:
		return fmt.Errorf("invalid profile: %s (valid options: external, internal)", profile)
	}

	if err != nil {
		logger.Warn("url rejected",
			slog.String("url", rawURL),
			slog.String("profile", profile),
			slog.Any("reason", err),
		)
		return fmt.Errorf("url rejected: %w", err)
	}

	logger.Info("url allowed",
		slog.String("url", rawURL),
		slog.String("profile", profile),
	)
	return nil
}
