// Package config holds runtime configuration for imgharvest.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config controls a scrape run. Zero values are filled from Default.
type Config struct {
	Query     string `validate:"required"`
	Count     int    `validate:"gt=0"`
	OutputDir string `validate:"required"`

	UserAgent   string `validate:"required"`
	Headless    bool
	Concurrency int `validate:"gte=1"`

	// FetchTimeout bounds each image download request.
	FetchTimeout time.Duration `validate:"gt=0"`

	// Settle intervals between page interactions. These are upper bounds on
	// waits, never unbounded polls.
	NavigateSettle time.Duration `validate:"gte=0"`
	InitialSettle  time.Duration `validate:"gte=0"`
	ScrollSettle   time.Duration `validate:"gte=0"`
	PreClickSettle time.Duration `validate:"gte=0"`
	ClickSettle    time.Duration `validate:"gte=0"`
	ConsentSettle  time.Duration `validate:"gte=0"`

	// MinImageBytes is the smallest payload accepted as a real image.
	MinImageBytes int `validate:"gt=0"`
}

// Chrome user agent matching a real desktop browser.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Count:          10,
		OutputDir:      "results",
		UserAgent:      defaultUserAgent,
		Headless:       true,
		Concurrency:    3,
		FetchTimeout:   10 * time.Second,
		NavigateSettle: 2 * time.Second,
		InitialSettle:  3 * time.Second,
		ScrollSettle:   2 * time.Second,
		PreClickSettle: 500 * time.Millisecond,
		ClickSettle:    time.Second,
		ConsentSettle:  time.Second,
		MinImageBytes:  1000,
	}
}

var validate = validator.New()

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("config: invalid %s (constraint %q)", first.Field(), first.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
