// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/eventbnb/internal/describe"
	"github.com/tomtom215/eventbnb/internal/pricing"
	"github.com/tomtom215/eventbnb/internal/store"
	"github.com/tomtom215/eventbnb/internal/validation"
)

// Validate checks struct tags first, then the rules tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if _, err := c.AsOfDate(); err != nil {
		return err
	}
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateDescribe(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validateModel() error {
	if c.Model.Version == "baseline" || c.Model.Version == pricing.BaselineVersion {
		return nil
	}
	if _, _, err := pricing.ParseVersion(c.Model.Version, c.Model.Name); err != nil {
		return fmt.Errorf("model.version: %w", err)
	}
	return nil
}

func (c *Config) validateStore() error {
	if _, err := store.ParseDialect(c.Store.Driver); err != nil {
		return fmt.Errorf("store.driver: %w", err)
	}
	return nil
}

func (c *Config) validateDescribe() error {
	if !c.Describe.Enabled() {
		return nil
	}
	if len(strings.TrimSpace(c.Describe.APIKey)) < describe.MinAPIKeyLength {
		return fmt.Errorf("GEMINI_API_KEY must be at least %d characters", describe.MinAPIKeyLength)
	}
	if err := validateHTTPURL(c.Describe.BaseURL, "describe.base_url"); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.RateLimitDisabled && c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("server.rate_limit_window must be positive when rate limiting is enabled")
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			continue
		}
		if err := validateHTTPURL(origin, "server.cors_origins"); err != nil {
			return err
		}
	}
	return nil
}
