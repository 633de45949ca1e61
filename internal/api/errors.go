// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package api

// Error codes carried in APIError.Code.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeStore              = "STORE_ERROR"
	CodeDescribeDisabled   = "DESCRIBE_DISABLED"
	CodeMissingDescription = "MISSING_DESCRIPTION"
	CodeUpstream           = "UPSTREAM_ERROR"
	CodeUpstreamRateLimit  = "UPSTREAM_RATE_LIMITED"
	CodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	CodeInternal           = "INTERNAL_ERROR"
)
