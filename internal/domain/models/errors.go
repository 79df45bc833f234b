package models

import "errors"

var (
	// ErrSymbolNotFound means the provider has no data for the symbol. Skip it.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrRateLimited means the provider is throttling us. Back off and retry.
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrTransient covers network failures and 5xx answers. Skip the symbol.
	ErrTransient = errors.New("transient provider error")

	// ErrChannelNotConfigured marks a notification channel without credentials.
	ErrChannelNotConfigured = errors.New("notification channel not configured")
)
