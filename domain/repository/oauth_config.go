package repository

import "social-publisher/domain/model"

// IOAuthConfigRegistry is the read-only OAuth client metadata lookup.
type IOAuthConfigRegistry interface {
	Get(platform model.Platform) (model.OAuthConfig, error)
	IsConfigured(platform model.Platform) bool
	ListConfigured() []model.Platform
	// Resolve returns the config with per-connection endpoints filled in.
	Resolve(platform model.Platform, instanceURL string) (model.OAuthConfig, error)
}
