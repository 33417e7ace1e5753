// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file expect in compliance with the License.
package config

import (
	"context"
)

// G is an alias for FromContext.
var G = FromContext

// contextKey is used to retrieve the configuration manager from the context.
type contextKey struct{}

// WithConfigManager returns a new context with the provided configuration
// manager.
func WithConfigManager(ctx context.Context, cfgm *ConfigManager) context.Context {
	return context.WithValue(ctx, contextKey{}, cfgm)
}

// FromContext returns the configuration in the context, or the defaults when
// no manager was set.
func FromContext(ctx context.Context) *Config {
	if cm, ok := ctx.Value(contextKey{}).(*ConfigManager); ok && cm != nil {
		return cm.Config
	}

	c, _ := NewDefaultConfig()
	return c
}
