// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

// Feeder populates a configuration from one source. Feeders are applied in
// the order they were added, later ones overriding earlier ones.
type Feeder interface {
	// Feed sets the values the source holds and leaves the others untouched.
	Feed(*Config) error

	// Write persists the configuration to the source. With merge, keys the
	// source holds which the configuration does not know are kept.
	Write(cfg *Config, merge bool) error
}
