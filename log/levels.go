// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file expect in compliance with the License.
package log

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// LevelNames returns the accepted level names, most severe first.
func LevelNames() []string {
	return []string{"panic", "fatal", "error", "warn", "info", "debug", "trace"}
}

// LevelFromString returns the level with the given name, case-insensitively.
// "warning" is accepted for "warn"; anything unknown falls back to info.
func LevelFromString(name string) logrus.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warn" {
		return logrus.WarnLevel
	}

	for _, level := range logrus.AllLevels {
		if level.String() == name {
			return level
		}
	}

	return logrus.InfoLevel
}
