// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file expect in compliance with the License.
package log

import "strings"

// LoggerType controls how log statements are output
type LoggerType uint

// Logger types
const (
	QUIET LoggerType = iota
	BASIC
	FANCY
	JSON
)

var loggerTypeNames = map[LoggerType]string{
	QUIET: "quiet",
	BASIC: "basic",
	FANCY: "fancy",
	JSON:  "json",
}

// LoggerTypeFromString returns the logger type with the given name, falling
// back to BASIC for unknown names.
func LoggerTypeFromString(name string) LoggerType {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range loggerTypeNames {
		if n == name {
			return t
		}
	}

	return BASIC
}

// String implements fmt.Stringer
func (t LoggerType) String() string {
	if name, ok := loggerTypeNames[t]; ok {
		return name
	}

	return loggerTypeNames[BASIC]
}

// LoggerTypeNames returns the accepted names of all logger types.
func LoggerTypeNames() []string {
	return []string{"quiet", "basic", "fancy", "json"}
}
