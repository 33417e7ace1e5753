// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package kit holds the version conventions of the vendor driver kit: the
// directory-version of an installed kit, the driver framework version and the
// API version ceilings a binding request can be capped at.
package kit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"kmkit.sh/internal/errs"
)

// DefaultVersion is the kit release used when none is configured.
const DefaultVersion = "10.0.22621.0"

// DefaultFrameworkVersion is the kernel-mode driver framework release the
// framework headers and libraries are installed under.
const DefaultFrameworkVersion = "1.33"

// Version is a kit directory-version, i.e. the four dotted components the kit
// uses to name its versioned Include, Lib and bin folders.
type Version struct {
	Major, Minor, Build, Revision uint64
}

// ParseVersion parses a directory-version such as `10.0.22621.0`.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 4 {
		return Version{}, fmt.Errorf("kit version %q must have four dotted components: %w", s, errs.ErrInvalid)
	}

	var nums [4]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Version{}, fmt.Errorf("kit version %q: component %q is not a number: %w", s, p, errs.ErrInvalid)
		}
		nums[i] = n
	}

	return Version{nums[0], nums[1], nums[2], nums[3]}, nil
}

// String returns the directory name of the version.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// ParseFrameworkVersion validates a driver framework version such as `1.33`.
func ParseFrameworkVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("framework version %q: %v: %w", s, err, errs.ErrInvalid)
	}

	if v.Major() != 1 || v.Prerelease() != "" {
		return nil, fmt.Errorf("framework version %q is not a 1.x release: %w", s, errs.ErrInvalid)
	}

	return v, nil
}

// FrameworkDir returns the folder name the kit installs a framework release
// under, which only carries the major and minor components.
func FrameworkDir(v *semver.Version) string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}
