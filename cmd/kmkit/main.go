// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package main

import (
	"os"

	"kmkit.sh/internal/cli/kmkit"
)

func main() {
	os.Exit(kmkit.Main(os.Args[1:]))
}
