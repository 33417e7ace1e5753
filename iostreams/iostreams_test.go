// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package iostreams

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestStreams(t *testing.T) {
	io, _, out, _ := Test()
	assert.False(t, io.IsStdoutTTY())
	assert.False(t, io.ColorEnabled())

	_, _ = io.Out.Write([]byte("hello"))
	assert.Equal(t, "hello", out.String())
}

func TestContextRoundTrip(t *testing.T) {
	io, _, _, _ := Test()
	ctx := WithIOStreams(context.Background(), io)

	assert.Same(t, io, G(ctx))
	assert.Same(t, IO, G(context.Background()))
}

func TestColorSchemeDisabled(t *testing.T) {
	cs := NewColorScheme(false)
	assert.Equal(t, "text", cs.Red("text"))
	assert.Equal(t, "✓", cs.SuccessIcon())
	assert.Equal(t, "a 1", cs.Boldf("a %d", 1))
}

func TestColorSchemeEnabled(t *testing.T) {
	cs := NewColorScheme(true)
	assert.NotEqual(t, "text", cs.Green("text"))
	assert.Contains(t, cs.Green("text"), "text")
}
