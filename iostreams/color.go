// SPDX-License-Identifier: MIT
//
// Copyright (c) 2019 GitHub Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package iostreams

import (
	"fmt"
	"os"

	"github.com/mgutz/ansi"
)

var (
	red    = ansi.ColorFunc("red")
	yellow = ansi.ColorFunc("yellow")
	green  = ansi.ColorFunc("green")
	gray   = ansi.ColorFunc("black+h")
	bold   = ansi.ColorFunc("default+b")
	cyan   = ansi.ColorFunc("cyan")
)

// EnvColorDisabled reports whether the environment asks for plain output.
func EnvColorDisabled() bool {
	return os.Getenv("NO_COLOR") != "" || os.Getenv("CLICOLOR") == "0"
}

// EnvColorForced reports whether the environment forces colored output.
func EnvColorForced() bool {
	return os.Getenv("CLICOLOR_FORCE") != "" && os.Getenv("CLICOLOR_FORCE") != "0"
}

type ColorScheme struct {
	enabled bool
}

func NewColorScheme(enabled bool) *ColorScheme {
	return &ColorScheme{enabled: enabled}
}

func (c *ColorScheme) paint(fn func(string) string, t string) string {
	if !c.enabled {
		return t
	}
	return fn(t)
}

func (c *ColorScheme) Bold(t string) string   { return c.paint(bold, t) }
func (c *ColorScheme) Red(t string) string    { return c.paint(red, t) }
func (c *ColorScheme) Yellow(t string) string { return c.paint(yellow, t) }
func (c *ColorScheme) Green(t string) string  { return c.paint(green, t) }
func (c *ColorScheme) Gray(t string) string   { return c.paint(gray, t) }
func (c *ColorScheme) Cyan(t string) string   { return c.paint(cyan, t) }

func (c *ColorScheme) Boldf(t string, args ...interface{}) string {
	return c.Bold(fmt.Sprintf(t, args...))
}

func (c *ColorScheme) SuccessIcon() string {
	return c.Green("✓")
}

func (c *ColorScheme) WarningIcon() string {
	return c.Yellow("!")
}

func (c *ColorScheme) FailureIcon() string {
	return c.Red("X")
}
