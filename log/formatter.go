// SPDX-License-Identifier: MIT
// Copyright (c) 2017, Denis Parchenko.
// Copyright (c) 2022, Unikraft GmbH. All rights reserved.
package log

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// StageField is the entry field rendered as a message prefix.
const StageField = "stage"

const defaultTimestampFormat = time.RFC3339

type renderFunc func(...string) string

// ColorScheme holds the renderers used for each part of a formatted entry.
type ColorScheme struct {
	Levels    map[logrus.Level]renderFunc
	Prefix    renderFunc
	Timestamp renderFunc
}

func badge(bg string) renderFunc {
	return lipgloss.NewStyle().Background(lipgloss.Color(bg)).Foreground(lipgloss.AdaptiveColor{
		Light: "15",
		Dark:  "0",
	}).Render
}

var (
	defaultColorScheme = &ColorScheme{
		Levels: map[logrus.Level]renderFunc{
			logrus.InfoLevel:  badge("8"),
			logrus.WarnLevel:  badge("11"),
			logrus.ErrorLevel: badge("9"),
			logrus.FatalLevel: badge("9"),
			logrus.PanicLevel: badge("9"),
			logrus.DebugLevel: badge("12"),
			logrus.TraceLevel: lipgloss.NewStyle().Background(lipgloss.Color("0")).Foreground(lipgloss.Color("15")).Render,
		},
		Prefix:    badge("8"),
		Timestamp: lipgloss.NewStyle().Render,
	}

	plain = lipgloss.NewStyle().Render

	noColorsColorScheme = &ColorScheme{
		Levels:    map[logrus.Level]renderFunc{},
		Prefix:    plain,
		Timestamp: plain,
	}

	levelGlyphs = map[logrus.Level]string{
		logrus.InfoLevel:  "i",
		logrus.WarnLevel:  "W",
		logrus.ErrorLevel: "E",
		logrus.FatalLevel: "!",
		logrus.PanicLevel: "X",
		logrus.DebugLevel: "D",
		logrus.TraceLevel: "T",
	}
)

func (cs *ColorScheme) level(l logrus.Level) renderFunc {
	if r, ok := cs.Levels[l]; ok {
		return r
	}

	return plain
}

// TextFormatter renders entries either as a compact, optionally colored line
// when attached to a terminal, or as logfmt-style key/value pairs otherwise.
type TextFormatter struct {
	// Set to true to bypass checking for a TTY before outputting colors.
	ForceColors bool

	// Force disabling colors.
	DisableColors bool

	// Force formatted layout, even for non-TTY output.
	ForceFormatting bool

	// Disable timestamp logging.
	DisableTimestamp bool

	// Timestamp format to use for display.
	TimestampFormat string

	colorScheme *ColorScheme
	isTerminal  bool

	sync.Once
}

func (f *TextFormatter) init(entry *logrus.Entry) {
	if entry.Logger == nil {
		return
	}

	if file, ok := entry.Logger.Out.(*os.File); ok {
		f.isTerminal = term.IsTerminal(int(file.Fd()))
	}
}

// SetColorScheme overrides the default color scheme.
func (f *TextFormatter) SetColorScheme(colorScheme *ColorScheme) {
	f.colorScheme = colorScheme
}

// Format implements logrus.Formatter
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	f.Do(func() { f.init(entry) })

	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != StageField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = defaultTimestampFormat
	}

	if f.ForceFormatting || f.isTerminal {
		scheme := noColorsColorScheme
		if (f.ForceColors || f.isTerminal) && !f.DisableColors {
			scheme = defaultColorScheme
			if f.colorScheme != nil {
				scheme = f.colorScheme
			}
		}

		f.printFormatted(b, entry, keys, timestampFormat, scheme)
	} else {
		f.printPairs(b, entry, keys, timestampFormat)
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *TextFormatter) printFormatted(b *bytes.Buffer, entry *logrus.Entry, keys []string, timestampFormat string, scheme *ColorScheme) {
	render := scheme.level(entry.Level)
	glyph, ok := levelGlyphs[entry.Level]
	if !ok {
		glyph = "D"
	}

	b.WriteString(render(fmt.Sprintf(" %1s ", glyph)))

	if !f.DisableTimestamp {
		b.WriteByte(' ')
		b.WriteString(scheme.Timestamp(entry.Time.Format(timestampFormat)))
	}

	if stage, ok := entry.Data[StageField]; ok {
		b.WriteString(scheme.Prefix(fmt.Sprintf(" %v:", stage)))
	}

	b.WriteByte(' ')
	b.WriteString(entry.Message)

	for _, k := range keys {
		fmt.Fprintf(b, " %s=%+v", render(k), entry.Data[k])
	}
}

func (f *TextFormatter) printPairs(b *bytes.Buffer, entry *logrus.Entry, keys []string, timestampFormat string) {
	if !f.DisableTimestamp {
		appendKeyValue(b, "time", entry.Time.Format(timestampFormat))
	}

	appendKeyValue(b, "level", entry.Level.String())

	if stage, ok := entry.Data[StageField]; ok {
		appendKeyValue(b, StageField, stage)
	}

	if entry.Message != "" {
		appendKeyValue(b, "msg", entry.Message)
	}

	for _, k := range keys {
		appendKeyValue(b, k, entry.Data[k])
	}

	// Trim the trailing separator written by the last pair.
	if b.Len() > 0 {
		b.Truncate(b.Len() - 1)
	}
}

func appendKeyValue(b *bytes.Buffer, key string, value interface{}) {
	b.WriteString(key)
	b.WriteByte('=')

	var s string
	switch v := value.(type) {
	case string:
		s = v
	case error:
		s = v.Error()
	default:
		s = fmt.Sprint(v)
	}

	if needsQuoting(s) {
		fmt.Fprintf(b, "%q", s)
	} else {
		b.WriteString(s)
	}

	b.WriteByte(' ')
}

func needsQuoting(text string) bool {
	if len(text) == 0 {
		return true
	}

	for _, ch := range text {
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '-' || ch == '.' || ch == '_' || ch == '/') {
			return true
		}
	}

	return false
}
