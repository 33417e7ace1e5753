// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package env

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/subosito/gotenv"

	"kmkit.sh/internal/errs"
)

// ReadDotenv parses a dotenv file with the usual quoting and escaping rules
// but without variable expansion: `${name}` stays in the value as written.
// Variables are sorted by name.
func ReadDotenv(r io.Reader) ([]Variable, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not read dotenv file")
	}

	parsed, err := gotenv.StrictParse(strings.NewReader(escapeDollars(string(raw))))
	if err != nil {
		return nil, errors.Wrap(err, "could not parse dotenv file")
	}

	names := make([]string, 0, len(parsed))
	for name := range parsed {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make([]Variable, 0, len(names))
	for _, name := range names {
		vars = append(vars, Variable{Name: name, Value: parsed[name]})
	}

	return vars, nil
}

// escapeDollars prefixes every unescaped `$` outside single-quoted values
// with a backslash, which the dotenv parser strips again instead of
// expanding the variable.
func escapeDollars(text string) string {
	lines := strings.Split(text, "\n")

	// open is the quote of a value spanning several lines.
	open := byte(0)

	for i, line := range lines {
		switch open {
		case '\'':
			if strings.Contains(line, "'") {
				open = 0
			}
			continue
		case '"':
			if strings.Contains(line, `"`) {
				open = 0
			}
			lines[i] = escapeValue(line)
			continue
		}

		sep := strings.Index(line, "=")
		if sep < 0 {
			sep = strings.Index(line, ":")
		}
		if sep < 0 {
			continue
		}

		value := strings.TrimLeft(line[sep+1:], " \t")
		if value != "" && (value[0] == '\'' || value[0] == '"') {
			if !strings.Contains(value[1:], value[:1]) {
				open = value[0]
			}
			if value[0] == '\'' {
				continue
			}
		}

		lines[i] = line[:sep+1] + escapeValue(line[sep+1:])
	}

	return strings.Join(lines, "\n")
}

func escapeValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '$' && (i == 0 || s[i-1] != '\\') {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}

	return b.String()
}

// FromDotenv splits variables read from a dotenv file into the kit version,
// the kit root and template overrides for the other variables of the layout's
// namespace. The roots are literal values; the overrides may reference other
// variables with `${name}` and are checked by the resolver. Variables outside
// the namespace are ignored.
func (l Layout) FromDotenv(vars []Variable) (version, root string, overrides []Template) {
	prefix := l.Name("")

	for _, v := range vars {
		switch {
		case v.Name == l.Name(RoleVersion):
			version = v.Value
		case v.Name == l.Name(RoleRoot):
			root = v.Value
		case strings.HasPrefix(v.Name, prefix):
			overrides = append(overrides, Template{Name: v.Name, Template: v.Value})
		}
	}

	return version, root, overrides
}

// WriteDotenv writes the mapping in dotenv syntax, one variable per line in
// authored order, so that ReadDotenv returns the same values and no dotenv
// reader expands them.
func WriteDotenv(w io.Writer, m *Mapping) error {
	bw := bufio.NewWriter(w)

	for _, name := range m.Names() {
		v, _ := m.Lookup(name)

		quoted, err := quoteDotenv(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		if _, err := fmt.Fprintf(bw, "%s=%s\n", name, quoted); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// quoteDotenv single-quotes v, which dotenv readers take verbatim. A value
// holding a single quote, or ending in a backslash that would escape the
// closing quote, is written unquoted with `$` escaped instead: double quotes
// are no option since readers turn a `\n` inside them into a newline.
func quoteDotenv(v string) (string, error) {
	if strings.ContainsAny(v, "\r\n") {
		return "", fmt.Errorf("value spans several lines: %w", errs.ErrInvalid)
	}

	if !strings.Contains(v, "'") && !strings.HasSuffix(v, `\`) {
		return "'" + v + "'", nil
	}

	if strings.Contains(v, "#") || v != strings.TrimSpace(v) || v[0] == '"' || v[0] == '\'' {
		return "", fmt.Errorf("value %q cannot be written to a dotenv file: %w", v, errs.ErrInvalid)
	}

	return strings.ReplaceAll(v, "$", `\$`), nil
}
