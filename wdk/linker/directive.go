// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package linker

import (
	"fmt"
	"strings"

	"kmkit.sh/internal/errs"
)

// Class is the semantic category of a directive. A profile lists classes in
// non-decreasing order.
type Class int

const (
	ClassDiagnostics Class = iota + 1
	ClassABI
	ClassSubsystem
	ClassSectionLayout
	ClassEntryPoint
	ClassInstructionSet
	ClassExtra
)

var classNames = map[Class]string{
	ClassDiagnostics:    "diagnostics",
	ClassABI:            "abi",
	ClassSubsystem:      "subsystem",
	ClassSectionLayout:  "section-layout",
	ClassEntryPoint:     "entry-point",
	ClassInstructionSet: "instruction-set",
	ClassExtra:          "extra",
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}

	return fmt.Sprintf("class(%d)", int(c))
}

// MarshalText renders the class name.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a class name.
func (c *Class) UnmarshalText(text []byte) error {
	for class, name := range classNames {
		if name == string(text) {
			*c = class
			return nil
		}
	}

	return fmt.Errorf("unknown directive class %q: %w", text, errs.ErrInvalid)
}

// Tool names the consumer of a directive.
type Tool string

const (
	// ToolLinker directives are passed to the linker.
	ToolLinker Tool = "link"

	// ToolCodegen directives are code generation options of the compiler.
	ToolCodegen Tool = "codegen"
)

// Directive is one flag of a profile. Linker flags with a value render as
// `Flag:Value`, code generation options as `Flag=Value`.
type Directive struct {
	Class Class  `json:"class"`
	Tool  Tool   `json:"tool"`
	Flag  string `json:"flag"`
	Value string `json:"value,omitempty"`
}

// Link returns a linker directive.
func Link(class Class, flag, value string) Directive {
	return Directive{Class: class, Tool: ToolLinker, Flag: flag, Value: value}
}

// Codegen returns a code generation directive.
func Codegen(class Class, flag, value string) Directive {
	return Directive{Class: class, Tool: ToolCodegen, Flag: flag, Value: value}
}

// ParseLinkArg splits a raw linker argument such as `/MERGE:_TEXT=.text`
// into a directive of the given class. Arguments which are not options, like
// library names, keep the whole text as flag.
func ParseLinkArg(class Class, arg string) Directive {
	if strings.HasPrefix(arg, "/") || strings.HasPrefix(arg, "-") {
		if i := strings.IndexByte(arg, ':'); i > 0 {
			return Link(class, arg[:i], arg[i+1:])
		}
	}

	return Link(class, arg, "")
}

func (d Directive) String() string {
	switch {
	case d.Value == "":
		return d.Flag
	case d.Tool == ToolCodegen:
		return d.Flag + "=" + d.Value
	default:
		return d.Flag + ":" + d.Value
	}
}

// option is the upper-cased flag name without its leading `/` or `-`.
func (d Directive) option() string {
	return strings.ToUpper(strings.TrimLeft(d.Flag, "/-"))
}

func (d Directive) isEntryPoint() bool {
	return d.Tool == ToolLinker && d.option() == "ENTRY"
}

func (d Directive) isSectionMerge() bool {
	return d.Tool == ToolLinker && (d.option() == "MERGE" || d.option() == "SECTION")
}

func (d Directive) isOptimization() bool {
	return d.Tool == ToolLinker && d.option() == "OPT"
}

func (d Directive) isTargetFeature() bool {
	return d.Tool == ToolCodegen && d.Flag == "target-feature"
}
