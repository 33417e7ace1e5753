// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package errs

import "errors"

var (
	// ErrNotFound is returned when an object is not found
	ErrNotFound = errors.New("not found")

	// ErrInvalid is returned when an input is malformed
	ErrInvalid = errors.New("invalid")

	// ErrUndefinedReference is returned when a template references a variable
	// which is neither a root nor a derived variable
	ErrUndefinedReference = errors.New("undefined reference")

	// ErrCyclicReference is returned when derived variables reference each
	// other in a loop
	ErrCyclicReference = errors.New("cyclic reference")

	// ErrMissingArchitectureMacro is returned when a binding request is emitted
	// without a target architecture
	ErrMissingArchitectureMacro = errors.New("missing architecture macro")

	// ErrUnresolvedHeaderPath is returned when a header cannot be located in
	// any of the include directories
	ErrUnresolvedHeaderPath = errors.New("unresolved header path")

	// ErrMissingVendorPath is returned when the path mapping lacks a library
	// path required by a mandatory linker directive
	ErrMissingVendorPath = errors.New("missing vendor path")

	// ErrDuplicateEntryPoint is returned when more than one entry point
	// directive is present in a linker profile
	ErrDuplicateEntryPoint = errors.New("duplicate entry point")

	// ErrMissingEntryPoint is returned when no entry point directive is present
	ErrMissingEntryPoint = errors.New("missing entry point")

	// ErrInvalidEntryPoint is returned when the entry point does not name the
	// framework entry stub
	ErrInvalidEntryPoint = errors.New("invalid entry point")

	// ErrMissingInstructionSetRestriction is returned when a linker profile
	// does not disable vector and floating-point instruction sets
	ErrMissingInstructionSetRestriction = errors.New("missing instruction set restriction")

	// ErrOutOfOrder is returned when directives are not in class order
	ErrOutOfOrder = errors.New("out of order")

	// ErrMissingDirective is returned when a linker profile lacks a directive
	// every kernel-mode binary needs
	ErrMissingDirective = errors.New("missing directive")

	// ErrConflictingDirective is returned when a directive undoes one of the
	// mandatory directives of a linker profile
	ErrConflictingDirective = errors.New("conflicting directive")
)

// IsNotFoundError returns true if the unwrapped error is ErrNotFound
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidError returns true if the unwrapped error is ErrInvalid
func IsInvalidError(err error) bool {
	return errors.Is(err, ErrInvalid)
}

// IsUndefinedReferenceError returns true if the unwrapped error is
// ErrUndefinedReference
func IsUndefinedReferenceError(err error) bool {
	return errors.Is(err, ErrUndefinedReference)
}

// IsCyclicReferenceError returns true if the unwrapped error is
// ErrCyclicReference
func IsCyclicReferenceError(err error) bool {
	return errors.Is(err, ErrCyclicReference)
}

// IsMissingArchitectureMacroError returns true if the unwrapped error is
// ErrMissingArchitectureMacro
func IsMissingArchitectureMacroError(err error) bool {
	return errors.Is(err, ErrMissingArchitectureMacro)
}

// IsUnresolvedHeaderPathError returns true if the unwrapped error is
// ErrUnresolvedHeaderPath
func IsUnresolvedHeaderPathError(err error) bool {
	return errors.Is(err, ErrUnresolvedHeaderPath)
}

// IsMissingVendorPathError returns true if the unwrapped error is
// ErrMissingVendorPath
func IsMissingVendorPathError(err error) bool {
	return errors.Is(err, ErrMissingVendorPath)
}

// IsDuplicateEntryPointError returns true if the unwrapped error is
// ErrDuplicateEntryPoint
func IsDuplicateEntryPointError(err error) bool {
	return errors.Is(err, ErrDuplicateEntryPoint)
}

// IsMissingInstructionSetRestrictionError returns true if the unwrapped error
// is ErrMissingInstructionSetRestriction
func IsMissingInstructionSetRestrictionError(err error) bool {
	return errors.Is(err, ErrMissingInstructionSetRestriction)
}

// IsMissingDirectiveError returns true if the unwrapped error is
// ErrMissingDirective
func IsMissingDirectiveError(err error) bool {
	return errors.Is(err, ErrMissingDirective)
}

// IsConflictingDirectiveError returns true if the unwrapped error is
// ErrConflictingDirective
func IsConflictingDirectiveError(err error) bool {
	return errors.Is(err, ErrConflictingDirective)
}
