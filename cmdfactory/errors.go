// SPDX-License-Identifier: MIT
// Copyright (c) 2019 GitHub Inc.
// Copyright (c) 2022 Unikraft GmbH.
package cmdfactory

import (
	"context"
	"errors"
	"fmt"
)

// Exit codes returned by Main.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitUsage     = 2
	ExitCancelled = 130
)

// FlagError is a usage error: an invalid flag, argument or configuration
// value. Main exits with ExitUsage on it.
type FlagError struct {
	err error
}

func FlagErrorf(format string, args ...interface{}) error {
	return &FlagError{fmt.Errorf(format, args...)}
}

// FlagErrorWrap marks err as a usage error. A nil err stays nil.
func FlagErrorWrap(err error) error {
	if err == nil {
		return nil
	}

	return &FlagError{err}
}

func (fe *FlagError) Error() string {
	return fe.err.Error()
}

func (fe *FlagError) Unwrap() error {
	return fe.err
}

var (
	// ErrSilent fails the command without printing anything.
	ErrSilent = errors.New("silent failure")

	// ErrCancel is returned when the user aborts a command.
	ErrCancel = errors.New("cancelled")
)

// IsUserCancellation reports whether err stems from the user aborting,
// either explicitly or with an interrupt signal.
func IsUserCancellation(err error) bool {
	return errors.Is(err, ErrCancel) || errors.Is(err, context.Canceled)
}

// ExitCode maps the error returned by a command to a process exit code.
func ExitCode(err error) int {
	var flagErr *FlagError

	switch {
	case err == nil:
		return ExitOK
	case IsUserCancellation(err):
		return ExitCancelled
	case errors.As(err, &flagErr):
		return ExitUsage
	default:
		return ExitFailure
	}
}
