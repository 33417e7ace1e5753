// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"kmkit.sh/config"
	"kmkit.sh/iostreams"
	"kmkit.sh/log"
	"kmkit.sh/wdk/arch"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Output returns the destination of a rendered artifact: the file at path,
// or standard output when path is empty or `-`. Parent directories of path
// are created.
func Output(ctx context.Context, fs afero.Fs, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{iostreams.G(ctx).Out}, nil
	}

	if fs == nil {
		fs = afero.NewOsFs()
	}

	path = config.ExpandPath(path)

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create directory of %s", path)
	}

	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}

	log.G(ctx).WithField("file", path).Debug("writing output")

	return f, nil
}

// PrimaryArch returns the first configured architecture, which commands
// rendering a single artifact operate on.
func PrimaryArch(ctx context.Context, cfg *config.Config) (arch.Architecture, error) {
	archs, err := cfg.Architectures()
	if err != nil {
		return arch.Architecture{}, err
	}

	if len(archs) == 0 {
		return arch.Architecture{}, errors.New("no target architecture configured")
	}

	if len(archs) > 1 {
		log.G(ctx).Infof("rendering %s, the first of %d configured architectures", archs[0], len(archs))
	}

	return archs[0], nil
}
