// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package pipeline turns one configuration into the three artifacts a driver
// build consumes: the kit path mapping, the binding request and the linker
// profile.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"kmkit.sh/config"
	"kmkit.sh/log"
	"kmkit.sh/wdk/arch"
	"kmkit.sh/wdk/bindgen"
	"kmkit.sh/wdk/env"
	"kmkit.sh/wdk/kit"
	"kmkit.sh/wdk/linker"
)

// Result holds the artifacts of one architecture.
type Result struct {
	Arch    arch.Architecture
	Mapping *env.Mapping
	Request *bindgen.Request
	Profile *linker.Profile
}

type pipeline struct {
	fs afero.Fs
}

// Option configures Run and RunAll.
type Option func(*pipeline) error

// WithFs sets the filesystem holding the allowlist and dotenv files, the host
// filesystem by default or when fs is nil.
func WithFs(fs afero.Fs) Option {
	return func(p *pipeline) error {
		if fs != nil {
			p.fs = fs
		}
		return nil
	}
}

func newPipeline(opts ...Option) (*pipeline, error) {
	p := &pipeline{fs: afero.NewOsFs()}

	for _, o := range opts {
		if err := o(p); err != nil {
			return nil, fmt.Errorf("could not apply pipeline option: %w", err)
		}
	}

	return p, nil
}

// Run resolves the kit paths of cfg for architecture a, then emits the
// binding request and composes the linker profile from the mapping.
func Run(ctx context.Context, cfg *config.Config, a arch.Architecture, opts ...Option) (*Result, error) {
	p, err := newPipeline(opts...)
	if err != nil {
		return nil, err
	}

	return p.run(ctx, cfg, a)
}

// RunAll runs one pipeline per configured architecture concurrently. The
// results follow the configured order; the first failure cancels the
// pipelines which have not started yet.
func RunAll(ctx context.Context, cfg *config.Config, opts ...Option) ([]*Result, error) {
	p, err := newPipeline(opts...)
	if err != nil {
		return nil, err
	}

	archs, err := cfg.Architectures()
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(archs))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, a := range archs {
		i, a := i, a
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			res, err := p.run(egCtx, cfg, a)
			if err != nil {
				return fmt.Errorf("%s: %w", a, err)
			}

			results[i] = res
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (p *pipeline) run(ctx context.Context, cfg *config.Config, a arch.Architecture) (*Result, error) {
	ctx = log.WithStage(ctx, a.Name())

	m, err := p.resolve(ctx, cfg, a)
	if err != nil {
		return nil, err
	}

	req, err := p.request(ctx, cfg, a, m)
	if err != nil {
		return nil, err
	}

	profile, err := p.profile(ctx, cfg, a, m)
	if err != nil {
		return nil, err
	}

	return &Result{
		Arch:    a,
		Mapping: m,
		Request: req,
		Profile: profile,
	}, nil
}

func (p *pipeline) resolve(ctx context.Context, cfg *config.Config, a arch.Architecture) (*env.Mapping, error) {
	layout := cfg.Layout(a)

	roots, err := layout.Roots(cfg.WDK.Version, cfg.WDK.Root)
	if err != nil {
		return nil, err
	}

	templates, err := layout.Templates()
	if err != nil {
		return nil, err
	}

	r, err := env.NewResolver(
		env.WithNamespace(layout.Namespace),
		env.WithRoots(roots...),
		env.WithTemplates(templates...),
		env.WithOverrides(cfg.WDK.Variables...),
	)
	if err != nil {
		return nil, err
	}

	return r.Resolve(ctx)
}

func (p *pipeline) request(ctx context.Context, cfg *config.Config, a arch.Architecture, m *env.Mapping) (*bindgen.Request, error) {
	ctx = log.WithStage(ctx, "bindgen")

	ceiling, err := kit.ParseCeiling(cfg.Bindgen.Ceiling)
	if err != nil {
		return nil, err
	}

	includeDirs, err := cfg.Layout(a).IncludeDirs(m)
	if err != nil {
		return nil, err
	}

	opts := []bindgen.Option{
		bindgen.WithArchitecture(a),
		bindgen.WithVersionCeiling(ceiling),
		bindgen.WithCeilingSymbols(cfg.Bindgen.NTDDI, cfg.Bindgen.WinNT),
		bindgen.WithMacros(cfg.Bindgen.Macros...),
		bindgen.WithIncludeDirs(includeDirs...),
	}

	if len(cfg.Bindgen.Headers) > 0 {
		headers := make([]bindgen.Header, len(cfg.Bindgen.Headers))
		for i, h := range cfg.Bindgen.Headers {
			headers[i] = bindgen.Header(h)
		}
		opts = append(opts, bindgen.WithHeaders(headers...))
	}

	if cfg.Bindgen.Allowlist != "" {
		path := config.ExpandPath(cfg.Bindgen.Allowlist)

		allowlist, err := bindgen.LoadAllowlist(p.fs, path)
		if err != nil {
			return nil, err
		}

		if allowlist.Empty() {
			log.G(ctx).
				WithField("allowlist", path).
				Warn("allowlist names no function, type or variable, bindings cover every declaration")
		}

		opts = append(opts, bindgen.WithAllowlist(allowlist))
	}

	spec, err := bindgen.New(opts...)
	if err != nil {
		return nil, err
	}

	if spec.Diverges() {
		log.G(ctx).
			WithField("NTDDI_VERSION", spec.NTDDIVersion()).
			WithField("_WIN32_WINNT", spec.WinNTVersion()).
			Warnf("ceiling symbols no longer express the %s release", spec.Ceiling().Name)
	}

	req, err := spec.Request()
	if err != nil {
		return nil, err
	}

	log.G(ctx).
		WithField("macros", len(req.Macros)).
		WithField("headers", len(req.Headers)).
		Debug("emitted binding request")

	return req, nil
}

func (p *pipeline) profile(ctx context.Context, cfg *config.Config, a arch.Architecture, m *env.Mapping) (*linker.Profile, error) {
	ctx = log.WithStage(ctx, "link")

	opts := []linker.Option{
		linker.WithNamespace(cfg.WDK.Namespace),
		linker.WithArchitecture(a),
	}

	if len(cfg.Link.Libraries) > 0 {
		opts = append(opts, linker.WithLibraries(cfg.Link.Libraries...))
	}

	if cfg.Link.ExtraArgs != "" {
		opts = append(opts, linker.WithExtraArgs(cfg.Link.ExtraArgs))
	}

	if cfg.WDK.EnvFile != "" {
		envFile := filepath.Clean(cfg.WDK.EnvFile)
		if ok, _ := afero.Exists(p.fs, envFile); ok {
			opts = append(opts, linker.WithWatchedFiles(envFile))
		}
	}

	profile, err := linker.Compose(m, opts...)
	if err != nil {
		return nil, err
	}

	log.G(ctx).
		WithField("directives", len(profile.Directives())).
		Debug("composed linker profile")

	return profile, nil
}
