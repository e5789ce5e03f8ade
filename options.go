package gojabridge

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/logiface"
)

// contextOptions holds configuration for a [Context].
type contextOptions struct {
	logger           *logiface.Logger[logiface.Event]
	sourceLoader     require.SourceLoader
	registry         *require.Registry
	fieldNameMapper  goja.FieldNameMapper
	strict           bool
	implicitCoercion bool
}

// Option configures a [Context]. Options are applied during construction.
type Option interface {
	applyOption(*contextOptions) error
}

// optionFunc implements [Option] via a closure.
type optionFunc struct {
	fn func(*contextOptions) error
}

func (o *optionFunc) applyOption(opts *contextOptions) error {
	return o.fn(opts)
}

// WithLogger configures structured logging of rooting and finalization
// diagnostics. A nil logger (the default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionFunc{fn: func(opts *contextOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithStrict sets the initial strict mode, see [Context.SetStrict].
func WithStrict(strict bool) Option {
	return &optionFunc{fn: func(opts *contextOptions) error {
		opts.strict = strict
		return nil
	}}
}

// WithImplicitCoercion enables the engine's implicit number and boolean
// coercion for [Value.ToNumber] and [Value.ToBoolean]. Without it, those
// conversions only succeed when the value already has the matching tag.
func WithImplicitCoercion(enabled bool) Option {
	return &optionFunc{fn: func(opts *contextOptions) error {
		opts.implicitCoercion = enabled
		return nil
	}}
}

// WithSourceLoader configures how [Context.Execute] reads files. If not set,
// [require.DefaultSourceLoader] is used.
func WithSourceLoader(loader require.SourceLoader) Option {
	return &optionFunc{fn: func(opts *contextOptions) error {
		opts.sourceLoader = loader
		return nil
	}}
}

// WithRequireRegistry enables require() in the runtime, using the given
// registry. Native modules (see [Require]) should be registered before
// [New] is called.
func WithRequireRegistry(registry *require.Registry) Option {
	return &optionFunc{fn: func(opts *contextOptions) error {
		opts.registry = registry
		return nil
	}}
}

// WithFieldNameMapper configures the mapper used by [Context.ToValue] when
// exposing Go structs.
func WithFieldNameMapper(mapper goja.FieldNameMapper) Option {
	return &optionFunc{fn: func(opts *contextOptions) error {
		opts.fieldNameMapper = mapper
		return nil
	}}
}

// resolveOptions applies the given options to a default [contextOptions].
func resolveOptions(opts []Option) (*contextOptions, error) {
	cfg := &contextOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
