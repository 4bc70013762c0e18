// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"io"

	"github.com/knadh/koanf"
	"github.com/spf13/pflag"

	"github.com/gridsearch/x/loggerx"
)

type (
	OptionModifier func(p *Provider)
)

func WithConfigFiles(files ...string) OptionModifier {
	return func(p *Provider) {
		p.files = append(p.files, files...)
	}
}

// WithFlags loads the changed flags of the set; flag names are config keys, e.g. `elastic.addresses`.
func WithFlags(flags *pflag.FlagSet) OptionModifier {
	return func(p *Provider) {
		p.flags = flags
	}
}

func WithLogger(l *loggerx.Logger) OptionModifier {
	return func(p *Provider) {
		p.logger = l
	}
}

// WithEnvPrefix loads the environment variables starting with prefix. A double underscore
// separates key segments: GRIDINDEX_ELASTIC__CLUSTER_NAME sets `elastic.cluster_name`.
func WithEnvPrefix(prefix string) OptionModifier {
	return func(p *Provider) {
		p.envPrefix = prefix
	}
}

// WithSchemaResource makes a schema available to `$ref` under id.
func WithSchemaResource(id string, schema []byte) OptionModifier {
	return func(p *Provider) {
		p.schemaResources[id] = schema
	}
}

func SkipValidation() OptionModifier {
	return func(p *Provider) {
		p.skipValidation = true
	}
}

// DisableEnvLoading ignores the environment even when an env prefix is set.
func DisableEnvLoading() OptionModifier {
	return func(p *Provider) {
		p.disableEnvLoading = true
	}
}

// WithValue forces key to value over every other source.
func WithValue(key string, value interface{}) OptionModifier {
	return func(p *Provider) {
		p.forcedValues = append(p.forcedValues, tuple{Key: key, Value: value})
	}
}

func WithValues(values map[string]interface{}) OptionModifier {
	return func(p *Provider) {
		for key, value := range values {
			p.forcedValues = append(p.forcedValues, tuple{Key: key, Value: value})
		}
	}
}

// WithBaseValues sets values every other source overrides.
func WithBaseValues(values map[string]interface{}) OptionModifier {
	return func(p *Provider) {
		for key, value := range values {
			p.baseValues = append(p.baseValues, tuple{Key: key, Value: value})
		}
	}
}

// WithUserProviders loads extra koanf providers after flags and before forced values.
func WithUserProviders(providers ...koanf.Provider) OptionModifier {
	return func(p *Provider) {
		p.userProviders = providers
	}
}

func WithStandardValidationReporter(w io.Writer) OptionModifier {
	return func(p *Provider) {
		p.onValidationError = func(err error) {
			p.printHumanReadableValidationErrors(w, err)
		}
	}
}
