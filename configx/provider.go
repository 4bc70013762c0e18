package configx

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gridsearch/x/loggerx"
)

// Delimiter separates the segments of a config key.
const Delimiter = "."

type tuple struct {
	Key   string
	Value interface{}
}

// Provider holds a validated configuration merged from, in increasing precedence:
// base values, config files, environment variables, flags, user providers and forced values.
type Provider struct {
	k *koanf.Koanf

	schema          []byte
	schemaResources map[string][]byte

	files             []string
	flags             *pflag.FlagSet
	envPrefix         string
	logger            *loggerx.Logger
	skipValidation    bool
	disableEnvLoading bool
	forcedValues      []tuple
	baseValues        []tuple
	userProviders     []koanf.Provider
	onValidationError func(err error)
}

// New loads the configuration and validates it against schema, unless SkipValidation is set.
func New(ctx context.Context, schema []byte, modifiers ...OptionModifier) (*Provider, error) {
	p := &Provider{
		schema:            schema,
		schemaResources:   map[string][]byte{},
		onValidationError: func(error) {},
	}
	for _, m := range modifiers {
		m(p)
	}
	if p.logger == nil {
		p.logger = loggerx.New()
	}

	k, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.validate(ctx, k); err != nil {
		return nil, err
	}

	p.k = k
	return p, nil
}

func (p *Provider) load(ctx context.Context) (*koanf.Koanf, error) {
	k := koanf.New(Delimiter)

	if len(p.baseValues) > 0 {
		base := make(map[string]interface{}, len(p.baseValues))
		for _, t := range p.baseValues {
			base[t.Key] = t.Value
		}
		if err := k.Load(confmap.Provider(base, Delimiter), nil); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	for _, f := range p.files {
		parser, err := parserFor(f)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(f), parser); err != nil {
			return nil, errors.Wrapf(err, "unable to load config file %s", f)
		}
		p.logger.Debug(ctx, "config file loaded", attribute.String("file", f))
	}

	if !p.disableEnvLoading && p.envPrefix != "" {
		if err := k.Load(env.ProviderWithValue(p.envPrefix, Delimiter, p.envKeyValue), nil); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if p.flags != nil {
		if err := k.Load(posflag.Provider(p.flags, Delimiter, k), nil); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	for _, up := range p.userProviders {
		if err := k.Load(up, nil); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if len(p.forcedValues) == 0 {
		return k, nil
	}

	forced := []byte(`{}`)
	for _, t := range p.forcedValues {
		var err error
		if forced, err = sjson.SetBytes(forced, escapePath(t.Key), t.Value); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	var src map[string]interface{}
	if err := json.Unmarshal(forced, &src); err != nil {
		return nil, errors.WithStack(err)
	}

	dst := k.Raw()
	if err := MergeAllTypes(src, dst); err != nil {
		return nil, err
	}

	merged := koanf.New(Delimiter)
	if err := merged.Load(confmap.Provider(dst, ""), nil); err != nil {
		return nil, errors.WithStack(err)
	}
	return merged, nil
}

// escapePath keeps the key segments but escapes the characters sjson would interpret.
func escapePath(key string) string {
	r := strings.NewReplacer("*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	return r.Replace(key)
}

// envKeyValue maps PREFIX_A__B_C=v to `a.b_c`. Values that are valid JSON scalars or
// arrays are decoded, anything else is kept as a string.
func (p *Provider) envKeyValue(key, value string) (string, interface{}) {
	key = strings.TrimPrefix(key, p.envPrefix)
	key = strings.ReplaceAll(strings.ToLower(key), "__", Delimiter)

	if gjson.Valid(value) {
		return key, gjson.Parse(value).Value()
	}
	return key, value
}

func (p *Provider) validate(ctx context.Context, k *koanf.Koanf) error {
	if p.skipValidation || len(p.schema) == 0 {
		return nil
	}

	s, err := compileSchema(ctx, p.schema, p.schemaResources)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(k.Raw())
	if err != nil {
		return errors.WithStack(err)
	}

	if err := s.Validate(bytes.NewReader(raw)); err != nil {
		p.onValidationError(err)
		return errors.WithStack(err)
	}
	return nil
}

func (p *Provider) Get(key string) interface{} {
	return p.k.Get(key)
}

func (p *Provider) Exists(key string) bool {
	return p.k.Exists(key)
}

// All returns the whole configuration as nested maps.
func (p *Provider) All() map[string]interface{} {
	return p.k.Raw()
}

func (p *Provider) String(key string) string {
	return cast.ToString(p.k.Get(key))
}

func (p *Provider) StringF(key, fallback string) string {
	if !p.k.Exists(key) {
		return fallback
	}
	return p.String(key)
}

// Strings returns a list value. A plain string is split on commas.
func (p *Provider) Strings(key string) []string {
	switch v := p.k.Get(key).(type) {
	case nil:
		return nil
	case string:
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return cast.ToStringSlice(v)
	}
}

func (p *Provider) BoolF(key string, fallback bool) bool {
	v, err := cast.ToBoolE(p.k.Get(key))
	if !p.k.Exists(key) || err != nil {
		return fallback
	}
	return v
}

func (p *Provider) Int64F(key string, fallback int64) int64 {
	v, err := cast.ToInt64E(p.k.Get(key))
	if !p.k.Exists(key) || err != nil {
		return fallback
	}
	return v
}

func (p *Provider) Float64F(key string, fallback float64) float64 {
	v, err := cast.ToFloat64E(p.k.Get(key))
	if !p.k.Exists(key) || err != nil {
		return fallback
	}
	return v
}

// DurationF parses strings such as "2s"; bare numbers are nanoseconds.
func (p *Provider) DurationF(key string, fallback time.Duration) time.Duration {
	v, err := cast.ToDurationE(p.k.Get(key))
	if !p.k.Exists(key) || err != nil {
		return fallback
	}
	return v
}
