package elasticx

import (
	_ "embed"

	"github.com/gridsearch/x/configx"
)

// ConfigSchema validates the `elastic` section of a configx provider.
//
//go:embed config.schema.json
var ConfigSchema []byte

const ConfigSchemaID = "https://gridsearch.dev/schemas/elasticx/config.schema.json"

type Config struct {
	// Addresses are `host:port` pairs, optionally prefixed by a scheme (`https://host:port`).
	Addresses   []string
	ClusterName string
	Username    string
	Password    string

	// Throttle defaults to DefaultThrottleConfig when left empty.
	Throttle ThrottleConfig
}

// ConfigFromProvider reads the `elastic` section of p.
func ConfigFromProvider(p *configx.Provider) Config {
	return Config{
		Addresses:   p.Strings("elastic.addresses"),
		ClusterName: p.String("elastic.cluster_name"),
		Username:    p.String("elastic.username"),
		Password:    p.String("elastic.password"),
		Throttle: ThrottleConfig{
			TimeThreshold: p.DurationF("elastic.throttle.time_threshold", DefaultThrottleTimeThreshold),
			OpsThreshold:  p.Int64F("elastic.throttle.ops_threshold", DefaultThrottleOpsThreshold),
			Factor:        p.Float64F("elastic.throttle.factor", DefaultThrottleFactor),
		},
	}
}

func (c Config) throttle() ThrottleConfig {
	if c.Throttle.isZero() {
		return DefaultThrottleConfig()
	}
	return c.Throttle
}
