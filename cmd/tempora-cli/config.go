package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tempora-db/tempora/pkg/pool"
	"github.com/tempora-db/tempora/pkg/span"
	"github.com/tempora-db/tempora/pkg/terrors"
)

type config struct {
	TimeZone    string      `yaml:"timezone"`
	DefaultSRID int32       `yaml:"default_srid"`
	Pool        pool.Config `yaml:"pool"`
}

func defaultCfg() *config {
	return &config{
		TimeZone: "UTC",
		Pool: pool.Config{
			MaxWorkers: 4,
			QueueDepth: 256,
		},
	}
}

func loadConfig(path string) (*config, error) {
	cfg := defaultCfg()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}
	return cfg, nil
}

func (c *config) location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown timezone %q", c.TimeZone)
	}
	return loc, nil
}

// baseTypeByName resolves the user-facing base-type names.
func baseTypeByName(name string) (span.BaseType, error) {
	for _, bt := range []span.BaseType{
		span.TypeBool, span.TypeInt32, span.TypeInt64, span.TypeFloat64,
		span.TypeDate, span.TypeTimestampTZ, span.TypeText,
		span.TypeGeom2D, span.TypeGeom3D, span.TypeGeog2D, span.TypeGeog3D,
	} {
		if bt.String() == name {
			return bt, nil
		}
	}
	return 0, terrors.New(terrors.InvalidInput, "unknown base type %q", name)
}
