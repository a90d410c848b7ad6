package kv

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Backend types accepted by New.
const (
	TypeMemory = "memory"
	TypeFile   = "file"
	TypeRedis  = "redis"
	TypeSQLite = "sqlite"
)

// New creates a Store of the given type from a raw settings map.
func New(ctx context.Context, backendType string, settings map[string]any) (Store, error) {
	zlog.Debug().Msgf("kv: creating backend: type=%s settings=%+v", backendType, redactSettings(settings))

	switch backendType {
	case TypeMemory, "":
		return NewMemory(), nil

	case TypeFile:
		var cfg FileConfig
		if err := decodeSettings(settings, &cfg); err != nil {
			return nil, errors.Wrap(err, "invalid file backend settings")
		}
		return NewFile(afero.NewOsFs(), cfg.Dir)

	case TypeRedis:
		var cfg RedisConfig
		if err := decodeSettings(settings, &cfg); err != nil {
			return nil, errors.Wrap(err, "invalid redis backend settings")
		}
		return NewRedis(ctx, cfg)

	case TypeSQLite:
		var cfg SQLiteConfig
		if err := decodeSettings(settings, &cfg); err != nil {
			return nil, errors.Wrap(err, "invalid sqlite backend settings")
		}
		return NewSQLite(cfg.Path)

	default:
		return nil, errors.Newf("unsupported storage type: %s", backendType)
	}
}

// decodeSettings applies defaults to out, decodes settings over them and
// validates the result.
func decodeSettings(settings map[string]any, out any) error {
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

func redactSettings(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		if k == "password" {
			out[k] = "***"
			continue
		}
		out[k] = v
	}
	return out
}
