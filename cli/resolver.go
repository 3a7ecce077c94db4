package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/blockcss/log"
)

// resolve returns a [kong.ConfigurationLoader] reading YAML configuration
// files, the format written by the init command:
//
//	log-level: debug
//	include:
//	  - ./templates
//	strict: true
//
// Nested mappings are joined with "-", so the file above may also be
// written as:
//
//	log:
//	  level: debug
//
// Keys may use underscores in place of hyphens. Command-line flags and
// environment variables override file values.
func resolve(ctx context.Context) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		var doc map[string]any

		if err := yaml.NewDecoder(r).DecodeContext(ctx, &doc); err != nil {
			if errors.Is(err, io.EOF) {
				return config{}, nil
			}

			log.WarnContext(ctx, "ignoring invalid configuration file",
				slog.Any("error", err))

			return config{}, nil
		}

		out := config{}
		out.flatten("", doc)

		return out, nil
	}
}

// config implements [kong.Resolver] over a flattened configuration file.
type config map[string]any

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (c config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	if v, ok := c[flag.Name]; ok {
		return v, nil
	}

	if v, ok := c[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return v, nil
	}

	return nil, nil
}

// flatten stores the leaves of doc under their "-"-joined key paths.
// Numbers become strings for kong to parse; sequence items likewise.
func (c config) flatten(prefix string, doc map[string]any) {
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "-" + k
		}

		switch v := v.(type) {
		case map[string]any:
			c.flatten(key, v)

		case []any:
			items := make([]any, len(v))
			for i, item := range v {
				items[i] = configScalar(item)
			}

			c[key] = items

		default:
			c[key] = configScalar(v)
		}
	}
}

func configScalar(v any) any {
	switch v := v.(type) {
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string, bool, nil:
		return v
	default:
		return fmt.Sprint(v)
	}
}
