package config

import (
	"bytes"
	"io"
	"slices"

	"github.com/a8m/envsubst"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"go.viam.com/posebench/logging"
)

// Read reads a config from the given file. Environment variables in the file are expanded before
// decoding.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
// Fields missing from the input keep their Default values. The input is JSON5, so comments are
// allowed.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config")
	}
	var attributes map[string]interface{}
	if err := json5.Unmarshal(raw, &attributes); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config from json")
	}

	cfg := Default()
	// a config that names estimators replaces the default list rather than merging into it
	if _, ok := attributes["estimators"]; ok {
		cfg.Estimators = nil
	}
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Result:   cfg,
		Metadata: &md,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrapf(err, "failed to process config")
	}
	if len(md.Unused) > 0 {
		slices.Sort(md.Unused)
		logger.Warnw("ignoring unknown config fields", "path", originalPath, "fields", md.Unused)
	}
	cfg.ConfigFilePath = originalPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
