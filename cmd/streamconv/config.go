package main

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/slac-epics/streamdevice/internal/convert"
	"github.com/slac-epics/streamdevice/internal/logging"
	"github.com/slac-epics/streamdevice/internal/reporter"
)

type reporterConfig struct {
	Enabled        bool
	Debug          bool
	Timestamps     bool
	MessageTimeout time.Duration
	PollInterval   time.Duration
}

type serviceConfig struct {
	Name        string
	Addr        string
	CorsOrigins []string
	FieldsPath  string
	Log         logging.Config
	Reporter    reporterConfig
	Codecs      convert.Options
}

func defaultServiceConfig() serviceConfig {
	cfg := serviceConfig{
		Name: "streamconv",
		Addr: ":9200",
		Log:  logging.DefaultConfig(logging.ProfileRuntime),
		Reporter: reporterConfig{
			Enabled:      true,
			PollInterval: reporter.DefaultPollInterval,
		},
		Codecs: convert.DefaultOptions(),
	}
	logging.ApplyEnvOverrides(&cfg.Log)
	return cfg
}

type fileConfig struct {
	Name        string   `toml:"name"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	Fields      string   `toml:"fields"`

	Log struct {
		Level     string `toml:"level"`
		Timestamp bool   `toml:"timestamp"`
		NoColor   bool   `toml:"no_color"`
		File      string `toml:"file"`
		MaxSizeMB int    `toml:"max_size_mb"`
	} `toml:"log"`

	Reporter struct {
		Enabled        bool   `toml:"enabled"`
		Debug          bool   `toml:"debug"`
		Timestamps     bool   `toml:"timestamps"`
		MessageTimeout string `toml:"message_timeout"`
		PollInterval   string `toml:"poll_interval"`
	} `toml:"reporter"`

	Codecs struct {
		FloatOrder    string `toml:"float_order"`
		StrictFraming bool   `toml:"strict_framing"`
	} `toml:"codecs"`
}

// loadServiceConfig overlays the keys present in path onto the defaults. A
// relative fields path is resolved against the config file's directory.
func loadServiceConfig(path string) (serviceConfig, error) {
	cfg := defaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serviceConfig{}, fmt.Errorf("load streamconv config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return serviceConfig{}, fmt.Errorf("load streamconv config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Name = name
		}
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("fields") {
		fields := strings.TrimSpace(raw.Fields)
		if fields != "" && !filepath.IsAbs(fields) {
			fields = filepath.Join(filepath.Dir(path), fields)
		}
		cfg.FieldsPath = fields
	}

	if meta.IsDefined("log", "level") {
		lvl, ok := logging.ParseLevel(raw.Log.Level)
		if !ok {
			return serviceConfig{}, fmt.Errorf("parse log.level: unknown level %q", raw.Log.Level)
		}
		cfg.Log.Level = lvl
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Log.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File = strings.TrimSpace(raw.Log.File)
	}
	if meta.IsDefined("log", "max_size_mb") {
		cfg.Log.FileMaxSizeMB = raw.Log.MaxSizeMB
	}

	if meta.IsDefined("reporter", "enabled") {
		cfg.Reporter.Enabled = raw.Reporter.Enabled
	}
	if meta.IsDefined("reporter", "debug") {
		cfg.Reporter.Debug = raw.Reporter.Debug
	}
	if meta.IsDefined("reporter", "timestamps") {
		cfg.Reporter.Timestamps = raw.Reporter.Timestamps
	}
	if meta.IsDefined("reporter", "message_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Reporter.MessageTimeout))
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse reporter.message_timeout: %w", err)
		}
		cfg.Reporter.MessageTimeout = d
	}
	if meta.IsDefined("reporter", "poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Reporter.PollInterval))
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse reporter.poll_interval: %w", err)
		}
		if d <= 0 {
			return serviceConfig{}, fmt.Errorf("parse reporter.poll_interval: must be positive")
		}
		cfg.Reporter.PollInterval = d
	}

	if meta.IsDefined("codecs", "float_order") {
		order, err := parseFloatOrder(raw.Codecs.FloatOrder)
		if err != nil {
			return serviceConfig{}, err
		}
		cfg.Codecs.FloatOrder = order
	}
	if meta.IsDefined("codecs", "strict_framing") {
		cfg.Codecs.StrictFraming = raw.Codecs.StrictFraming
	}

	return cfg, nil
}

func parseFloatOrder(raw string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "big", "big-endian", "msb":
		return binary.BigEndian, nil
	case "little", "little-endian", "lsb":
		return binary.LittleEndian, nil
	case "native", "host":
		return binary.NativeEndian, nil
	default:
		return nil, fmt.Errorf("parse float order: unknown order %q", raw)
	}
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, item := range in {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
