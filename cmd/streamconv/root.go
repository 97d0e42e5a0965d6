package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/slac-epics/streamdevice/internal/config"
	"github.com/slac-epics/streamdevice/internal/convert"
	"github.com/slac-epics/streamdevice/internal/observability"
	"github.com/slac-epics/streamdevice/internal/reporter"
	"github.com/slac-epics/streamdevice/internal/stream"
)

const appName = "streamconv"

// app carries the state every subcommand shares once the root pre-run has
// loaded configuration.
type app struct {
	configFile    string
	fieldsFile    string
	floatOrder    string
	strictFraming bool

	cfg        serviceConfig
	logger     zerolog.Logger
	diag       *reporter.Diagnostics
	transcoder *stream.Transcoder
	fields     *stream.Table
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   appName,
		Short: "StreamDevice conversion toolkit",
		Long: `streamconv encodes and decodes StreamDevice fields with the
exponential (%m), raw float (%R) and SHDLC (%Z) converters, and serves the
same conversions over HTTP.`,
		Version:           "0.1.0",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.diag != nil {
				a.diag.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "service configuration file (TOML)")
	flags.StringVarP(&a.fieldsFile, "fields", "f", "", "field table file, overrides the config")
	flags.StringVar(&a.floatOrder, "float-order", "", "raw float byte order: big, little or native")
	flags.BoolVar(&a.strictFraming, "strict-framing", false, "reject SHDLC input that does not start with a delimiter")

	root.AddCommand(
		newPrintCmd(a),
		newScanCmd(a),
		newCodecsCmd(a),
		newFieldsCmd(a),
		newReplyCmd(),
		newFrameCmd(),
		newServeCmd(a),
		newConfigCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := defaultServiceConfig()
	if a.configFile != "" {
		loaded, err := loadServiceConfig(a.configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.fieldsFile != "" {
		cfg.FieldsPath = a.fieldsFile
	}
	if a.floatOrder != "" {
		order, err := parseFloatOrder(a.floatOrder)
		if err != nil {
			return err
		}
		cfg.Codecs.FloatOrder = order
	}
	if a.strictFraming {
		cfg.Codecs.StrictFraming = true
	}
	a.cfg = cfg
	a.logger = observability.InitLogger(appName, cfg.Log)

	opts := reporter.DefaultOptions()
	opts.Enabled = cfg.Reporter.Enabled
	opts.Debug = cfg.Reporter.Debug
	opts.Timestamps = cfg.Reporter.Timestamps
	opts.PollInterval = cfg.Reporter.PollInterval
	opts.Log = a.logger
	a.diag = reporter.New(cmd.ErrOrStderr(), opts)
	if cfg.Reporter.MessageTimeout > 0 {
		a.diag.SetMessageTimeout(cfg.Reporter.MessageTimeout)
	}

	registry, err := convert.NewDefaultRegistry(cfg.Codecs)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	a.transcoder = stream.New(registry, a.diag)

	a.fields = stream.NewTable()
	if cfg.FieldsPath != "" {
		table, err := config.LoadFieldTable(cfg.FieldsPath)
		if err != nil {
			return err
		}
		fields, err := a.transcoder.CompileTable(table.Definitions())
		if err != nil {
			return fmt.Errorf("compile field table %q: %w", table.Name, err)
		}
		a.fields = fields
		a.logger.Debug().Str("table", table.Name).Int("fields", fields.Len()).Msg("field table loaded")
	}
	return nil
}

// resolveField returns the named table field, or compiles format when name is
// empty.
func (a *app) resolveField(name, format string) (stream.Field, error) {
	if name != "" {
		return a.fields.Get(name)
	}
	return a.transcoder.Compile("arg", format)
}
