package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/slac-epics/streamdevice/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate and validate configuration files",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var kind, out string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = kind + ".toml"
			}
			if err := config.WriteTemplate(out, kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s template to %s\n", kind, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "service", "template kind: "+strings.Join(config.TemplateKinds(), ", "))
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default KIND.toml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a field table file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := config.LoadFieldTable(args[0])
			if err != nil {
				return fmt.Errorf("INVALID: %w", err)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "VALID: table %q, %d field(s)\n", table.Name, len(table.Fields))
			return nil
		},
	}
}
