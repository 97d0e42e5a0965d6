package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/slac-epics/streamdevice/internal/buffer"
	"github.com/slac-epics/streamdevice/internal/protocol/shdlc"
	"github.com/slac-epics/streamdevice/internal/server"
	"github.com/slac-epics/streamdevice/internal/stream"
)

var header = color.New(color.FgYellow, color.Bold)

// fieldArgs checks the positional arguments of a command that takes a
// format before its operands unless --field names a table entry.
func fieldArgs(field *string, operands int, variadic bool) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		want := operands
		if *field == "" {
			want++
		}
		if len(args) == want || (variadic && len(args) > want) {
			return nil
		}
		if *field == "" {
			return fmt.Errorf("expected FORMAT and %d operand(s), got %d argument(s)", operands, len(args))
		}
		return fmt.Errorf("expected %d operand(s) with --field, got %d argument(s)", operands, len(args))
	}
}

func newPrintCmd(a *app) *cobra.Command {
	var field string
	var raw bool
	cmd := &cobra.Command{
		Use:   "print [FORMAT] VALUE",
		Short: "Encode a value and show the output bytes",
		Example: `  streamconv print %+.5m -- -0.00123
  streamconv print '%3.2Z' 0x1234
  streamconv -c streamconv.toml print --field temperature 21.5`,
		Args: fieldArgs(&field, 1, false),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := ""
			if field == "" {
				format, args = args[0], args[1:]
			}
			f, err := a.resolveField(field, format)
			if err != nil {
				return err
			}
			v, err := stream.ParseValue(f.ValueKind(), args[0])
			if err != nil {
				return err
			}
			out := buffer.New()
			if err := a.transcoder.Print(out, f, v); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if raw {
				_, err := w.Write(out.Bytes())
				return err
			}
			fmt.Fprintf(w, "hex:    %s\n", strings.ToUpper(hex.EncodeToString(out.Bytes())))
			fmt.Fprintf(w, "text:   %s\n", buffer.Expand(out.Bytes()))
			fmt.Fprintf(w, "length: %d\n", out.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "use a field from the loaded table instead of FORMAT")
	cmd.Flags().BoolVar(&raw, "raw", false, "write the encoded bytes unmodified")
	return cmd
}

func newScanCmd(a *app) *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "scan [FORMAT] HEX...",
		Short: "Decode captured bytes given as hex",
		Example: `  streamconv scan %m 2B3030303131 2D3031
  streamconv scan '%+3.2Z' 7E:00:03:00:02:FF:FE:FD:7E`,
		Args: fieldArgs(&field, 1, true),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := ""
			if field == "" {
				format, args = args[0], args[1:]
			}
			f, err := a.resolveField(field, format)
			if err != nil {
				return err
			}
			in, err := server.DecodeHex(strings.Join(args, ""))
			if err != nil {
				return err
			}
			n, v, err := a.transcoder.Scan(in, f)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "consumed: %d of %d\n", n, len(in))
			fmt.Fprintf(w, "kind:     %s\n", v.Kind)
			fmt.Fprintf(w, "value:    %s\n", v.Text())
			return nil
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "use a field from the loaded table instead of FORMAT")
	return cmd
}

func newCodecsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "codecs",
		Short: "List the registered conversion characters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			header.Fprintln(w, "CODE  NAME")
			for _, code := range a.transcoder.Registry().Codes() {
				fmt.Fprintf(w, "%%%c    %s\n", code, server.CodecName(code))
			}
			return nil
		},
	}
}

func newFieldsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the compiled field table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if a.fields.Len() == 0 {
				fmt.Fprintln(w, "no field table loaded")
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			header.Fprintln(tw, "NAME\tFORMAT\tKIND")
			for _, name := range a.fields.Names() {
				f, err := a.fields.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, f.Format, f.Kind)
			}
			return tw.Flush()
		},
	}
}

// newReplyCmd builds device response frames so scan input can be produced
// without hardware.
func newReplyCmd() *cobra.Command {
	var addr, state string
	cmd := &cobra.Command{
		Use:     "reply CMD [DATA-HEX]",
		Short:   "Build an SHDLC response frame",
		Example: `  streamconv reply 0x03 1234`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdByte, err := parseByte("command", args[0])
			if err != nil {
				return err
			}
			addrByte, err := parseByte("address", addr)
			if err != nil {
				return err
			}
			stateByte, err := parseByte("state", state)
			if err != nil {
				return err
			}
			var data []byte
			if len(args) == 2 {
				if data, err = server.DecodeHex(args[1]); err != nil {
					return err
				}
			}
			frame, err := shdlc.AppendResponse(nil, addrByte, cmdByte, stateByte, data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.ToUpper(hex.EncodeToString(frame)))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "0", "device address")
	cmd.Flags().StringVar(&state, "state", "0", "device state byte")
	return cmd
}

func newFrameCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "frame HEX...",
		Short:   "Decode an SHDLC response frame",
		Example: `  streamconv frame 7E000300021234B47E`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := server.DecodeHex(strings.Join(args, ""))
			if err != nil {
				return err
			}
			resp, n, err := shdlc.DecodeResponse(in)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "addr:     0x%02X\n", resp.Addr)
			fmt.Fprintf(w, "cmd:      0x%02X\n", resp.Cmd)
			fmt.Fprintf(w, "state:    0x%02X\n", resp.State)
			fmt.Fprintf(w, "data:     %s\n", strings.ToUpper(hex.EncodeToString(resp.Data)))
			fmt.Fprintf(w, "consumed: %d of %d\n", n, len(in))
			return nil
		},
	}
}

func parseByte(what, raw string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", what, raw, err)
	}
	return byte(v), nil
}
