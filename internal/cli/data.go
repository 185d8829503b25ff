package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/taskcoin/internal/ledger"
	"github.com/roach88/taskcoin/internal/model"
	"github.com/roach88/taskcoin/internal/validate"
)

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired tasks and stale completion marks now",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var report ledger.Report
			err := withLedger(cmd, rootOpts, "tick", func(l *ledger.Ledger) error {
				report = l.Tick()
				return nil
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(report, func(w io.Writer) error {
				return renderReport(w, report)
			})
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the stored state with a JSON snapshot",
		Long: `Replace the stored state with a JSON snapshot document.

The document is checked against the snapshot schema first; a rejected
document changes nothing. Keys missing from the document take their empty
defaults. Expired tasks are swept and one-time repairs run afterwards.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "read snapshot", err)
			}
			if err := validate.Snapshot(data); err != nil {
				return WrapExitError(ExitFailure, "import rejected", err)
			}

			var report ledger.Report
			err = withLedger(cmd, rootOpts, "import", func(l *ledger.Ledger) error {
				var err error
				report, err = l.Ingest(data)
				return err
			})
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Render(report, func(w io.Writer) error {
				fmt.Fprintln(w, "Snapshot imported.")
				return renderReport(w, report)
			})
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var as, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the full snapshot as JSON or YAML",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if as != "json" && as != "yaml" {
				return NewExitError(ExitCommandError, fmt.Sprintf("--as %q: must be json or yaml", as))
			}
			var snap model.Snapshot
			err := withLedger(cmd, rootOpts, "export", func(l *ledger.Ledger) error {
				snap = l.Snapshot()
				return nil
			})
			if err != nil {
				return err
			}

			data, err := encodeSnapshot(snap, as)
			if err != nil {
				return WrapExitError(ExitFailure, "encode snapshot", err)
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return WrapExitError(ExitCommandError, "write snapshot", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "json", "document format (json|yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// encodeSnapshot renders snap as an importable JSON document, or as YAML
// with the same keys.
func encodeSnapshot(snap model.Snapshot, as string) ([]byte, error) {
	if as == "yaml" {
		doc, err := model.ToDocument(snap)
		if err != nil {
			return nil, err
		}
		return yaml.Marshal(doc)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
