package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/taskcoin/internal/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(newConfigShowCommand(rootOpts))
	cmd.AddCommand(newConfigPathCommand(rootOpts))
	return cmd
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with defaults filled in",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			backend, path := rootOpts.storeTarget(cfg)
			cfg.Store.Backend, cfg.Store.Path = string(backend), path
			return rootOpts.formatter(cmd).Render(cfg, func(w io.Writer) error {
				return cfg.Encode(w)
			})
		},
	}
}

func newConfigPathCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.ConfigPath
			if path == "" {
				path = config.DefaultPath()
			}
			return rootOpts.formatter(cmd).Render(map[string]string{"path": path}, func(w io.Writer) error {
				_, err := io.WriteString(w, path+"\n")
				return err
			})
		},
	}
}
