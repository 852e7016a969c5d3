package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hengadev/serx"
	"github.com/hengadev/serx/internal/config"
	"github.com/hengadev/serx/internal/monitoring"
)

const (
	fileFlag      = "file"
	directoryFlag = "directory"
	debugFlag     = "debug"
)

// New returns the root serx command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serx [sub-command]",
		Short: "Manage serx serializer definitions",
		Long: `serx works with the YAML files declaring serializers: which model each
  serializer converts, the fields it publishes and accepts, and the nested
  serializer bound to every relation field.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cmd.PersistentFlags().StringP(fileFlag, "f", defaultDefinitionsFile(),
		`Definitions file. Defaults to $`+serx.EnvDefinitions+`, then `+serx.DefaultDefinitionsFile+`.`)
	cmd.PersistentFlags().StringP(directoryFlag, "C", "", `Resolve a relative definitions file from this directory.`)
	cmd.PersistentFlags().Bool(debugFlag, false, `Write debug logs to stderr.`)

	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func defaultDefinitionsFile() string {
	if path := os.Getenv(serx.EnvDefinitions); path != "" {
		return path
	}
	return serx.DefaultDefinitionsFile
}

// definitionsPath returns the definitions file selected by the persistent flags.
func definitionsPath(cmd *cobra.Command) (string, error) {
	file, err := cmd.Flags().GetString(fileFlag)
	if err != nil {
		return "", err
	}
	dir, err := cmd.Flags().GetString(directoryFlag)
	if err != nil {
		return "", err
	}
	if dir == "" {
		return file, nil
	}
	return config.ResolvePath(dir, file), nil
}

// logger returns the debug logger when --debug is set, a silent one otherwise.
func logger(cmd *cobra.Command) *monitoring.StructuredLogger {
	if debug, _ := cmd.Flags().GetBool(debugFlag); debug {
		return monitoring.NewDevelopmentLogger("cli", cmd.ErrOrStderr())
	}
	return monitoring.NewStructuredLogger(monitoring.LoggerConfig{Level: monitoring.LevelError, Output: io.Discard})
}
