package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hengadev/serx"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a definitions file",
		Long: `Parse a definitions file and run the checks that need no model: version,
  field lists and bindings to serializers declared in the same file. Checks
  against the model declarations run when a program resolves its registry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := definitionsPath(cmd)
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			return validate(cmd, path, verbose)
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "List every serializer and its bindings")
	return cmd
}

func validate(cmd *cobra.Command, path string, verbose bool) error {
	out := cmd.OutOrStdout()
	log := logger(cmd).WithFields(map[string]any{"path": path})
	fmt.Fprintf(out, "Validating definitions at %s...\n", path)

	defs, err := serx.LoadDefinitions(path)
	if err != nil {
		log.WithFields(map[string]any{"error": err.Error()}).Debug("definitions rejected")
		return err
	}
	log.WithFields(map[string]any{"version": defs.Version, "serializers": len(defs.Serializers)}).Debug("definitions loaded")

	for _, name := range defs.Names() {
		def := defs.Serializers[name]
		log.WithFields(map[string]any{"serializer": name, "model": def.Model}).Debug("serializer checked")
		fmt.Fprintf(out, "  ✓ %s (model %s, %d published, %d updatable)\n",
			name, def.Model, len(def.PublishFields), len(def.UpdateFields))
		if !verbose {
			continue
		}
		for _, field := range def.PublishFields {
			if nested, ok := def.Related[field]; ok {
				fmt.Fprintf(out, "      %s -> %s\n", field, nested)
			}
		}
	}

	fmt.Fprintf(out, "\n✓ %d serializers valid\n", len(defs.Serializers))
	return nil
}
