package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/healthcoresys/core/internal/infrastructure/crypto"
)

func newJWKSCmd(jwksPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwks",
		Short: "Published key set operations",
	}
	cmd.AddCommand(newJWKSValidateCmd(jwksPath))
	return cmd
}

func newJWKSValidateCmd(jwksPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a key set document against the publication rules",
		Long: "Reads the key set from the given file, or from the configured\n" +
			"jwt.jwks_path when no file is given, and reports every violation\n" +
			"rather than stopping at the first.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *jwksPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				app, err := buildContext("")
				if err != nil {
					return err
				}
				path = app.cfg.JWT.JWKSPath
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading key set: %w", err)
			}
			set, err := crypto.ParseKeySet(data)
			if err != nil {
				return fmt.Errorf("parsing key set: %w", err)
			}

			violations := crypto.ValidateKeySet(set)
			if len(violations) == 0 {
				fmt.Printf("%s: ok (%d keys)\n", path, len(set.Keys))
				return nil
			}
			for _, v := range violations {
				fmt.Printf("%s: %s\n", path, v)
			}
			return fmt.Errorf("%d violation(s)", len(violations))
		},
	}
}
