package main

import (
	"fmt"
	"os/user"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthcoresys/core/internal/domain/models"
	"github.com/healthcoresys/core/pkg/constants"
)

func newKeyCmd(jwksPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Signing key lifecycle operations",
	}
	cmd.AddCommand(newKeyRotateCmd(jwksPath))
	cmd.AddCommand(newKeyPruneCmd(jwksPath))
	return cmd
}

func newKeyRotateCmd(jwksPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Generate a new signing key and append its public half to the key set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildContext(*jwksPath)
			if err != nil {
				return err
			}

			result, err := app.keys.Rotate(cmd.Context(), operatorName())
			if err != nil {
				return err
			}

			fmt.Printf("rotated signing key\n")
			fmt.Printf("  kid:       %s\n", result.KID)
			fmt.Printf("  storage:   %s\n", result.Storage)
			fmt.Printf("  key count: %d\n", len(result.KeySet.Keys))

			if result.Storage == models.StorageInline {
				// The private half was not persisted anywhere; hand it to the
				// operator exactly once.
				fmt.Printf("\ninstall the new key in the broker's environment:\n\n")
				fmt.Printf("  HC_BROKER_JWT_SIGNING_KID=%s\n", result.KID)
				fmt.Printf("  HC_BROKER_JWT_INLINE_PRIVATE_PEM=%q\n", result.PrivatePEM)
			} else {
				fmt.Printf("  secret ref: %s\n", result.StorageRef)
				fmt.Printf("\nset HC_BROKER_JWT_SIGNING_KID=%s and restart the broker\n", result.KID)
			}
			return nil
		},
	}
}

func newKeyPruneCmd(jwksPath *string) *cobra.Command {
	var (
		kid   string
		grace time.Duration
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove a superseded key from the published key set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildContext(*jwksPath)
			if err != nil {
				return err
			}
			if err := app.keys.Prune(cmd.Context(), operatorName(), kid, grace); err != nil {
				return err
			}
			fmt.Printf("pruned key %s\n", kid)
			return nil
		},
	}
	cmd.Flags().StringVar(&kid, "kid", "", "key id to remove")
	cmd.Flags().DurationVar(&grace, "grace", constants.AccessTokenMaxTTL, "minimum age since supersession before removal")
	_ = cmd.MarkFlagRequired("kid")
	return cmd
}

func operatorName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "operator"
}
