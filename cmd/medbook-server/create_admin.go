package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medbook/api/internal/config"
	"github.com/medbook/api/internal/domain/identity"
	"github.com/medbook/api/internal/platform/auth"
	"github.com/medbook/api/internal/platform/db"
	"github.com/medbook/api/internal/platform/metrics"
)

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the first admin account",
		Long: "Create an admin account, or with --promote turn an existing " +
			"patient or doctor account into an admin and reset its password.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in identity.AdminBootstrap
			in.Email, _ = cmd.Flags().GetString("email")
			in.Password, _ = cmd.Flags().GetString("password")
			in.Name, _ = cmd.Flags().GetString("name")
			in.Promote, _ = cmd.Flags().GetBool("promote")
			return runCreateAdmin(in)
		},
	}
	cmd.Flags().String("email", "", "Admin email address")
	cmd.Flags().String("password", "", "Admin password (at least 6 characters)")
	cmd.Flags().String("name", "Admin", "Display name")
	cmd.Flags().Bool("promote", false, "Promote an existing non-admin account with this email")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func runCreateAdmin(in identity.AdminBootstrap) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env, os.Stderr)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := identity.NewService(identity.NewUserRepoPG(pool),
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL), metrics.New(), logger)
	promoted, err := svc.BootstrapAdmin(ctx, in)
	if err != nil {
		return err
	}

	if promoted {
		fmt.Printf("Promoted %s to admin.\n", identity.NormalizeEmail(in.Email))
	} else {
		fmt.Printf("Admin user %s created.\n", identity.NormalizeEmail(in.Email))
	}
	return nil
}
