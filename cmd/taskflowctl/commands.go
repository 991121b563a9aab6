package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/bootstrap"
	userstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/users"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/authutil"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// withDB connects, runs fn and disconnects.
func (g *globals) withDB(ctx context.Context, fn func(deps bootstrap.DBDeps, logger *zap.Logger) error) error {
	logger := g.logger()
	defer func() { _ = logger.Sync() }()

	appCfg := bootstrap.AppConfig{MongoURI: g.mongoURI, MongoDatabase: g.database}
	deps, err := bootstrap.ConnectDB(ctx, nil, appCfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.MongoClient.Disconnect(context.Background()) }()
	return fn(deps, logger)
}

func schemaCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create collections, validators and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withDB(cmd.Context(), func(deps bootstrap.DBDeps, logger *zap.Logger) error {
				if err := bootstrap.EnsureSchema(cmd.Context(), nil, bootstrap.AppConfig{}, deps, logger); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema ensured")
				return nil
			})
		},
	}
}

func adminCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	var name, email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account, or promote an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := authutil.ValidatePassword(password); err != nil {
				return err
			}
			if !authutil.IsValidEmail(email) {
				return fmt.Errorf("invalid email %q", email)
			}
			return g.withDB(cmd.Context(), func(deps bootstrap.DBDeps, logger *zap.Logger) error {
				return createAdmin(cmd, deps, name, email, password)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "Administrator", "Full name")
	create.Flags().StringVar(&email, "email", "", "Login email")
	create.Flags().StringVar(&password, "password", "", "Login password")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

func createAdmin(cmd *cobra.Command, deps bootstrap.DBDeps, name, email, password string) error {
	ctx := cmd.Context()
	users := userstore.New(deps.MongoDatabase)
	hash, err := authutil.HashPassword(password)
	if err != nil {
		return err
	}

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if _, err := users.Update(ctx, existing.ID, userstore.Update{
			FullName: existing.FullName,
			Email:    existing.Email,
			Role:     models.RoleAdmin,
			Phone:    existing.Phone,
			Address:  existing.Address,
			ZipCode:  existing.ZipCode,
			Location: existing.LocationRef,
		}, nil); err != nil {
			return err
		}
		if err := users.SetPassword(ctx, existing.ID, hash); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "promoted %s to admin\n", existing.Email)
		return nil
	case !errors.Is(err, userstore.ErrNotFound):
		return err
	}

	u, err := users.Create(ctx, models.User{
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID.Hex())
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskflowctl %s\n", bootstrap.Version)
		},
	}
}
