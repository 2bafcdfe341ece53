package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-gin-gorm-rbac/internal/app"
	"go-gin-gorm-rbac/internal/core/config"
	"go-gin-gorm-rbac/internal/core/database"
	"go-gin-gorm-rbac/internal/domain"
	"go-gin-gorm-rbac/internal/repo"
	"go-gin-gorm-rbac/internal/service"
)

type runtime struct {
	cfg   *config.Config
	log   *zap.Logger
	store *repo.Store
	close func()
}

// open loads config and connects. Migrations are left to the caller so that
// `migrate --rollback` sees the schema as it is.
func open(ctx context.Context, configPath string) (*runtime, error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	l, cleanup := app.NewLogger(cfg)
	noMigrate := *cfg
	noMigrate.DB.AutoMigrate = false
	db, err := app.OpenDB(ctx, &noMigrate, l)
	if err != nil {
		cleanup()
		return nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		cleanup()
	}
	return &runtime{cfg: cfg, log: l, store: repo.NewStore(db), close: closeDB}, nil
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "ctl",
		Short:         "Maintenance commands for the RBAC user service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")

	root.AddCommand(
		newMigrateCmd(&configPath),
		newSeedCmd(&configPath),
		newRoleCmd(&configPath),
		newHistoryCmd(&configPath),
	)
	return root
}

func newMigrateCmd(configPath *string) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or roll back one) schema migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			db := rt.store.DB()
			if rollback {
				if err := database.Rollback(cmd.Context(), db, rt.cfg.DB.Driver); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "rolled back one migration")
				return nil
			}
			if err := database.Migrate(cmd.Context(), db, rt.cfg.DB.Driver); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the latest migration (postgres only)")
	return cmd
}

func newSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the superadmin account from config if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := database.Migrate(cmd.Context(), rt.store.DB(), rt.cfg.DB.Driver); err != nil {
				return err
			}
			sa := rt.cfg.Superadmin
			u, created, err := service.EnsureSuperadmin(cmd.Context(), rt.store, rt.log, sa.Email, sa.Password, sa.FullName)
			if err != nil {
				return err
			}
			state := "exists"
			if created {
				state = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "superadmin %s: id=%d %s\n", state, u.ID, u.Email)
			return nil
		},
	}
}

func newRoleCmd(configPath *string) *cobra.Command {
	var actorID, userID int64
	var role, reason string
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Change a user's role on behalf of an actor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			rt, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			svc := service.NewUserService(rt.store, nil, rt.log)
			h, err := svc.ChangeRole(cmd.Context(), actorID, userID, r, reason)
			if err != nil {
				var pd *domain.PermissionDeniedError
				if errors.As(err, &pd) {
					return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, pd.Error())
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h.String())
			return nil
		},
	}
	cmd.Flags().Int64Var(&actorID, "actor", 0, "id of the acting user")
	cmd.Flags().Int64Var(&userID, "user", 0, "id of the user to change")
	cmd.Flags().StringVar(&role, "role", "", "new role: user, admin or superadmin")
	cmd.Flags().StringVar(&reason, "reason", "", "audit reason")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newHistoryCmd(configPath *string) *cobra.Command {
	var userID, actorID int64
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print role changes of a user (--user) or made by an actor (--actor)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (userID == 0) == (actorID == 0) {
				return errors.New("exactly one of --user or --actor is required")
			}
			rt, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			svc := service.NewUserService(rt.store, nil, rt.log)
			var hs []domain.UserRoleHistory
			if userID != 0 {
				hs, err = svc.RoleHistory(cmd.Context(), userID)
			} else {
				hs, err = svc.RoleChangesBy(cmd.Context(), actorID)
			}
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), hs)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "subject user id")
	cmd.Flags().Int64Var(&actorID, "actor", 0, "acting user id")
	return cmd
}

func printHistory(w io.Writer, hs []domain.UserRoleHistory) {
	if len(hs) == 0 {
		fmt.Fprintln(w, "no role changes")
		return
	}
	for i := range hs {
		h := &hs[i]
		by := "-"
		if h.ChangedByID != nil {
			by = fmt.Sprint(*h.ChangedByID)
		}
		reason := ""
		if h.Reason != nil {
			reason = *h.Reason
		}
		fmt.Fprintf(w, "%s\tuser=%d\tby=%s\t%s\t%s\n",
			h.ChangedAt.Format("2006-01-02T15:04:05Z07:00"), h.UserID, by, h.Description(), reason)
	}
}
