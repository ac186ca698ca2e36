package main

import (
	"context"
	"grievance/backend/internal/config"
	"grievance/backend/internal/grievance"
	"grievance/backend/internal/localization"
	"grievance/backend/internal/models"
	"grievance/backend/internal/notify"
	"grievance/backend/internal/otp"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/users"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// app holds what every command needs. It is filled in by the root PersistentPreRunE.
type app struct {
	store      *storage.Service
	grievances *grievance.Service
	accounts   *users.Service
}

// actor returns the admin on whose behalf CLI actions are recorded.
func (a *app) actor(ctx context.Context) (*models.User, error) {
	return a.store.FindFirstAdmin(ctx)
}

func (a *app) wait() {
	if a.grievances != nil {
		a.grievances.Wait()
	}
	if a.accounts != nil {
		a.accounts.Wait()
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Grievance cell maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.store != nil {
				return nil
			}
			_ = godotenv.Load()
			cfg := config.Load()

			db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
			if err != nil {
				return err
			}
			a.store = storage.NewStorageService(db)

			var dispatcher notify.Dispatcher = notify.Nop{}
			if cfg.SMTPHost != "" {
				loc, err := localization.Default()
				if err != nil {
					return err
				}
				dispatcher = notify.NewMailer(cfg, loc)
			}
			a.grievances = grievance.NewService(a.store, dispatcher, nil)
			a.accounts = users.NewService(a.store, otp.NewMemoryStore(), dispatcher, cfg.OTPTTL)
			return nil
		},
	}

	root.AddCommand(
		newSweepCmd(a),
		newOverdueCmd(a),
		newDeleteComplaintCmd(a),
		newEscalationsCmd(a),
		newSetRoleCmd(a),
	)
	return root
}

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	a.wait()
	if err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}
}
