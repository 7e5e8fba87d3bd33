package accounts

import (
	"fmt"

	"github.com/EmpoweredVote/EV-Accounts/internal/db"
	"gorm.io/gorm"
)

// Init creates the app_auth schema and migrates the account tables.
func Init(d *gorm.DB) error {
	if err := db.EnsureSchema(d, "app_auth"); err != nil {
		return fmt.Errorf("ensure schema app_auth: %w", err)
	}

	if err := d.AutoMigrate(&Account{}, &ConfirmationCode{}, &SessionToken{}); err != nil {
		return fmt.Errorf("auto-migrate account tables: %w", err)
	}
	return nil
}
