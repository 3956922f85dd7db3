// Package seed provisions demo data for local development.
package seed

import (
	"time"

	"github.com/bwmarrin/snowflake"
	contributiondomain "github.com/kanisahq/kanisa/internal/contribution/domain"
	pledgedomain "github.com/kanisahq/kanisa/internal/pledge/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const demoMemberNumber = "JM1023"

// EnsureDemoData inserts a demo member with two active pledges when none
// exists yet. Idempotent across restarts.
func EnsureDemoData(db *gorm.DB, genID *snowflake.Node, log *zap.Logger) error {
	var count int64
	if err := db.Raw(
		`SELECT COUNT(1) FROM members WHERE member_number = ?`, demoMemberNumber,
	).Scan(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	memberID := genID.Generate()

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO members (id, member_number, full_name, phone, email, residence, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			memberID, demoMemberNumber, "Jane Mwangi", "254700000000", "jane@example.com", "Nairobi", now, now,
		).Error; err != nil {
			return err
		}

		pledges := []struct {
			accountType string
			amount      string
		}{
			{contributiondomain.TypeTithe, "1000.00"},
			{contributiondomain.TypeDevelopment, "2000.00"},
		}
		for _, p := range pledges {
			if err := tx.Exec(
				`INSERT INTO pledges (id, member_id, account_type, pledge_amount, fulfilled_amount, remaining_amount,
				                      pledge_date, target_date, status, created_at, updated_at)
				 VALUES (?, ?, ?, ?, 0, ?, ?, NULL, ?, ?, ?)`,
				genID.Generate(), memberID, p.accountType, p.amount, p.amount,
				now, pledgedomain.StatusActive, now, now,
			).Error; err != nil {
				return err
			}
		}

		log.Named("seed").Info("demo data provisioned",
			zap.String("member_number", demoMemberNumber),
		)
		return nil
	})
}
