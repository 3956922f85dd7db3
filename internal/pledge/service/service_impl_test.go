package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	pledgedomain "github.com/kanisahq/kanisa/internal/pledge/domain"
	pledgerepo "github.com/kanisahq/kanisa/internal/pledge/repository"
	pledgeservice "github.com/kanisahq/kanisa/internal/pledge/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := `CREATE TABLE pledges (
		id BIGINT PRIMARY KEY,
		member_id BIGINT NOT NULL,
		account_type TEXT NOT NULL,
		pledge_amount DECIMAL(18,2) NOT NULL,
		fulfilled_amount DECIMAL(18,2) NOT NULL DEFAULT 0,
		remaining_amount DECIMAL(18,2) NOT NULL DEFAULT 0,
		pledge_date DATETIME NOT NULL,
		target_date DATETIME,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("schema exec failed: %v", err)
	}

	return db
}

func newService(t *testing.T, db *gorm.DB, nodeID int64) (pledgedomain.Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	svc := pledgeservice.New(pledgeservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  pledgerepo.Provide(),
	})
	return svc, node
}

func seedPledge(t *testing.T, db *gorm.DB, id, memberID snowflake.ID, accountType, amount, remaining string, pledgeDate time.Time) {
	t.Helper()

	now := time.Now().UTC()
	fulfilled := decimal.RequireFromString(amount).Sub(decimal.RequireFromString(remaining))
	err := db.Exec(
		`INSERT INTO pledges (id, member_id, account_type, pledge_amount, fulfilled_amount, remaining_amount,
		                      pledge_date, target_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL, 'active', ?, ?)`,
		id, memberID, accountType, amount, fulfilled, remaining, pledgeDate, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed pledge: %v", err)
	}
}

type pledgeRow struct {
	PledgeAmount    decimal.Decimal
	FulfilledAmount decimal.Decimal
	RemainingAmount decimal.Decimal
	Status          string
}

func loadPledge(t *testing.T, db *gorm.DB, id snowflake.ID) pledgeRow {
	t.Helper()

	var row pledgeRow
	err := db.Raw(
		`SELECT pledge_amount, fulfilled_amount, remaining_amount, status FROM pledges WHERE id = ?`, id,
	).Scan(&row).Error
	if err != nil {
		t.Fatalf("load pledge: %v", err)
	}
	return row
}

func assertInvariant(t *testing.T, row pledgeRow) {
	t.Helper()

	if !row.FulfilledAmount.Add(row.RemainingAmount).Equal(row.PledgeAmount) {
		t.Fatalf("invariant broken: fulfilled %s + remaining %s != pledge %s",
			row.FulfilledAmount, row.RemainingAmount, row.PledgeAmount)
	}
	if row.RemainingAmount.IsNegative() {
		t.Fatalf("negative remaining amount %s", row.RemainingAmount)
	}
}

func TestApplyContributionFIFO(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newService(t, db, 30)

	memberID := node.Generate()
	oldPledge := node.Generate()
	newPledge := node.Generate()
	now := time.Now().UTC()
	seedPledge(t, db, oldPledge, memberID, "Tithe", "400.00", "400.00", now.AddDate(0, -2, 0))
	seedPledge(t, db, newPledge, memberID, "Tithe", "600.00", "600.00", now.AddDate(0, -1, 0))

	if err := svc.ApplyContribution(ctx, db, memberID, "Tithe", decimal.RequireFromString("500")); err != nil {
		t.Fatalf("apply contribution: %v", err)
	}

	oldest := loadPledge(t, db, oldPledge)
	assertInvariant(t, oldest)
	if !oldest.RemainingAmount.IsZero() {
		t.Fatalf("expected oldest pledge exhausted, remaining %s", oldest.RemainingAmount)
	}
	if oldest.Status != pledgedomain.StatusFulfilled {
		t.Fatalf("expected oldest pledge fulfilled, got %s", oldest.Status)
	}

	newest := loadPledge(t, db, newPledge)
	assertInvariant(t, newest)
	if !newest.RemainingAmount.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("expected newest remaining 500, got %s", newest.RemainingAmount)
	}
	if newest.Status != pledgedomain.StatusActive {
		t.Fatalf("expected newest pledge active, got %s", newest.Status)
	}
}

func TestApplyContributionOverDecrementClampsToZero(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newService(t, db, 31)

	memberID := node.Generate()
	first := node.Generate()
	second := node.Generate()
	now := time.Now().UTC()
	seedPledge(t, db, first, memberID, "Development", "300.00", "300.00", now.AddDate(0, -3, 0))
	seedPledge(t, db, second, memberID, "Development", "200.00", "200.00", now.AddDate(0, -2, 0))

	if err := svc.ApplyContribution(ctx, db, memberID, "Development", decimal.RequireFromString("1000")); err != nil {
		t.Fatalf("apply contribution: %v", err)
	}

	for _, id := range []snowflake.ID{first, second} {
		row := loadPledge(t, db, id)
		assertInvariant(t, row)
		if !row.RemainingAmount.IsZero() {
			t.Fatalf("expected remaining zero, got %s", row.RemainingAmount)
		}
		if row.Status != pledgedomain.StatusFulfilled {
			t.Fatalf("expected fulfilled, got %s", row.Status)
		}
	}
}

func TestApplyContributionIgnoresOtherCategories(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newService(t, db, 32)

	memberID := node.Generate()
	titheID := node.Generate()
	seedPledge(t, db, titheID, memberID, "Tithe", "500.00", "500.00", time.Now().UTC())

	if err := svc.ApplyContribution(ctx, db, memberID, "Offering", decimal.RequireFromString("200")); err != nil {
		t.Fatalf("apply contribution: %v", err)
	}

	row := loadPledge(t, db, titheID)
	assertInvariant(t, row)
	if !row.RemainingAmount.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("expected untouched pledge, remaining %s", row.RemainingAmount)
	}
}

func TestCancelPledge(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newService(t, db, 33)

	memberID := node.Generate()
	id := node.Generate()
	seedPledge(t, db, id, memberID, "Tithe", "500.00", "500.00", time.Now().UTC())

	cancelled, err := svc.Cancel(ctx, pledgedomain.CancelPledgeRequest{ID: id.String()})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != pledgedomain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	// Cancelled pledges are never decremented.
	if err := svc.ApplyContribution(ctx, db, memberID, "Tithe", decimal.RequireFromString("100")); err != nil {
		t.Fatalf("apply contribution: %v", err)
	}
	row := loadPledge(t, db, id)
	if !row.RemainingAmount.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("expected remaining 500, got %s", row.RemainingAmount)
	}
}
