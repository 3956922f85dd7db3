package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	contributionrepo "github.com/kanisahq/kanisa/internal/contribution/repository"
	contributionservice "github.com/kanisahq/kanisa/internal/contribution/service"
	memberrepo "github.com/kanisahq/kanisa/internal/member/repository"
	memberservice "github.com/kanisahq/kanisa/internal/member/service"
	"github.com/kanisahq/kanisa/internal/mpesa/correlation"
	"github.com/kanisahq/kanisa/internal/mpesa/daraja"
	mpesadomain "github.com/kanisahq/kanisa/internal/mpesa/domain"
	mpesarepo "github.com/kanisahq/kanisa/internal/mpesa/repository"
	mpesaservice "github.com/kanisahq/kanisa/internal/mpesa/service"
	pledgerepo "github.com/kanisahq/kanisa/internal/pledge/repository"
	pledgeservice "github.com/kanisahq/kanisa/internal/pledge/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeDaraja struct {
	resp *daraja.STKPushResponse
	err  error
}

func (f *fakeDaraja) STKPush(context.Context, daraja.STKPushRequest) (*daraja.STKPushResponse, error) {
	return f.resp, f.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	phones   []string
	err      error
}

func (n *recordingNotifier) Send(_ context.Context, phone, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.phones = append(n.phones, phone)
	n.messages = append(n.messages, message)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      mpesadomain.Service
	store    correlation.Store
	notifier *recordingNotifier
}

func newFixture(t *testing.T, nodeID int64) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	memberSvc := memberservice.New(memberservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  memberrepo.Provide(),
	})
	contributionSvc := contributionservice.New(contributionservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  contributionrepo.Provide(),
	})
	pledgeSvc := pledgeservice.New(pledgeservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  pledgerepo.Provide(),
	})

	store := correlation.NewMemoryStore(time.Hour)
	notifier := &recordingNotifier{}

	svc := mpesaservice.New(mpesaservice.Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          mpesarepo.Provide(),
		Members:       memberSvc,
		Contributions: contributionSvc,
		Pledges:       pledgeSvc,
		Correlation:   store,
		Daraja:        &fakeDaraja{},
		Notifier:      notifier,
	})

	return &fixture{db: db, node: node, svc: svc, store: store, notifier: notifier}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE members (
			id BIGINT PRIMARY KEY,
			member_number TEXT NOT NULL,
			full_name TEXT NOT NULL,
			phone TEXT NOT NULL,
			email TEXT,
			residence TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_members_member_number ON members(member_number)`,
		`CREATE TABLE payments (
			id BIGINT PRIMARY KEY,
			merchant_request_id TEXT NOT NULL,
			checkout_request_id TEXT NOT NULL,
			mpesa_receipt_number TEXT,
			account_reference TEXT,
			phone TEXT,
			amount DECIMAL(18,2) NOT NULL DEFAULT 0,
			result_code INT NOT NULL DEFAULT 0,
			result_desc TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			member_id BIGINT,
			raw_callback TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_payments_checkout_request_id ON payments(checkout_request_id)`,
		`CREATE UNIQUE INDEX ux_payments_mpesa_receipt_number ON payments(mpesa_receipt_number)`,
		`CREATE TABLE contributions (
			id BIGINT PRIMARY KEY,
			member_id BIGINT NOT NULL,
			payment_id BIGINT NOT NULL,
			contribution_type TEXT NOT NULL,
			amount DECIMAL(18,2) NOT NULL,
			reference_number TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			contribution_date DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'completed',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE pledges (
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
		)`,
	}

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}

func seedMember(t *testing.T, db *gorm.DB, id snowflake.ID, memberNumber string) {
	t.Helper()

	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO members (id, member_number, full_name, phone, email, residence, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, memberNumber, "Jane Mwangi", "254700000001", "", "", now, now,
	).Error
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}
}

func seedPledge(t *testing.T, db *gorm.DB, id, memberID snowflake.ID, accountType string, amount, remaining string, pledgeDate time.Time) {
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

func assertCount(t *testing.T, db *gorm.DB, query string, expected int64) {
	t.Helper()

	var count int64
	if err := db.Raw(query).Scan(&count).Error; err != nil {
		t.Fatalf("query count: %v", err)
	}
	if count != expected {
		t.Fatalf("expected %d, got %d", expected, count)
	}
}

func successEnvelope(checkoutID, receipt, amount string) mpesadomain.CallbackEnvelope {
	var envelope mpesadomain.CallbackEnvelope
	envelope.Body.StkCallback = mpesadomain.StkCallback{
		MerchantRequestID: "mr-" + checkoutID,
		CheckoutRequestID: checkoutID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
	}
	envelope.Body.StkCallback.CallbackMetadata.Item = []mpesadomain.MetadataItem{
		{Name: "Amount", Value: json.RawMessage(amount)},
		{Name: "MpesaReceiptNumber", Value: json.RawMessage(fmt.Sprintf("%q", receipt))},
		{Name: "PhoneNumber", Value: json.RawMessage(`254700000001`)},
	}
	return envelope
}

func TestHandleCallbackBreakdownFanOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20)

	memberID := f.node.Generate()
	seedMember(t, f.db, memberID, "JM1023")
	pledgeID := f.node.Generate()
	seedPledge(t, f.db, pledgeID, memberID, "Tithe", "1000.00", "1000.00", time.Now().UTC().AddDate(0, -1, 0))

	checkoutID := "ws_CO_1001"
	if err := f.store.Put(ctx, checkoutID, correlation.Entry{
		AccountReference: "JM1023MULTI",
		Breakdown: map[string]decimal.Decimal{
			"Tithe":    decimal.RequireFromString("500"),
			"Offering": decimal.RequireFromString("300"),
		},
	}); err != nil {
		t.Fatalf("store correlation: %v", err)
	}

	outcome, err := f.svc.HandleCallback(ctx, successEnvelope(checkoutID, "RAB1CDEF23", "800"))
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if outcome != mpesadomain.OutcomeSuccess {
		t.Fatalf("expected outcome %s, got %s", mpesadomain.OutcomeSuccess, outcome)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM payments", 1)
	assertCount(t, f.db, "SELECT COUNT(1) FROM contributions", 2)

	var total string
	if err := f.db.Raw("SELECT SUM(amount) FROM contributions").Scan(&total).Error; err != nil {
		t.Fatalf("sum contributions: %v", err)
	}
	if !decimal.RequireFromString(total).Equal(decimal.RequireFromString("800")) {
		t.Fatalf("expected contributions to sum to 800, got %s", total)
	}

	var remaining, fulfilled, status string
	row := f.db.Raw("SELECT remaining_amount, fulfilled_amount, status FROM pledges WHERE id = ?", pledgeID).Row()
	if err := row.Scan(&remaining, &fulfilled, &status); err != nil {
		t.Fatalf("scan pledge: %v", err)
	}
	if !decimal.RequireFromString(remaining).Equal(decimal.RequireFromString("500")) {
		t.Fatalf("expected remaining 500, got %s", remaining)
	}
	if !decimal.RequireFromString(fulfilled).Equal(decimal.RequireFromString("500")) {
		t.Fatalf("expected fulfilled 500, got %s", fulfilled)
	}
	if status != "active" {
		t.Fatalf("expected pledge to stay active, got %s", status)
	}

	if f.notifier.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", f.notifier.count())
	}
}

func TestHandleCallbackDuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 21)

	memberID := f.node.Generate()
	seedMember(t, f.db, memberID, "JM1023")

	checkoutID := "ws_CO_1002"
	envelope := successEnvelope(checkoutID, "RAB2CDEF24", "800")

	outcome, err := f.svc.HandleCallback(ctx, envelope)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if outcome != mpesadomain.OutcomeSuccess {
		t.Fatalf("expected success, got %s", outcome)
	}

	outcome, err = f.svc.HandleCallback(ctx, envelope)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if outcome != mpesadomain.OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", outcome)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM payments", 1)
	if f.notifier.count() != 1 {
		t.Fatalf("expected at most one notification, got %d", f.notifier.count())
	}
}

func TestHandleCallbackConcurrentDuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 28)

	memberID := f.node.Generate()
	seedMember(t, f.db, memberID, "JM1023")

	checkoutID := "ws_CO_1009"
	envelope := successEnvelope(checkoutID, "RAB8CDEF30", "800")

	const deliveries = 4
	type result struct {
		outcome mpesadomain.Outcome
		err     error
	}
	results := make(chan result, deliveries)

	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := f.svc.HandleCallback(ctx, envelope)
			results <- result{outcome: outcome, err: err}
		}()
	}
	wg.Wait()
	close(results)

	var successes, duplicates int
	for r := range results {
		if r.err != nil {
			t.Fatalf("handle callback: %v", r.err)
		}
		switch r.outcome {
		case mpesadomain.OutcomeSuccess:
			successes++
		case mpesadomain.OutcomeDuplicate:
			duplicates++
		default:
			t.Fatalf("unexpected outcome %s", r.outcome)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 success, got %d", successes)
	}
	if duplicates != deliveries-1 {
		t.Fatalf("expected %d duplicates, got %d", deliveries-1, duplicates)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM payments", 1)
	if f.notifier.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", f.notifier.count())
	}
}

func TestHandleCallbackFallbackContribution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 22)

	memberID := f.node.Generate()
	seedMember(t, f.db, memberID, "JM1023")

	checkoutID := "ws_CO_1003"
	if err := f.store.Put(ctx, checkoutID, correlation.Entry{AccountReference: "JM1023T"}); err != nil {
		t.Fatalf("store correlation: %v", err)
	}

	outcome, err := f.svc.HandleCallback(ctx, successEnvelope(checkoutID, "RAB3CDEF25", "250"))
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if outcome != mpesadomain.OutcomeSuccess {
		t.Fatalf("expected success, got %s", outcome)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM contributions", 1)

	var contributionType, amount string
	row := f.db.Raw("SELECT contribution_type, amount FROM contributions LIMIT 1").Row()
	if err := row.Scan(&contributionType, &amount); err != nil {
		t.Fatalf("scan contribution: %v", err)
	}
	if contributionType != "Tithe" {
		t.Fatalf("expected Tithe, got %s", contributionType)
	}
	if !decimal.RequireFromString(amount).Equal(decimal.RequireFromString("250")) {
		t.Fatalf("expected amount 250, got %s", amount)
	}
}

func TestHandleCallbackUnresolvableMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 23)

	checkoutID := "ws_CO_1004"
	if err := f.store.Put(ctx, checkoutID, correlation.Entry{AccountReference: "ZZ999T"}); err != nil {
		t.Fatalf("store correlation: %v", err)
	}

	outcome, err := f.svc.HandleCallback(ctx, successEnvelope(checkoutID, "RAB4CDEF26", "100"))
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if outcome != mpesadomain.OutcomeSuccess {
		t.Fatalf("expected success, got %s", outcome)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM payments", 1)
	assertCount(t, f.db, "SELECT COUNT(1) FROM contributions", 0)

	var status string
	var memberID *int64
	row := f.db.Raw("SELECT status, member_id FROM payments LIMIT 1").Row()
	if err := row.Scan(&status, &memberID); err != nil {
		t.Fatalf("scan payment: %v", err)
	}
	if status != "confirmed" {
		t.Fatalf("expected confirmed, got %s", status)
	}
	if memberID != nil {
		t.Fatalf("expected null member_id, got %d", *memberID)
	}
}

func TestHandleCallbackMissingReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 24)

	envelope := successEnvelope("ws_CO_1005", "RAB5CDEF27", "100")
	envelope.Body.StkCallback.CallbackMetadata.Item = []mpesadomain.MetadataItem{
		{Name: "Amount", Value: json.RawMessage(`100`)},
		{Name: "PhoneNumber", Value: json.RawMessage(`254700000001`)},
	}

	outcome, err := f.svc.HandleCallback(ctx, envelope)
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if outcome != mpesadomain.OutcomeUnprocessable {
		t.Fatalf("expected unprocessable, got %s", outcome)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM payments", 0)
}

func TestHandleCallbackFailureUpsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 25)

	checkoutID := "ws_CO_1006"
	var envelope mpesadomain.CallbackEnvelope
	envelope.Body.StkCallback = mpesadomain.StkCallback{
		MerchantRequestID: "mr-" + checkoutID,
		CheckoutRequestID: checkoutID,
		ResultCode:        1032,
	}

	for i := 0; i < 2; i++ {
		outcome, err := f.svc.HandleCallback(ctx, envelope)
		if err != nil {
			t.Fatalf("handle callback: %v", err)
		}
		if outcome != mpesadomain.OutcomeFailure {
			t.Fatalf("expected failure, got %s", outcome)
		}
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM payments", 1)
	assertCount(t, f.db, "SELECT COUNT(1) FROM contributions", 0)

	var status, resultDesc string
	row := f.db.Raw("SELECT status, result_desc FROM payments LIMIT 1").Row()
	if err := row.Scan(&status, &resultDesc); err != nil {
		t.Fatalf("scan payment: %v", err)
	}
	if status != "failed" {
		t.Fatalf("expected failed, got %s", status)
	}
	if resultDesc != "Request cancelled by the user" {
		t.Fatalf("unexpected result_desc %q", resultDesc)
	}
	if f.notifier.count() != 0 {
		t.Fatalf("expected no notification on failure, got %d", f.notifier.count())
	}
}

func TestStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 26)

	resp, err := f.svc.Status(ctx, mpesadomain.StatusRequest{CheckoutRequestID: "ws_CO_unknown"})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if resp.State != mpesadomain.StatePending {
		t.Fatalf("expected pending, got %s", resp.State)
	}

	checkoutID := "ws_CO_1007"
	if _, err := f.svc.HandleCallback(ctx, successEnvelope(checkoutID, "RAB7CDEF29", "100")); err != nil {
		t.Fatalf("handle callback: %v", err)
	}

	resp, err = f.svc.Status(ctx, mpesadomain.StatusRequest{CheckoutRequestID: checkoutID})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if resp.State != mpesadomain.StateSuccess {
		t.Fatalf("expected success, got %s", resp.State)
	}
	if resp.Receipt != "RAB7CDEF29" {
		t.Fatalf("expected receipt, got %q", resp.Receipt)
	}

	failedID := "ws_CO_1008"
	var envelope mpesadomain.CallbackEnvelope
	envelope.Body.StkCallback = mpesadomain.StkCallback{
		CheckoutRequestID: failedID,
		ResultCode:        1037,
	}
	if _, err := f.svc.HandleCallback(ctx, envelope); err != nil {
		t.Fatalf("handle failure callback: %v", err)
	}

	resp, err = f.svc.Status(ctx, mpesadomain.StatusRequest{CheckoutRequestID: failedID})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if resp.State != mpesadomain.StateFailed {
		t.Fatalf("expected failed, got %s", resp.State)
	}
	if resp.Message == "" {
		t.Fatalf("expected a failure message")
	}
}

func TestInitiateStoresCorrelationEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 27)

	db := f.db
	node := f.node
	store := correlation.NewMemoryStore(time.Hour)
	push := &fakeDaraja{resp: &daraja.STKPushResponse{
		MerchantRequestID: "mr-1",
		CheckoutRequestID: "ws_CO_2001",
		ResponseCode:      "0",
		Raw:               []byte(`{"CheckoutRequestID":"ws_CO_2001"}`),
	}}

	memberSvc := memberservice.New(memberservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: memberrepo.Provide()})
	contributionSvc := contributionservice.New(contributionservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: contributionrepo.Provide()})
	pledgeSvc := pledgeservice.New(pledgeservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: pledgerepo.Provide()})

	svc := mpesaservice.New(mpesaservice.Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          mpesarepo.Provide(),
		Members:       memberSvc,
		Contributions: contributionSvc,
		Pledges:       pledgeSvc,
		Correlation:   store,
		Daraja:        push,
		Notifier:      &recordingNotifier{},
	})

	resp, err := svc.Initiate(ctx, mpesadomain.InitiateRequest{
		Phone:     "254700000001",
		Amount:    decimal.RequireFromString("800"),
		Reference: "JM1023MULTI",
		Breakdown: map[string]decimal.Decimal{
			"Tithe":    decimal.RequireFromString("500"),
			"Offering": decimal.RequireFromString("300"),
		},
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if resp.CheckoutRequestID != "ws_CO_2001" {
		t.Fatalf("expected checkout id, got %q", resp.CheckoutRequestID)
	}
	if len(resp.Raw) == 0 {
		t.Fatalf("expected raw provider response")
	}

	entry, err := store.Get(ctx, "ws_CO_2001")
	if err != nil {
		t.Fatalf("get correlation: %v", err)
	}
	if entry == nil {
		t.Fatalf("expected correlation entry")
	}
	if entry.AccountReference != "JM1023MULTI" {
		t.Fatalf("unexpected reference %q", entry.AccountReference)
	}
	if len(entry.Breakdown) != 2 {
		t.Fatalf("expected 2 breakdown entries, got %d", len(entry.Breakdown))
	}

	assertCount(t, db, "SELECT COUNT(1) FROM payments", 0)
}
