package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	contributiondomain "github.com/kanisahq/kanisa/internal/contribution/domain"
	memberdomain "github.com/kanisahq/kanisa/internal/member/domain"
	"github.com/kanisahq/kanisa/internal/mpesa/correlation"
	"github.com/kanisahq/kanisa/internal/mpesa/daraja"
	"github.com/kanisahq/kanisa/internal/mpesa/domain"
	"github.com/kanisahq/kanisa/internal/mpesa/reference"
	"github.com/kanisahq/kanisa/internal/notifier"
	"github.com/kanisahq/kanisa/internal/observability/metrics"
	pledgedomain "github.com/kanisahq/kanisa/internal/pledge/domain"
	"github.com/kanisahq/kanisa/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errDuplicateWrite signals a constraint-violation race inside the
// reconciliation transaction. The whole write rolls back and the callback is
// reported as a duplicate.
var errDuplicateWrite = errors.New("duplicate_write")

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Members       memberdomain.Service
	Contributions contributiondomain.Service
	Pledges       pledgedomain.Service
	Correlation   correlation.Store
	Daraja        daraja.API
	Notifier      notifier.Provider
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	members       memberdomain.Service
	contributions contributiondomain.Service
	pledges       pledgedomain.Service
	correlation   correlation.Store
	daraja        daraja.API
	notifier      notifier.Provider
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("mpesa.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		members:       p.Members,
		contributions: p.Contributions,
		pledges:       p.Pledges,
		correlation:   p.Correlation,
		daraja:        p.Daraja,
		notifier:      p.Notifier,
		metrics:       p.Metrics,
	}
}

func (s *Service) Initiate(ctx context.Context, req domain.InitiateRequest) (domain.InitiateResponse, error) {
	phone := strings.TrimSpace(req.Phone)
	if len(phone) < 9 {
		return domain.InitiateResponse{}, domain.ErrInvalidPhone
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.InitiateResponse{}, domain.ErrInvalidAmount
	}

	resp, err := s.daraja.STKPush(ctx, daraja.STKPushRequest{
		Phone:            phone,
		Amount:           req.Amount,
		AccountReference: strings.TrimSpace(req.Reference),
		TransactionDesc:  "Church contribution",
	})
	if err != nil {
		s.metrics.RecordSTKPush(ctx, "error")
		return domain.InitiateResponse{}, err
	}

	if resp.CheckoutRequestID != "" {
		entry := correlation.Entry{
			AccountReference: strings.TrimSpace(req.Reference),
			Breakdown:        req.Breakdown,
		}
		if err := s.correlation.Put(ctx, resp.CheckoutRequestID, entry); err != nil {
			s.log.Error("correlation store write failed",
				zap.String("checkout_request_id", resp.CheckoutRequestID),
				zap.Error(err),
			)
		}
		s.metrics.RecordSTKPush(ctx, "accepted")
	} else {
		s.metrics.RecordSTKPush(ctx, "rejected")
	}

	return domain.InitiateResponse{
		MerchantRequestID: resp.MerchantRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
		Raw:               resp.Raw,
	}, nil
}

func (s *Service) HandleCallback(ctx context.Context, envelope domain.CallbackEnvelope) (domain.Outcome, error) {
	cb := envelope.Body.StkCallback
	checkoutID := strings.TrimSpace(cb.CheckoutRequestID)
	if checkoutID == "" {
		s.metrics.RecordCallback(ctx, string(domain.OutcomeUnprocessable))
		return domain.OutcomeUnprocessable, domain.ErrInvalidCheckoutID
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		raw = nil
	}

	var outcome domain.Outcome
	if cb.ResultCode == 0 {
		outcome, err = s.handleSuccess(ctx, cb, checkoutID, raw)
	} else {
		outcome, err = s.handleFailure(ctx, cb, checkoutID, raw)
	}
	s.metrics.RecordCallback(ctx, string(outcome))
	return outcome, err
}

func (s *Service) handleSuccess(ctx context.Context, cb domain.StkCallback, checkoutID string, raw []byte) (domain.Outcome, error) {
	meta := domain.ExtractMetadata(cb)

	entry, err := s.correlation.Get(ctx, checkoutID)
	if err != nil {
		s.log.Error("correlation store read failed",
			zap.String("checkout_request_id", checkoutID),
			zap.Error(err),
		)
		entry = nil
	}

	accountRef := meta.AccountReference
	if accountRef == "" && entry != nil {
		accountRef = entry.AccountReference
	}

	// Pre-check is an optimization; the real guard is the uniqueness
	// constraint enforced inside the transaction below.
	exists, err := s.repo.ExistsByCorrelation(ctx, s.db, checkoutID, meta.ReceiptNumber)
	if err != nil {
		return domain.OutcomeUnprocessable, err
	}
	if exists {
		s.log.Info("duplicate callback ignored",
			zap.String("checkout_request_id", checkoutID),
			zap.String("receipt", meta.ReceiptNumber),
		)
		return domain.OutcomeDuplicate, nil
	}

	if meta.ReceiptNumber == "" || meta.Amount.LessThanOrEqual(decimal.Zero) {
		s.log.Warn("success callback missing receipt or amount",
			zap.String("checkout_request_id", checkoutID),
			zap.String("receipt", meta.ReceiptNumber),
			zap.String("amount", meta.Amount.String()),
		)
		return domain.OutcomeUnprocessable, nil
	}

	memberID := s.resolveMember(ctx, accountRef)
	decoded := reference.Decode(accountRef)

	now := time.Now().UTC()
	receipt := meta.ReceiptNumber
	payment := &domain.Payment{
		ID:                 s.genID.Generate(),
		MerchantRequestID:  strings.TrimSpace(cb.MerchantRequestID),
		CheckoutRequestID:  checkoutID,
		MpesaReceiptNumber: &receipt,
		AccountReference:   accountRef,
		Phone:              meta.Phone,
		Amount:             meta.Amount,
		ResultCode:         cb.ResultCode,
		ResultDesc:         cb.ResultDesc,
		Status:             domain.StatusConfirmed,
		MemberID:           memberID,
		RawCallback:        raw,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	var contributions []contributiondomain.Contribution
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.InsertConfirmed(ctx, tx, payment)
		if err != nil {
			if db.IsDuplicateKeyErr(err) {
				return errDuplicateWrite
			}
			return err
		}
		if !inserted {
			return errDuplicateWrite
		}

		if memberID == nil {
			return nil
		}

		var breakdown map[string]decimal.Decimal
		if entry != nil {
			breakdown = entry.Breakdown
		}

		if len(breakdown) > 0 {
			contributions = s.fanOutBreakdown(ctx, tx, payment, *memberID, breakdown)
			return nil
		}
		if accountRef == "" {
			return nil
		}
		contributions = s.fallbackContribution(ctx, tx, payment, *memberID, decoded)
		return nil
	})
	if err != nil {
		if errors.Is(err, errDuplicateWrite) {
			s.log.Info("duplicate callback detected by constraint",
				zap.String("checkout_request_id", checkoutID),
				zap.String("receipt", receipt),
			)
			return domain.OutcomeDuplicate, nil
		}
		return domain.OutcomeUnprocessable, err
	}

	for _, contribution := range contributions {
		s.metrics.RecordContribution(ctx, contribution.ContributionType)
	}

	if err := s.correlation.Delete(ctx, checkoutID); err != nil {
		s.log.Debug("correlation entry cleanup failed",
			zap.String("checkout_request_id", checkoutID),
			zap.Error(err),
		)
	}

	s.notify(ctx, payment, contributions)

	s.log.Info("payment reconciled",
		zap.String("checkout_request_id", checkoutID),
		zap.String("receipt", receipt),
		zap.String("amount", payment.Amount.String()),
		zap.Int("contributions", len(contributions)),
	)
	return domain.OutcomeSuccess, nil
}

// fanOutBreakdown inserts one contribution per non-zero breakdown entry. A
// failing item is logged and skipped so its siblings still land.
func (s *Service) fanOutBreakdown(ctx context.Context, tx *gorm.DB, payment *domain.Payment, memberID snowflake.ID, breakdown map[string]decimal.Decimal) []contributiondomain.Contribution {
	categories := make([]string, 0, len(breakdown))
	for category := range breakdown {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	contributions := make([]contributiondomain.Contribution, 0, len(categories))
	for _, category := range categories {
		amount := breakdown[category]
		if amount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		contribution := contributiondomain.Contribution{
			MemberID:         memberID,
			PaymentID:        payment.ID,
			ContributionType: category,
			Amount:           amount,
			ReferenceNumber:  derefReceipt(payment),
			PaymentMethod:    contributiondomain.MethodMpesa,
		}
		if err := s.contributions.Record(ctx, tx, &contribution); err != nil {
			s.log.Error("contribution insert failed",
				zap.String("checkout_request_id", payment.CheckoutRequestID),
				zap.String("member_id", memberID.String()),
				zap.String("category", category),
				zap.String("amount", amount.String()),
				zap.Error(err),
			)
			continue
		}
		contributions = append(contributions, contribution)
		s.decrementPledges(ctx, tx, payment, memberID, category, amount)
	}
	return contributions
}

// fallbackContribution attributes the whole payment to the single parsed
// category, or the catch-all when the reference was multi-category or
// unparseable, so no confirmed payment goes un-attributed.
func (s *Service) fallbackContribution(ctx context.Context, tx *gorm.DB, payment *domain.Payment, memberID snowflake.ID, decoded reference.Decoded) []contributiondomain.Contribution {
	category := decoded.Category
	if decoded.Multi {
		category = contributiondomain.TypeOthers
	}

	contribution := contributiondomain.Contribution{
		MemberID:         memberID,
		PaymentID:        payment.ID,
		ContributionType: category,
		Amount:           payment.Amount,
		ReferenceNumber:  derefReceipt(payment),
		PaymentMethod:    contributiondomain.MethodMpesa,
	}
	if err := s.contributions.Record(ctx, tx, &contribution); err != nil {
		s.log.Error("fallback contribution insert failed",
			zap.String("checkout_request_id", payment.CheckoutRequestID),
			zap.String("member_id", memberID.String()),
			zap.String("category", category),
			zap.Error(err),
		)
		return nil
	}
	s.log.Info("fallback contribution recorded",
		zap.String("checkout_request_id", payment.CheckoutRequestID),
		zap.String("category", category),
		zap.Bool("fallback", true),
	)
	s.decrementPledges(ctx, tx, payment, memberID, category, payment.Amount)
	return []contributiondomain.Contribution{contribution}
}

// decrementPledges applies a contribution to open pledges. A failure is
// logged and swallowed; the contribution stands regardless.
func (s *Service) decrementPledges(ctx context.Context, tx *gorm.DB, payment *domain.Payment, memberID snowflake.ID, category string, amount decimal.Decimal) {
	if err := s.pledges.ApplyContribution(ctx, tx, memberID, category, amount); err != nil {
		s.log.Error("pledge decrement failed",
			zap.String("checkout_request_id", payment.CheckoutRequestID),
			zap.String("member_id", memberID.String()),
			zap.String("category", category),
			zap.String("amount", amount.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) handleFailure(ctx context.Context, cb domain.StkCallback, checkoutID string, raw []byte) (domain.Outcome, error) {
	desc := domain.DescribeResultCode(cb.ResultCode, cb.ResultDesc)

	accountRef := ""
	if entry, err := s.correlation.Get(ctx, checkoutID); err == nil && entry != nil {
		accountRef = entry.AccountReference
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:                s.genID.Generate(),
		MerchantRequestID: strings.TrimSpace(cb.MerchantRequestID),
		CheckoutRequestID: checkoutID,
		AccountReference:  accountRef,
		Amount:            decimal.Zero,
		ResultCode:        cb.ResultCode,
		ResultDesc:        desc,
		Status:            domain.StatusFailed,
		RawCallback:       raw,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.UpsertFailed(ctx, s.db, payment); err != nil {
		return domain.OutcomeUnprocessable, err
	}

	s.log.Info("failed payment recorded",
		zap.String("checkout_request_id", checkoutID),
		zap.Int("result_code", cb.ResultCode),
		zap.String("result_desc", desc),
	)
	return domain.OutcomeFailure, nil
}

func (s *Service) Status(ctx context.Context, req domain.StatusRequest) (domain.StatusResponse, error) {
	checkoutID := strings.TrimSpace(req.CheckoutRequestID)
	if checkoutID == "" {
		return domain.StatusResponse{}, domain.ErrInvalidCheckoutID
	}

	payment, err := s.repo.FindByCheckoutID(ctx, s.db, checkoutID)
	if err != nil {
		return domain.StatusResponse{}, err
	}
	if payment == nil {
		return domain.StatusResponse{
			State:   domain.StatePending,
			Message: "Awaiting confirmation",
		}, nil
	}
	if payment.Status == domain.StatusConfirmed && payment.MpesaReceiptNumber != nil {
		return domain.StatusResponse{
			State:   domain.StateSuccess,
			Message: "Payment received",
			Receipt: *payment.MpesaReceiptNumber,
		}, nil
	}
	return domain.StatusResponse{
		State:   domain.StateFailed,
		Message: payment.ResultDesc,
	}, nil
}

// resolveMember looks up the member encoded in the account reference.
// Resolution failure is non-fatal; the payment is recorded without a member.
func (s *Service) resolveMember(ctx context.Context, accountRef string) *snowflake.ID {
	if accountRef == "" {
		return nil
	}

	decoded := reference.Decode(accountRef)
	if decoded.MemberNumber == "" {
		return nil
	}

	member, err := s.members.GetByMemberNumber(ctx, decoded.MemberNumber)
	if err != nil {
		if errors.Is(err, memberdomain.ErrNotFound) || errors.Is(err, memberdomain.ErrInvalidMemberNumber) {
			s.log.Info("member not resolved from account reference",
				zap.String("account_reference", accountRef),
				zap.String("member_number", decoded.MemberNumber),
			)
		} else {
			s.log.Error("member lookup failed",
				zap.String("member_number", decoded.MemberNumber),
				zap.Error(err),
			)
		}
		return nil
	}

	id := member.ID
	return &id
}

func (s *Service) notify(ctx context.Context, payment *domain.Payment, contributions []contributiondomain.Contribution) {
	if payment.Phone == "" {
		return
	}

	if err := s.notifier.Send(ctx, payment.Phone, receiptMessage(payment, contributions)); err != nil {
		s.log.Error("notification failed",
			zap.String("checkout_request_id", payment.CheckoutRequestID),
			zap.String("phone", payment.Phone),
			zap.Error(err),
		)
		s.metrics.RecordNotification(ctx, "error")
		return
	}
	s.metrics.RecordNotification(ctx, "sent")
}

func receiptMessage(payment *domain.Payment, contributions []contributiondomain.Contribution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Payment of KES %s received, receipt %s.",
		payment.Amount.StringFixed(2), derefReceipt(payment))
	if len(contributions) > 0 {
		parts := make([]string, 0, len(contributions))
		for _, contribution := range contributions {
			parts = append(parts, fmt.Sprintf("%s KES %s",
				contribution.ContributionType, contribution.Amount.StringFixed(2)))
		}
		b.WriteString(" Allocated: " + strings.Join(parts, ", ") + ".")
	}
	b.WriteString(" Thank you for your contribution.")
	return b.String()
}

func derefReceipt(payment *domain.Payment) string {
	if payment.MpesaReceiptNumber == nil {
		return ""
	}
	return *payment.MpesaReceiptNumber
}
