package repository

import (
	"context"

	"github.com/kanisahq/kanisa/internal/mpesa/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertConfirmed(ctx context.Context, db *gorm.DB, payment *domain.Payment) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, merchant_request_id, checkout_request_id, mpesa_receipt_number,
		                       account_reference, phone, amount, result_code, result_desc, status,
		                       member_id, raw_callback, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (checkout_request_id) DO NOTHING`,
		payment.ID,
		payment.MerchantRequestID,
		payment.CheckoutRequestID,
		payment.MpesaReceiptNumber,
		payment.AccountReference,
		payment.Phone,
		payment.Amount,
		payment.ResultCode,
		payment.ResultDesc,
		payment.Status,
		payment.MemberID,
		payment.RawCallback,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ExistsByCorrelation(ctx context.Context, db *gorm.DB, checkoutRequestID, receiptNumber string) (bool, error) {
	var count int64
	stmt := db.WithContext(ctx)
	var err error
	if receiptNumber != "" {
		err = stmt.Raw(
			`SELECT COUNT(1) FROM payments WHERE checkout_request_id = ? OR mpesa_receipt_number = ?`,
			checkoutRequestID,
			receiptNumber,
		).Scan(&count).Error
	} else {
		err = stmt.Raw(
			`SELECT COUNT(1) FROM payments WHERE checkout_request_id = ?`,
			checkoutRequestID,
		).Scan(&count).Error
	}
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) UpsertFailed(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	// A late failure delivery must never downgrade a reconciled payment.
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, merchant_request_id, checkout_request_id, mpesa_receipt_number,
		                       account_reference, phone, amount, result_code, result_desc, status,
		                       member_id, raw_callback, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (checkout_request_id) DO UPDATE SET
		     result_code = excluded.result_code,
		     result_desc = excluded.result_desc,
		     status = excluded.status,
		     raw_callback = excluded.raw_callback,
		     updated_at = excluded.updated_at
		 WHERE payments.status <> ?`,
		payment.ID,
		payment.MerchantRequestID,
		payment.CheckoutRequestID,
		payment.MpesaReceiptNumber,
		payment.AccountReference,
		payment.Phone,
		payment.Amount,
		payment.ResultCode,
		payment.ResultDesc,
		payment.Status,
		payment.MemberID,
		payment.RawCallback,
		payment.CreatedAt,
		payment.UpdatedAt,
		domain.StatusConfirmed,
	).Error
}

func (r *repo) FindByCheckoutID(ctx context.Context, db *gorm.DB, checkoutRequestID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, merchant_request_id, checkout_request_id, mpesa_receipt_number,
		        account_reference, phone, amount, result_code, result_desc, status,
		        member_id, raw_callback, created_at, updated_at
		 FROM payments WHERE checkout_request_id = ?`,
		checkoutRequestID,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}
