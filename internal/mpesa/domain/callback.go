package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// CallbackEnvelope mirrors the provider's webhook payload.
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

// MetadataItem keeps the raw value so numeric amounts survive without a float
// round trip.
type MetadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// Metadata holds the values extracted from a success callback's metadata
// items. AccountReference is optional; the provider does not guarantee it is
// echoed back.
type Metadata struct {
	Amount           decimal.Decimal
	ReceiptNumber    string
	Phone            string
	AccountReference string
}

// ExtractMetadata collects the known metadata items from a success callback.
func ExtractMetadata(cb StkCallback) Metadata {
	var meta Metadata
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if v, ok := itemDecimal(item.Value); ok {
				meta.Amount = v
			}
		case "MpesaReceiptNumber":
			meta.ReceiptNumber = itemString(item.Value)
		case "PhoneNumber":
			meta.Phone = itemString(item.Value)
		case "AccountReference":
			meta.AccountReference = itemString(item.Value)
		}
	}
	return meta
}

func itemString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func itemDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	value := itemString(raw)
	if value == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
