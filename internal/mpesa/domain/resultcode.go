package domain

import "strings"

// Provider result codes observed on failed STK pushes. The provider's own
// description takes precedence when present.
var resultCodeDescriptions = map[int]string{
	1:    "Insufficient funds in the M-Pesa account",
	17:   "Unable to process the request, try again",
	26:   "System busy, try again in a short while",
	1001: "Unable to lock subscriber, a transaction is already in process",
	1019: "Transaction expired, no response from the user",
	1025: "Push request error, could not be delivered",
	1032: "Request cancelled by the user",
	1037: "Timeout, the user could not be reached",
	2001: "Wrong M-Pesa PIN entered",
	9999: "Push request failed",
}

// DescribeResultCode maps a nonzero result code to a human description when
// the provider description is absent.
func DescribeResultCode(code int, providerDesc string) string {
	if desc := strings.TrimSpace(providerDesc); desc != "" {
		return desc
	}
	if desc, ok := resultCodeDescriptions[code]; ok {
		return desc
	}
	return "Transaction failed"
}
