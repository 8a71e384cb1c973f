package domain

import "strings"

// TransactionStatus is the provider's view of a payment attempt.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionSuccess   TransactionStatus = "success"
	TransactionFailed    TransactionStatus = "failed"
	TransactionCancelled TransactionStatus = "cancelled"
	TransactionUnknown   TransactionStatus = "unknown"
)

// ParseTransactionStatus normalizes a raw provider status. "completed" is an
// alias of success; anything unrecognized is unknown.
func ParseTransactionStatus(raw string) TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "completed":
		return TransactionSuccess
	case "failed":
		return TransactionFailed
	case "cancelled", "canceled":
		return TransactionCancelled
	case "pending":
		return TransactionPending
	default:
		return TransactionUnknown
	}
}

func (s TransactionStatus) IsSuccess() bool {
	return s == TransactionSuccess
}

func (s TransactionStatus) IsFailure() bool {
	return s == TransactionFailed || s == TransactionCancelled
}

func (s TransactionStatus) IsTerminal() bool {
	return s.IsSuccess() || s.IsFailure()
}
