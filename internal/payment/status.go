package payment

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusUnknown   Status = "unknown"
)

// NormalizeStatus collapses a Midtrans transaction_status/fraud_status pair
// into the four statuses this service persists. A challenged capture is
// checked first so it is never reported as completed.
func NormalizeStatus(transactionStatus, fraudStatus string) Status {
	switch {
	case transactionStatus == "capture" && fraudStatus == "challenge":
		return StatusPending
	case (transactionStatus == "capture" || transactionStatus == "settlement") && fraudStatus != "deny":
		return StatusCompleted
	case transactionStatus == "pending":
		return StatusPending
	case transactionStatus == "expire" || transactionStatus == "cancel" || transactionStatus == "deny":
		return StatusFailed
	default:
		return StatusUnknown
	}
}
