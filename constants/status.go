package constants

// ItemStatus is the canonical status for rows in work_items.
type ItemStatus string

// Stable values (store these exact strings in the ledger).
const (
	StatusPending         ItemStatus = "pending"          // never attempted, or reset by an operator
	StatusInProgress      ItemStatus = "in_progress"      // handler running; recovered to retryable on restart
	StatusSucceeded       ItemStatus = "succeeded"        // terminal
	StatusFailedRetryable ItemStatus = "failed_retryable" // transient failure, eligible on the next run
	StatusFailedPermanent ItemStatus = "failed_permanent" // terminal until an explicit operator reset
)

// Terminal reports whether the status will never change without operator action.
func (s ItemStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailedPermanent
}
