package runner

type resultKind int

const (
	kindSuccess resultKind = iota
	kindRetryable
	kindPermanent
)

// StageResult is the narrow contract every stage handler implements:
// exactly one of success, retryable failure, or permanent failure.
type StageResult struct {
	kind        resultKind
	artifact    string
	degraded    bool
	reason      error
	rateLimited bool
}

// Success marks the item done and records its output reference
// (a file path for download/rename, a record key for extraction).
func Success(artifact string) StageResult {
	return StageResult{kind: kindSuccess, artifact: artifact}
}

// SuccessDegraded is a success whose output quality is reduced
// (e.g. a rename that fell back to the patent-number-only filename).
func SuccessDegraded(artifact string) StageResult {
	return StageResult{kind: kindSuccess, artifact: artifact, degraded: true}
}

// Retryable marks a transient failure, eligible on the next full run.
func Retryable(reason error) StageResult {
	return StageResult{kind: kindRetryable, reason: reason}
}

// RateLimited is a retryable failure that additionally asks the runner
// for escalated backoff before the next item.
func RateLimited(reason error) StageResult {
	return StageResult{kind: kindRetryable, reason: reason, rateLimited: true}
}

// Permanent marks a failure that will not change on retry; the item is
// parked until an explicit operator reset.
func Permanent(reason error) StageResult {
	return StageResult{kind: kindPermanent, reason: reason}
}

// IsSuccess reports a successful outcome.
func (r StageResult) IsSuccess() bool { return r.kind == kindSuccess }

// IsRetryable reports a transient failure.
func (r StageResult) IsRetryable() bool { return r.kind == kindRetryable }

// IsPermanent reports a terminal failure.
func (r StageResult) IsPermanent() bool { return r.kind == kindPermanent }

// IsRateLimited reports whether escalated backoff was requested.
func (r StageResult) IsRateLimited() bool { return r.rateLimited }

// IsDegraded reports a success with reduced output quality.
func (r StageResult) IsDegraded() bool { return r.degraded }

// Artifact returns the output reference of a successful result.
func (r StageResult) Artifact() string { return r.artifact }

// Reason returns the failure cause, nil on success.
func (r StageResult) Reason() error { return r.reason }
