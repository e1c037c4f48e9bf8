package contracts

import "errors"

// Governance failure kinds. Every privileged operation either fully succeeds
// or returns one of these (possibly wrapped) with no state change.
var (
	ErrNotAuthorized     = errors.New("not authorized")
	ErrActionInFlight    = errors.New("another action is in flight")
	ErrAlreadySigned     = errors.New("already signed")
	ErrAlreadyVetoed     = errors.New("already vetoed")
	ErrNoActionPending   = errors.New("no action pending")
	ErrExecutionFailed   = errors.New("execution failed")
	ErrMintMismatch      = errors.New("mint operation mismatch")
	ErrPoolExhausted     = errors.New("mint pool exhausted")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrReinitialization  = errors.New("reinitialization attempt")
	ErrNotInitialized    = errors.New("not initialized")
	ErrNotAMember        = errors.New("not a member")
	ErrReentrant         = errors.New("reentrant call")
	ErrMintNotFound      = errors.New("mint operation not found")
	ErrMintPaused        = errors.New("mint operation paused")
	ErrMintsPaused       = errors.New("minting paused")
	ErrMintInvalidated   = errors.New("mint operation invalidated")
	ErrApprovalsPending  = errors.New("mint approvals pending")
	ErrThresholdExceeded = errors.New("amount exceeds mint threshold")
	ErrInvalidThresholds = errors.New("invalid mint thresholds")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidArgument   = errors.New("invalid argument")
)

var kinds = []struct {
	err  error
	name string
}{
	// Reentrant and ExecutionFailed wrap causes, so they are matched first.
	{ErrReentrant, "Reentrant"},
	{ErrExecutionFailed, "ExecutionFailed"},
	{ErrNotAuthorized, "NotAuthorized"},
	{ErrActionInFlight, "ActionInFlight"},
	{ErrAlreadySigned, "AlreadySigned"},
	{ErrAlreadyVetoed, "AlreadyVetoed"},
	{ErrNoActionPending, "NoActionPending"},
	{ErrMintMismatch, "MintMismatch"},
	{ErrPoolExhausted, "PoolExhausted"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrReinitialization, "ReinitializationAttempt"},
	{ErrNotInitialized, "NotInitialized"},
	{ErrNotAMember, "NotAMember"},
	{ErrMintNotFound, "MintNotFound"},
	{ErrMintPaused, "MintPaused"},
	{ErrMintsPaused, "MintsPaused"},
	{ErrMintInvalidated, "MintInvalidated"},
	{ErrApprovalsPending, "ApprovalsPending"},
	{ErrThresholdExceeded, "ThresholdExceeded"},
	{ErrInvalidThresholds, "InvalidThresholds"},
	{ErrInvalidAddress, "InvalidAddress"},
	{ErrInvalidArgument, "InvalidArgument"},
}

// Kind returns the stable failure-kind name of err, "" for nil and
// "Internal" for errors outside the taxonomy.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}
