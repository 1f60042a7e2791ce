package domain

import "errors"

// Common domain errors for the triage pipeline. Callers should match these
// with errors.Is; all wrapping preserves the sentinel.
var (
	// ErrIndexUnavailable indicates the on-disk retrieval index for a domain
	// is missing or corrupt. Always recoverable via the degraded answer;
	// it must never propagate to the end user.
	ErrIndexUnavailable = errors.New("retrieval index unavailable")

	// ErrDuplicateAgent indicates a second registration for a domain that
	// already has an agent. This is a programmer error at registry build
	// time and fails fast.
	ErrDuplicateAgent = errors.New("agent already registered for domain")

	// ErrUnknownAgentType indicates a domain identifier outside the
	// supported set.
	ErrUnknownAgentType = errors.New("unknown agent type")

	// ErrEvaluation indicates the quality scorer failed to produce a usable
	// score. Logged and dropped; never surfaces past the router.
	ErrEvaluation = errors.New("quality evaluation failed")
)
