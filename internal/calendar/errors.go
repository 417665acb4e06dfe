package calendar

// UnavailableError is a backend precondition failure: permission denied,
// helper or binary missing. The cascade treats it as an empty result and
// moves on to the next backend.
type UnavailableError struct {
	Backend string
	Reason  string
}

func (e *UnavailableError) Error() string {
	return "calendar: backend " + e.Backend + " unavailable: " + e.Reason
}

// ResolutionError reports that no event could be resolved. It carries the
// backend that supplied (or failed to supply) events and an actionable hint.
type ResolutionError struct {
	Backend string
	Reason  string
	Hint    string
}

func (e *ResolutionError) Error() string {
	return "calendar: [" + e.Backend + "] " + e.Reason
}

// Payload renders the error as the structured JSON envelope the CLI emits.
func (e *ResolutionError) Payload() map[string]string {
	return map[string]string{
		"error":   e.Reason,
		"backend": e.Backend,
		"hint":    e.Hint,
	}
}

func newResolutionError(backend, reason string) *ResolutionError {
	return &ResolutionError{
		Backend: backend,
		Reason:  reason,
		Hint:    "Run `meetingctl doctor` and verify calendar permissions/backends.",
	}
}
