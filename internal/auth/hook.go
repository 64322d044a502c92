package auth

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

// Step identifies which login step produced a Result.
type Step string

const (
	// StepPassword is the credential step.
	StepPassword Step = "password"
	// StepSecondFactor is the TOTP step.
	StepSecondFactor Step = "second_factor"
	// StepLogout is an explicit logout.
	StepLogout Step = "logout"
)

// Result describes the outcome of one sequencer step.
type Result struct {
	Step        Step
	Username    string
	PrincipalID uint64
	Success     bool
	// Reason holds the internal cause of a failure. It is never shown to clients.
	Reason error
}

// Hook observes sequencer outcomes.
type Hook interface {
	OnResult(ctx context.Context, result Result)
}

// NoopHook ignores all results.
type NoopHook struct{}

// OnResult implements Hook.
func (NoopHook) OnResult(context.Context, Result) {}

// LogHook logs sequencer outcomes with severity derived from the failure reason.
type LogHook struct{}

// NewLogHook constructs a LogHook.
func NewLogHook() *LogHook {
	return &LogHook{}
}

// OnResult logs the result.
func (h *LogHook) OnResult(ctx context.Context, result Result) {
	entry := log.WithFields(log.Fields{
		"step":     string(result.Step),
		"username": result.Username,
		"success":  result.Success,
	})
	if result.PrincipalID != 0 {
		entry = entry.WithField("principal_id", result.PrincipalID)
	}

	if result.Success {
		entry.Info("admin login step succeeded")
		return
	}
	if result.Reason == nil {
		entry.Warn("admin login step failed without details")
		return
	}

	entry = entry.WithField("reason", result.Reason.Error())
	switch {
	case errors.Is(result.Reason, ErrStoreUnavailable):
		entry.Error("admin login step failed: store unavailable")
	case errors.Is(result.Reason, ErrPrincipalInactive):
		entry.Warn("admin login rejected: principal inactive or missing")
	case errors.Is(result.Reason, errInvalidCode):
		entry.Warn("admin login rejected: invalid second factor")
	case errors.Is(result.Reason, errNoPendingState):
		entry.Warn("admin login rejected: no pending second factor")
	case errors.Is(result.Reason, ErrInvalidInput):
		entry.Debug("admin login rejected: invalid input")
	default:
		entry.Warn("admin login rejected")
	}
}
