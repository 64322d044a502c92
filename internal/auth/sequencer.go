package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/veritas-stock/stockd/internal/models"
	"github.com/veritas-stock/stockd/internal/security"
)

// Default lifetimes applied when Options leaves them unset.
const (
	DefaultPendingTTL = 10 * time.Minute
	DefaultSessionTTL = 24 * time.Hour
)

// PrincipalStore looks up admin principals.
// Both methods return a nil admin and a nil error when no active principal matches.
type PrincipalStore interface {
	FindActiveByUsername(ctx context.Context, username string) (*models.Admin, error)
	FindActiveByID(ctx context.Context, id uint64) (*models.Admin, error)
}

// TokenCodec signs session ids into client tokens and reads them back.
type TokenCodec interface {
	Sign(sessionID string, expiresAt time.Time) (string, error)
	Parse(token string) (string, error)
}

// Options tunes a Sequencer.
type Options struct {
	PendingTTL time.Duration
	SessionTTL time.Duration
	Now        func() time.Time
	NewID      func() (string, error)
	Hook       Hook
}

// Sequencer drives the password then TOTP login sequence.
type Sequencer struct {
	principals PrincipalStore
	sessions   SessionStore
	tokens     TokenCodec
	pendingTTL time.Duration
	sessionTTL time.Duration
	now        func() time.Time
	newID      func() (string, error)
	hook       Hook
}

// NewSequencer constructs a Sequencer.
func NewSequencer(principals PrincipalStore, sessions SessionStore, tokens TokenCodec, opts Options) *Sequencer {
	s := &Sequencer{
		principals: principals,
		sessions:   sessions,
		tokens:     tokens,
		pendingTTL: opts.PendingTTL,
		sessionTTL: opts.SessionTTL,
		now:        opts.Now,
		newID:      opts.NewID,
		hook:       opts.Hook,
	}
	if s.pendingTTL <= 0 {
		s.pendingTTL = DefaultPendingTTL
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = DefaultSessionTTL
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = security.GenerateSessionID
	}
	if s.hook == nil {
		s.hook = NoopHook{}
	}
	return s
}

// BeginLogin verifies username and password and issues a token pending the second factor,
// together with the expiry of the pending session. Any session carried by currentToken is
// discarded on success. The password is compared exactly as given; only its emptiness is
// judged after trimming.
func (s *Sequencer) BeginLogin(ctx context.Context, currentToken, username, password string) (string, time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		s.report(ctx, Result{Step: StepPassword, Username: username, Reason: ErrInvalidInput})
		return "", time.Time{}, ErrInvalidInput
	}

	admin, errFind := s.principals.FindActiveByUsername(ctx, username)
	if errFind != nil {
		err := fmt.Errorf("%w: find principal: %v", ErrStoreUnavailable, errFind)
		s.report(ctx, Result{Step: StepPassword, Username: username, Reason: err})
		return "", time.Time{}, err
	}
	if admin == nil || !admin.Active {
		// Keep the miss path as slow as a mismatch.
		security.CheckPassword(dummyPasswordHash(), password)
		s.report(ctx, Result{Step: StepPassword, Username: username, Reason: ErrPrincipalInactive})
		return "", time.Time{}, ErrAuthenticationFailed
	}
	if !security.CheckPassword(admin.Password, password) {
		s.report(ctx, Result{Step: StepPassword, Username: username, PrincipalID: admin.ID, Reason: errInvalidPassword})
		return "", time.Time{}, ErrAuthenticationFailed
	}

	next := PendingSecondFactor(admin.ID, s.now(), s.pendingTTL)
	token, errIssue := s.replace(ctx, s.sessionIDFromToken(currentToken), next)
	if errIssue != nil {
		s.report(ctx, Result{Step: StepPassword, Username: username, PrincipalID: admin.ID, Reason: errIssue})
		return "", time.Time{}, errIssue
	}
	s.report(ctx, Result{Step: StepPassword, Username: username, PrincipalID: admin.ID, Success: true})
	return token, next.ExpiresAt, nil
}

// CompleteLogin checks the TOTP code for a pending session and issues an authenticated token
// with its absolute expiry. Every rejection other than empty input or a store failure resets
// the session to anonymous.
func (s *Sequencer) CompleteLogin(ctx context.Context, pendingToken, code string) (string, time.Time, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		s.report(ctx, Result{Step: StepSecondFactor, Reason: ErrInvalidInput})
		return "", time.Time{}, ErrInvalidInput
	}

	sessionID := s.sessionIDFromToken(pendingToken)
	if sessionID == "" {
		s.report(ctx, Result{Step: StepSecondFactor, Reason: errNoPendingState})
		return "", time.Time{}, ErrAuthenticationFailed
	}

	now := s.now()
	state, ok, errGet := s.sessions.Get(ctx, sessionID)
	if errGet != nil {
		err := fmt.Errorf("%w: load session: %v", ErrStoreUnavailable, errGet)
		s.report(ctx, Result{Step: StepSecondFactor, Reason: err})
		return "", time.Time{}, err
	}
	if !ok || state.Phase != PhasePendingSecondFactor || !state.Valid() || state.Expired(now) {
		return "", time.Time{}, s.reject(ctx, sessionID, Result{Step: StepSecondFactor, PrincipalID: state.PrincipalID, Reason: errNoPendingState})
	}

	admin, errFind := s.principals.FindActiveByID(ctx, state.PrincipalID)
	if errFind != nil {
		err := fmt.Errorf("%w: find principal: %v", ErrStoreUnavailable, errFind)
		s.report(ctx, Result{Step: StepSecondFactor, PrincipalID: state.PrincipalID, Reason: err})
		return "", time.Time{}, err
	}
	if admin == nil || !admin.Active {
		return "", time.Time{}, s.reject(ctx, sessionID, Result{Step: StepSecondFactor, PrincipalID: state.PrincipalID, Reason: ErrPrincipalInactive})
	}
	if !security.ValidateTOTP(code, admin.TOTPSecret, now) {
		return "", time.Time{}, s.reject(ctx, sessionID, Result{Step: StepSecondFactor, Username: admin.Username, PrincipalID: admin.ID, Reason: errInvalidCode})
	}

	next := Authenticated(admin.ID, now, s.sessionTTL)
	token, errIssue := s.replace(ctx, sessionID, next)
	if errIssue != nil {
		s.report(ctx, Result{Step: StepSecondFactor, Username: admin.Username, PrincipalID: admin.ID, Reason: errIssue})
		return "", time.Time{}, errIssue
	}
	s.report(ctx, Result{Step: StepSecondFactor, Username: admin.Username, PrincipalID: admin.ID, Success: true})
	return token, next.ExpiresAt, nil
}

// Current returns the state behind token. Unknown, forged and expired tokens yield Anonymous.
// The error is non-nil only when the session store fails.
func (s *Sequencer) Current(ctx context.Context, token string) (State, error) {
	sessionID := s.sessionIDFromToken(token)
	if sessionID == "" {
		return Anonymous(), nil
	}
	state, ok, errGet := s.sessions.Get(ctx, sessionID)
	if errGet != nil {
		return Anonymous(), fmt.Errorf("%w: load session: %v", ErrStoreUnavailable, errGet)
	}
	if !ok || !state.Valid() || state.Expired(s.now()) {
		return Anonymous(), nil
	}
	return state, nil
}

// CheckAuthenticated reports whether token carries an unexpired authenticated session.
func (s *Sequencer) CheckAuthenticated(ctx context.Context, token string) bool {
	state, err := s.Current(ctx, token)
	if err != nil {
		log.WithError(err).Warn("auth: session lookup failed")
		return false
	}
	return state.IsAuthenticated(s.now())
}

// Logout discards the session behind token, whatever its phase.
func (s *Sequencer) Logout(ctx context.Context, token string) error {
	sessionID := s.sessionIDFromToken(token)
	if sessionID == "" {
		return nil
	}
	if errDelete := s.sessions.Delete(ctx, sessionID); errDelete != nil {
		err := fmt.Errorf("%w: delete session: %v", ErrStoreUnavailable, errDelete)
		s.report(ctx, Result{Step: StepLogout, Reason: err})
		return err
	}
	s.report(ctx, Result{Step: StepLogout, Success: true})
	return nil
}

// replace stores next under a fresh session id, removes oldID and returns the signed token.
// On failure the previous session is left as it was.
func (s *Sequencer) replace(ctx context.Context, oldID string, next State) (string, error) {
	newID, errID := s.newID()
	if errID != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, errID)
	}
	token, errSign := s.tokens.Sign(newID, next.ExpiresAt)
	if errSign != nil {
		return "", fmt.Errorf("%w: sign token: %v", ErrStoreUnavailable, errSign)
	}
	if errPut := s.sessions.Put(ctx, newID, next); errPut != nil {
		return "", fmt.Errorf("%w: store session: %v", ErrStoreUnavailable, errPut)
	}
	if oldID == "" {
		return token, nil
	}
	if errDelete := s.sessions.Delete(ctx, oldID); errDelete != nil {
		if errRollback := s.sessions.Delete(ctx, newID); errRollback != nil {
			log.WithError(errRollback).Warn("auth: failed to roll back new session")
		}
		return "", fmt.Errorf("%w: delete previous session: %v", ErrStoreUnavailable, errDelete)
	}
	return token, nil
}

// reject resets sessionID to anonymous and reports the failure.
func (s *Sequencer) reject(ctx context.Context, sessionID string, result Result) error {
	if errDelete := s.sessions.Delete(ctx, sessionID); errDelete != nil {
		err := fmt.Errorf("%w: delete session: %v", ErrStoreUnavailable, errDelete)
		result.Reason = errors.Join(result.Reason, err)
		s.report(ctx, result)
		return err
	}
	s.report(ctx, result)
	return ErrAuthenticationFailed
}

// sessionIDFromToken returns the session id carried by token, or "" when it does not verify.
func (s *Sequencer) sessionIDFromToken(token string) string {
	if strings.TrimSpace(token) == "" {
		return ""
	}
	sessionID, errParse := s.tokens.Parse(token)
	if errParse != nil {
		return ""
	}
	return sessionID
}

func (s *Sequencer) report(ctx context.Context, result Result) {
	s.hook.OnResult(ctx, result)
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// dummyPasswordHash returns a bcrypt hash used to equalize timing on unknown usernames.
func dummyPasswordHash() string {
	dummyHashOnce.Do(func() {
		hash, err := security.HashPassword("stockd-unknown-principal")
		if err != nil {
			log.WithError(err).Warn("auth: failed to prepare dummy hash")
			return
		}
		dummyHash = hash
	})
	return dummyHash
}
