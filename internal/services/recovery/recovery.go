// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package recovery implements the password-recovery wizard: a four-step
// state machine (email → questions → new password → success) in which each
// forward transition is gated on a successful backend verification.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Step is a state of the recovery wizard.
type Step string

const (
	StepEmail       Step = "email"
	StepQuestions   Step = "questions"
	StepNewPassword Step = "new_password"
	StepSuccess     Step = "success"
)

// flowTTL bounds how long an abandoned recovery attempt is kept.
const flowTTL = 15 * time.Minute

var (
	// ErrNoAccount and ErrNoQuestions are returned by Backend.ResolveAccount.
	// The wizard folds both into one generic message so responses do not
	// reveal whether an email is registered.
	ErrNoAccount   = errors.New("no account for email")
	ErrNoQuestions = errors.New("no security questions configured")

	// ErrInvalidStep is returned when an operation is invoked out of order.
	ErrInvalidStep = errors.New("operation not valid in current step")

	// ErrFlowNotFound is returned for unknown or expired flow IDs.
	ErrFlowNotFound = errors.New("recovery flow not found")

	// ErrBusy is returned when an operation is already in flight on a flow.
	ErrBusy = errors.New("recovery operation already in progress")
)

// User-visible error messages, one per step.
const (
	msgStartFailed      = "We could not start recovery for that email address."
	msgAnswersRequired  = "Please answer every security question."
	msgAnswersIncorrect = "One or more answers are incorrect."
	msgPasswordUpdate   = "The password could not be updated. Please try again."
	msgUnavailable      = "Something went wrong. Please try again."
)

// PolicyError is returned by Backend.UpdateCredential when the new
// credential is rejected for a reason the user can act on, such as a
// password policy violation. The wizard shows Reason verbatim instead
// of the generic update-failure message.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return e.Reason }

// Question is a security question presented during recovery.
type Question struct {
	ID   int64  `json:"id"`
	Text string `json:"question_text"`
}

// Backend is the contract the wizard drives. Implementations verify
// identity and update credentials; the wizard only sequences steps.
type Backend interface {
	// ResolveAccount resolves an email to an account reference and the
	// security questions configured for it. Fails with ErrNoAccount or
	// ErrNoQuestions.
	ResolveAccount(ctx context.Context, email string) (int64, []Question, error)

	// VerifyAnswers checks a full answer set for the account. The bool is
	// all-or-nothing; no per-question results are exposed.
	VerifyAnswers(ctx context.Context, accountID int64, answers map[int64]string) (bool, error)

	// UpdateCredential sets a new password for the account. A *PolicyError
	// return carries a user-visible rejection reason.
	UpdateCredential(ctx context.Context, accountID int64, newPassword string) error
}

// State is a read-only snapshot of a flow, shaped for the dashboard.
type State struct { //nolint:govet // fieldalignment not critical
	Step      Step       `json:"step"`
	Email     string     `json:"email,omitempty"`
	Questions []Question `json:"questions,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Flow is a single recovery attempt. Operations are serialized; a second
// call while one is in flight fails with ErrBusy instead of racing.
// Reset may interrupt an in-flight operation: the generation counter
// makes the stale operation's outcome a no-op instead of letting it
// overwrite the reset flow.
type Flow struct { //nolint:govet // fieldalignment not critical
	mu      sync.Mutex
	busy    bool
	gen     uint64
	backend Backend
	minLen  int

	step      Step
	email     string
	questions []Question
	accountID int64
	errMsg    string
}

func newFlow(backend Backend, minPasswordLength int) *Flow {
	return &Flow{
		backend: backend,
		minLen:  minPasswordLength,
		step:    StepEmail,
	}
}

// State returns a snapshot of the flow. The questions are copied so the
// caller cannot alias the flow's internal state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State{
		Step:      f.step,
		Email:     f.email,
		Questions: copyQuestions(f.questions),
		Error:     f.errMsg,
	}
}

// AccountID returns the resolved account, or 0 before resolution.
func (f *Flow) AccountID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accountID
}

// opState is what begin hands an operation: the generation it started
// under, plus copies of the fields it may read while unlocked.
type opState struct {
	gen       uint64
	accountID int64
	questions []Question
}

// begin acquires the flow for one operation and checks the step guard.
func (f *Flow) begin(want Step) (opState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return opState{}, ErrBusy
	}
	if f.step != want {
		return opState{}, fmt.Errorf("%w: in %q, want %q", ErrInvalidStep, f.step, want)
	}
	f.busy = true
	return opState{
		gen:       f.gen,
		accountID: f.accountID,
		questions: copyQuestions(f.questions),
	}, nil
}

// finish releases the flow, records the user-visible error and, on
// success, advances to the next step. The outcome only applies when the
// flow has not been reset since begin; a stale operation must neither
// advance the step nor leave an error behind.
func (f *Flow) finish(gen uint64, next Step, errMsg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	if f.gen != gen {
		return
	}
	f.errMsg = errMsg
	if errMsg == "" {
		f.step = next
	}
}

// Start resolves the email and fetches the account's security questions.
// On success the flow advances to the questions step; on failure it stays
// on the email step with a generic error that does not reveal whether the
// email is registered.
func (f *Flow) Start(ctx context.Context, email string) error {
	op, err := f.begin(StepEmail)
	if err != nil {
		return err
	}

	if email == "" {
		f.finish(op.gen, StepEmail, msgStartFailed)
		return ErrNoAccount
	}

	accountID, questions, err := f.backend.ResolveAccount(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNoAccount) || errors.Is(err, ErrNoQuestions) {
			f.finish(op.gen, StepEmail, msgStartFailed)
		} else {
			f.finish(op.gen, StepEmail, msgUnavailable)
		}
		return err
	}

	f.mu.Lock()
	f.busy = false
	if f.gen == op.gen {
		f.email = email
		f.accountID = accountID
		f.questions = questions
		f.step = StepQuestions
		f.errMsg = ""
	}
	f.mu.Unlock()
	return nil
}

// VerifyAnswers checks the submitted answers against the backend. Every
// fetched question must have a non-empty answer; failures are reported
// with a single generic message and the flow stays on the questions step.
func (f *Flow) VerifyAnswers(ctx context.Context, answers map[int64]string) error {
	op, err := f.begin(StepQuestions)
	if err != nil {
		return err
	}

	for _, q := range op.questions {
		if answers[q.ID] == "" {
			f.finish(op.gen, StepQuestions, msgAnswersRequired)
			return fmt.Errorf("missing answer for question %d", q.ID)
		}
	}

	ok, err := f.backend.VerifyAnswers(ctx, op.accountID, answers)
	if err != nil {
		f.finish(op.gen, StepQuestions, msgUnavailable)
		return err
	}
	if !ok {
		f.finish(op.gen, StepQuestions, msgAnswersIncorrect)
		return errors.New("security answers did not match")
	}

	f.finish(op.gen, StepNewPassword, "")
	return nil
}

// ChangePassword sets the new password via the backend. Too-short
// passwords are rejected before any backend call; policy rejections from
// the backend surface their reason to the user.
func (f *Flow) ChangePassword(ctx context.Context, newPassword string) error {
	op, err := f.begin(StepNewPassword)
	if err != nil {
		return err
	}

	if len(newPassword) < f.minLen {
		f.finish(op.gen, StepNewPassword, fmt.Sprintf("Password must be at least %d characters long.", f.minLen))
		return fmt.Errorf("password shorter than %d characters", f.minLen)
	}

	if err := f.backend.UpdateCredential(ctx, op.accountID, newPassword); err != nil {
		var policyErr *PolicyError
		if errors.As(err, &policyErr) {
			f.finish(op.gen, StepNewPassword, policyErr.Reason)
		} else {
			f.finish(op.gen, StepNewPassword, msgPasswordUpdate)
		}
		return err
	}

	f.finish(op.gen, StepSuccess, "")
	return nil
}

// Reset clears all fields and returns the flow to the email step,
// regardless of its current state. Bumping the generation invalidates
// any operation still in flight.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.step = StepEmail
	f.email = ""
	f.questions = nil
	f.accountID = 0
	f.errMsg = ""
}

func copyQuestions(questions []Question) []Question {
	if len(questions) == 0 {
		return nil
	}
	out := make([]Question, len(questions))
	copy(out, questions)
	return out
}

// Service hands out recovery flows addressed by opaque IDs and expires
// abandoned ones.
type Service struct { //nolint:govet // fieldalignment not critical
	backend Backend
	minLen  int

	mu    sync.Mutex
	flows map[string]*flowEntry
}

type flowEntry struct {
	flow      *Flow
	expiresAt time.Time
}

// NewService creates a recovery service over the given backend.
func NewService(backend Backend, minPasswordLength int) *Service {
	s := &Service{
		backend: backend,
		minLen:  minPasswordLength,
		flows:   make(map[string]*flowEntry),
	}
	go s.cleanup()
	return s
}

// Begin creates a fresh flow and returns its ID.
func (s *Service) Begin() (string, *Flow) {
	id := uuid.New().String()
	flow := newFlow(s.backend, s.minLen)

	s.mu.Lock()
	s.flows[id] = &flowEntry{flow: flow, expiresAt: time.Now().Add(flowTTL)}
	s.mu.Unlock()

	return id, flow
}

// Get returns the flow for an ID, extending its lifetime.
func (s *Service) Get(id string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.flows[id]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.flows, id)
		return nil, ErrFlowNotFound
	}
	entry.expiresAt = time.Now().Add(flowTTL)
	return entry.flow, nil
}

// End discards a flow, normally after success or abandonment.
func (s *Service) End(id string) {
	s.mu.Lock()
	delete(s.flows, id)
	s.mu.Unlock()
}

func (s *Service) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		s.mu.Lock()
		for id, entry := range s.flows {
			if now.After(entry.expiresAt) {
				delete(s.flows, id)
			}
		}
		s.mu.Unlock()
	}
}
