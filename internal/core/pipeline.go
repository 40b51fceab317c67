package core

import (
	"context"
	"fmt"

	"github.com/shellward/shellward/internal/audit"
	"github.com/shellward/shellward/internal/core/security"
)

// State is a position in the request state machine.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateClassified
	StateAwaitingConfirm
	StateAwaitingReauth
	StateExecuting
	StateRecorded
	StateLocked
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateValidating:
		return "VALIDATING"
	case StateClassified:
		return "CLASSIFIED"
	case StateAwaitingConfirm:
		return "AWAITING_CONFIRM"
	case StateAwaitingReauth:
		return "AWAITING_REAUTH"
	case StateExecuting:
		return "EXECUTING"
	case StateRecorded:
		return "RECORDED"
	case StateLocked:
		return "LOCKED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is the terminal disposition of one request, as recorded.
type Outcome string

const (
	OutcomeDenied         Outcome = "denied"
	OutcomeUserRejected   Outcome = "user_rejected"
	OutcomeAuthFailed     Outcome = "auth_failed"
	OutcomeLocked         Outcome = "locked"
	OutcomeDryRun         Outcome = "dry_run"
	OutcomeSuccess        Outcome = "success"
	OutcomeFailed         Outcome = "failed"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeExecutionError Outcome = "execution_error"
)

// Request is one candidate command entering the pipeline.
type Request struct {
	// Prompt is the natural-language input that produced the command.
	Prompt string
	// Command is the raw generated command text.
	Command string
	// Model identifies the model that generated it.
	Model string
}

// Result reports how a request ended.
type Result struct {
	Outcome        Outcome
	Verdict        security.Verdict
	Classification security.Classification
	Exec           *ExecResult
}

// Confirmer asks the user for explicit approval of a command at a tier.
// There is no timeout auto-confirm; an error counts as a rejection.
type Confirmer interface {
	Confirm(command string, cls security.Classification) (bool, error)
}

// Reauthenticator performs a single fresh password verification.
type Reauthenticator interface {
	Reauthenticate() (bool, error)
}

// Runner executes a validated, confirmed command.
type Runner interface {
	Run(ctx context.Context, command string) *ExecResult
}

// Recorder appends an audit record. Fire-and-forget.
type Recorder interface {
	Append(rec audit.Record)
}

// Pipeline is the validate -> classify -> confirm -> (re-auth) -> execute ->
// record state machine. Collaborators are injected so the safety path is
// testable without a terminal or a live process.
type Pipeline struct {
	validator  *security.Validator
	classifier *security.Classifier
	confirmer  Confirmer
	reauth     Reauthenticator
	runner     Runner
	recorder   Recorder
}

// NewPipeline wires the state machine to its collaborators.
func NewPipeline(
	validator *security.Validator,
	classifier *security.Classifier,
	confirmer Confirmer,
	reauth Reauthenticator,
	runner Runner,
	recorder Recorder,
) *Pipeline {
	return &Pipeline{
		validator:  validator,
		classifier: classifier,
		confirmer:  confirmer,
		reauth:     reauth,
		runner:     runner,
		recorder:   recorder,
	}
}

// Handle drives one request through the state machine. Every request that
// reaches validation ends recorded; a locked session rejects the transition
// before the command reaches the validator.
func (p *Pipeline) Handle(ctx context.Context, sess *Session, req Request) *Result {
	if sess.Locked {
		return &Result{Outcome: OutcomeLocked}
	}

	// VALIDATING
	verdict := p.validator.Validate(req.Command)
	if !verdict.Allowed() {
		sess.Stats.Blocked++
		p.record(sess, req, verdict, security.Classification{Tier: security.TierHigh, Reason: "denied before classification"}, OutcomeDenied, "")
		return &Result{Outcome: OutcomeDenied, Verdict: verdict}
	}

	// CLASSIFIED
	cls := p.classifier.Classify(verdict.Normalized)
	if cls.Tier == security.TierHigh {
		sess.Stats.HighRisk++
	}

	result := &Result{Verdict: verdict, Classification: cls}

	// AWAITING_CONFIRM: explicit affirmative required, anything else rejects.
	approved, err := p.confirmer.Confirm(verdict.Normalized, cls)
	if err != nil || !approved {
		sess.Stats.Blocked++
		result.Outcome = OutcomeUserRejected
		p.record(sess, req, verdict, cls, OutcomeUserRejected, "")
		return result
	}

	// AWAITING_REAUTH: HIGH tier only. A failure keeps the request here;
	// the session-scoped counter locks the whole session at the limit.
	if cls.Tier == security.TierHigh {
		if outcome, ok := p.reauthenticate(sess); !ok {
			sess.Stats.Blocked++
			result.Outcome = outcome
			p.record(sess, req, verdict, cls, outcome, "")
			return result
		}
	}

	// EXECUTING: dry-run short-circuits here and only here, after the full
	// confirmation and re-auth path has been exercised.
	if sess.DryRun {
		sess.Stats.DryRuns++
		result.Outcome = OutcomeDryRun
		p.record(sess, req, verdict, cls, OutcomeDryRun, "dry run: command was not executed")
		return result
	}

	execResult := p.runSafely(ctx, verdict.Normalized)
	result.Exec = execResult

	switch {
	case execResult.CollaboratorErr, execResult.Err != nil && execResult.ExitCode == 0:
		// The runner itself errored rather than the command failing.
		sess.Stats.Failed++
		result.Outcome = OutcomeExecutionError
	case execResult.TimedOut:
		sess.Stats.Failed++
		result.Outcome = OutcomeTimeout
	case execResult.ExitCode == 0:
		sess.Stats.Executed++
		result.Outcome = OutcomeSuccess
	default:
		sess.Stats.Failed++
		result.Outcome = OutcomeFailed
	}

	// RECORDED: always, whatever the exit status.
	p.record(sess, req, verdict, cls, result.Outcome, execResult.Output())
	return result
}

// reauthenticate loops on the fresh password check until success or lockout.
// Any prompt error fails closed.
func (p *Pipeline) reauthenticate(sess *Session) (Outcome, bool) {
	for {
		ok, err := p.reauth.Reauthenticate()
		if err != nil {
			return OutcomeAuthFailed, false
		}
		if ok {
			sess.ResetAuthFailures()
			return "", true
		}
		if locked := sess.RecordAuthFailure(); locked {
			return OutcomeLocked, false
		}
	}
}

// runSafely executes the command, converting a panicking collaborator into
// an execution error instead of an aborted session.
func (p *Pipeline) runSafely(ctx context.Context, command string) (result *ExecResult) {
	defer func() {
		if r := recover(); r != nil {
			result = &ExecResult{
				ExitCode:        1,
				CollaboratorErr: true,
				Err:             fmt.Errorf("executor panic: %v", r),
			}
			result.Stderr = result.Err.Error()
		}
	}()
	return p.runner.Run(ctx, command)
}

// record builds and appends the audit record, applying privacy redaction
// before it leaves the core.
func (p *Pipeline) record(sess *Session, req Request, verdict security.Verdict, cls security.Classification, outcome Outcome, output string) {
	rec := audit.Record{
		Prompt:   req.Prompt,
		Command:  verdict.Normalized,
		RiskTier: cls.Tier.String(),
		Verdict:  string(verdict.Outcome),
		Outcome:  string(outcome),
		Model:    req.Model,
		Output:   output,
	}
	if !verdict.Allowed() {
		rec.Output = verdict.Explanation
	}
	if sess.Privacy {
		rec = rec.Redacted()
	}
	p.recorder.Append(rec)
}
