package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shellward/shellward/internal/ai"
	"github.com/shellward/shellward/internal/ai/openrouter"
	"github.com/shellward/shellward/internal/audit"
	"github.com/shellward/shellward/internal/core"
	"github.com/shellward/shellward/internal/core/security"
	"github.com/shellward/shellward/internal/files"
	"github.com/shellward/shellward/internal/storage"
	"github.com/shellward/shellward/internal/terminal"
	"github.com/shellward/shellward/internal/vault"
)

// App owns the interactive session: authentication, the builtin command
// table, and the generation pipeline. Everything it touches is injected
// so the loop is drivable from tests with scripted input.
type App struct {
	cfg      *storage.Config
	prompter *terminal.Prompter
	out      io.Writer

	store   *vault.Store
	record  *vault.Record
	session *core.Session

	client   *openrouter.Client
	pipeline *core.Pipeline
	log      *audit.Logger
	logPath  string

	validator  *security.Validator
	classifier *security.Classifier
	executor   *core.Executor

	// stateOps is sandboxed to the config dir (credentials, logs);
	// siteOps to the working dir (portfolio output).
	stateOps *files.Ops
	siteOps  *files.Ops

	// newClient builds the generation client; swapped in tests.
	newClient func(apiKey string) *openrouter.Client

	startDryRun  bool
	startPrivacy bool
	quit         bool
}

func newApp(cfg *storage.Config) (*App, error) {
	credPath, err := storage.CredentialPath()
	if err != nil {
		return nil, err
	}
	logPath, err := storage.ActivityLogPath()
	if err != nil {
		return nil, err
	}
	logger, err := audit.NewLogger(logPath, int64(cfg.Log.MaxSizeMB)*1024*1024)
	if err != nil {
		return nil, err
	}
	configDir, err := storage.GetConfigDir()
	if err != nil {
		return nil, err
	}
	stateOps, err := files.NewOps(configDir)
	if err != nil {
		return nil, err
	}
	siteOps, err := files.NewOps("")
	if err != nil {
		return nil, err
	}

	validator := security.NewValidator(&cfg.Security)
	a := &App{
		cfg:          cfg,
		prompter:     terminal.NewPrompter(nil, nil),
		out:          os.Stdout,
		store:        vault.NewStore(credPath),
		log:          logger,
		logPath:      logPath,
		validator:    validator,
		classifier:   security.NewClassifier(validator),
		executor:     core.NewExecutor(time.Duration(cfg.Execution.Timeout) * time.Second),
		stateOps:     stateOps,
		siteOps:      siteOps,
		startDryRun:  flagDryRun,
		startPrivacy: flagPrivacy,
	}
	a.newClient = func(apiKey string) *openrouter.Client {
		return openrouter.NewClient(apiKey, cfg.AI.BaseURL, time.Duration(cfg.AI.Timeout)*time.Second)
	}
	return a, nil
}

// Close releases the audit log.
func (a *App) Close() error {
	return a.log.Close()
}

// Run authenticates and then drives the interactive loop until exit,
// EOF, or a reset that requires a restart.
func (a *App) Run() error {
	a.banner()

	if err := a.authenticate(); err != nil {
		return err
	}
	a.session.DryRun = a.startDryRun
	a.session.Privacy = a.startPrivacy
	a.rebuildClient()
	a.pipeline = core.NewPipeline(
		a.validator,
		a.classifier,
		a.prompter,
		&passwordReauth{app: a},
		a.executor,
		a.log,
	)

	fmt.Fprintln(a.out, terminal.StyleSuccess.Render("Authentication successful. Type 'help' for options."))

	for !a.quit {
		input, err := a.prompter.ReadLine(terminal.StyleBanner.Render("\nYou> "))
		if err != nil {
			if errors.Is(err, terminal.ErrInterrupted) {
				fmt.Fprintln(a.out, "\nShutting down...")
				break
			}
			return err
		}
		if input == "" {
			continue
		}
		a.dispatch(context.Background(), input)
	}

	fmt.Fprintln(a.out, terminal.StyleWarn.Render("\nGraceful shutdown complete."))
	a.printStatus()
	return nil
}

func (a *App) banner() {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(a.out, terminal.StyleBanner.Render(line))
	fmt.Fprintln(a.out, terminal.StyleBanner.Render(" shellward - natural-language shell assistant"))
	fmt.Fprintln(a.out, terminal.StyleBanner.Render(line))
}

// dispatch routes one non-empty input line: builtin table first,
// everything else goes to the generation pipeline.
func (a *App) dispatch(ctx context.Context, input string) {
	a.session.Stats.TotalInputs++
	a.session.History = append(a.session.History, input)

	lowered := strings.ToLower(strings.TrimSpace(input))

	b, args := lookupBuiltin(lowered)
	if a.session.Locked {
		if b == nil || !b.whenLocked {
			fmt.Fprintln(a.out, terminal.StyleWarn.Render("Session is locked. Type 'unlock' or 'help'."))
			return
		}
	}
	if b != nil {
		b.run(a, args)
		return
	}
	a.generate(ctx, input)
}

// generate sends the input to the model and feeds the resulting command
// through the safety pipeline.
func (a *App) generate(ctx context.Context, input string) {
	gen, err := a.client.GenerateCommand(ctx, input)
	if err != nil {
		a.session.Stats.APIErrors++
		a.session.Stats.Failed++
		msg := fmt.Sprintf("AI processing error: %v", err)
		fmt.Fprintln(a.out, terminal.StyleDanger.Render(msg))
		if errors.Is(err, ai.ErrInvalidKey) {
			fmt.Fprintln(a.out, terminal.StyleWarn.Render("Stored API key was rejected. Use 'change api key'."))
		}
		a.logEvent(input, "api_error", msg)
		return
	}
	a.session.LastModel = gen.Model

	result := a.pipeline.Handle(ctx, a.session, core.Request{
		Prompt:  input,
		Command: gen.Command,
		Model:   gen.Model,
	})
	a.report(result)
}

func (a *App) report(result *core.Result) {
	switch result.Outcome {
	case core.OutcomeDenied:
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Dangerous command blocked: "+result.Verdict.Explanation))
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Tip: rephrase as read-only/diagnostic, or use 'create portfolio'."))
	case core.OutcomeUserRejected:
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Execution cancelled."))
	case core.OutcomeLocked:
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Too many failed password checks. Session locked."))
	case core.OutcomeAuthFailed:
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Re-authentication failed. Command blocked."))
	case core.OutcomeDryRun:
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Dry run: command was not executed."))
	case core.OutcomeSuccess:
		fmt.Fprintln(a.out, terminal.StyleSuccess.Render("Command executed successfully."))
	case core.OutcomeTimeout:
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Command timed out."))
	default:
		fmt.Fprintln(a.out, terminal.StyleDanger.Render(fmt.Sprintf("Command finished with status: %s", result.Outcome)))
	}
	if result.Exec != nil && result.Exec.Output() != "" {
		fmt.Fprintln(a.out, result.Exec.Output())
	}
}

// rebuildClient recreates the generation client from the session key and
// re-applies the pinned model, if any.
func (a *App) rebuildClient() {
	a.client = a.newClient(a.session.APIKey())
	if a.session.PreferredModel != "" {
		a.client.PreferModel(a.session.PreferredModel)
	}
}

func (a *App) printStatus() {
	s := a.session
	fmt.Fprintln(a.out, terminal.StyleWarn.Render("Session Status"))
	fmt.Fprintf(a.out, "Uptime: %ds\n", int(s.Uptime().Seconds()))
	fmt.Fprintf(a.out, "Total inputs: %d\n", s.Stats.TotalInputs)
	fmt.Fprintf(a.out, "Executed: %d\n", s.Stats.Executed)
	fmt.Fprintf(a.out, "Blocked: %d\n", s.Stats.Blocked)
	fmt.Fprintf(a.out, "Failed: %d\n", s.Stats.Failed)
	fmt.Fprintf(a.out, "API errors: %d\n", s.Stats.APIErrors)
	fmt.Fprintf(a.out, "High-risk prompts: %d\n", s.Stats.HighRisk)
	fmt.Fprintf(a.out, "Dry runs: %d\n", s.Stats.DryRuns)
	fmt.Fprintf(a.out, "History size: %d\n", len(s.History))
	fmt.Fprintf(a.out, "Privacy mode: %s\n", onOff(s.Privacy))
	fmt.Fprintf(a.out, "Dry-run mode: %s\n", onOff(s.DryRun))
	fmt.Fprintf(a.out, "Model preference: %s\n", orAuto(s.PreferredModel))
	fmt.Fprintf(a.out, "Last model used: %s\n", s.LastModel)
	fmt.Fprintf(a.out, "Log file size: %.2f MB\n", float64(a.log.SizeBytes())/(1024*1024))
}

// logEvent records a builtin or account action that bypasses the
// pipeline, honoring privacy mode like any other record.
func (a *App) logEvent(action, outcome, output string) {
	rec := audit.Record{
		Prompt:   action,
		Command:  "N/A",
		RiskTier: security.TierHigh.String(),
		Verdict:  string(security.OutcomeAllow),
		Outcome:  outcome,
		Model:    "none",
		Output:   output,
	}
	if a.session != nil && a.session.Privacy {
		rec = rec.Redacted()
	}
	a.log.Append(rec)
}

// passwordReauth re-verifies the password against the stored record for
// HIGH tier commands. One call is one attempt; the pipeline owns the
// retry and lockout policy.
type passwordReauth struct {
	app *App
}

func (r *passwordReauth) Reauthenticate() (bool, error) {
	a := r.app
	pw, err := a.prompter.ReadPassword(terminal.StyleWarn.Render("High-risk command. Re-enter password: "))
	if err != nil {
		return false, err
	}
	if !vault.Verify(a.record, pw) {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Password incorrect."))
		return false, nil
	}
	return true, nil
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func orAuto(model string) string {
	if model == "" {
		return "AUTO"
	}
	return model
}
