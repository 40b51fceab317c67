package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shellward/shellward/internal/portfolio"
	"github.com/shellward/shellward/internal/terminal"
	"github.com/shellward/shellward/internal/vault"
)

const helpText = `Builtin commands:
  help                 Show this message
  history              Show session command history
  clear history        Clear session history
  status               Show session and system status

  account              Show account options
  change api key       Change the stored API key
  change password      Change the login password
  reset account        Delete local credentials (requires password + RESET)
  factory reset        Wipe credentials, logs, and generated portfolio

  models               Show allowed models and last used
  model status         Show model preference
  model auto           Reset model preference to AUTO
  model set <n|name>   Pin a preferred model

  privacy on/off       Redact prompts/commands/output in logs
  dryrun on/off        Preview only; do not execute commands

  doctor               Health check (profile + API key validation)
  lock                 Lock this session (requires unlock)
  unlock               Unlock session with password

  create portfolio     Guided portfolio website generator into ./portfolio

  exit / quit          Graceful shutdown

All other input is sent to the model for command generation.`

const accountHelp = `Account commands:
  change api key       Verify password, validate new key online, then save
  change password      Verify current password, then set a new password
  reset account        Delete local credentials
  factory reset        Wipe credentials, logs, and generated portfolio`

// builtin is one entry in the closed command table. Every handler has
// the same signature; names and aliases are matched on the lowered
// input, and takesArgs entries also match on their first word.
type builtin struct {
	name       string
	aliases    []string
	takesArgs  bool
	whenLocked bool
	run        func(a *App, args string)
}

var builtins = []builtin{
	{name: "help", whenLocked: true, run: func(a *App, _ string) {
		fmt.Fprintln(a.out, helpText)
	}},
	{name: "history", run: func(a *App, _ string) {
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Session History"))
		for i, item := range a.session.History {
			fmt.Fprintf(a.out, "%d. %s\n", i+1, item)
		}
	}},
	{name: "clear history", aliases: []string{"clear"}, run: runClearHistory},
	{name: "status", whenLocked: true, run: func(a *App, _ string) {
		a.printStatus()
	}},
	{name: "account", run: func(a *App, _ string) {
		fmt.Fprintln(a.out, accountHelp)
	}},
	{name: "change api key", aliases: []string{"change key", "update api key"}, run: runChangeAPIKey},
	{name: "change password", aliases: []string{"update password"}, run: runChangePassword},
	{name: "reset account", aliases: []string{"reset"}, run: runResetAccount},
	{name: "factory reset", aliases: []string{"fresh start", "reset program"}, run: runFactoryReset},
	{name: "models", run: runModels},
	{name: "model", takesArgs: true, run: runModel},
	{name: "privacy", takesArgs: true, run: runPrivacy},
	{name: "dryrun", takesArgs: true, run: runDryRun},
	{name: "doctor", run: runDoctor},
	{name: "lock", run: func(a *App, _ string) {
		a.session.Lock()
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Session locked. Type 'unlock' to continue."))
	}},
	{name: "unlock", whenLocked: true, run: runUnlock},
	{name: "create portfolio", run: runCreatePortfolio},
	{name: "exit", aliases: []string{"quit"}, whenLocked: true, run: func(a *App, _ string) {
		a.quit = true
	}},
}

// lookupBuiltin resolves a lowered input line against the table: exact
// name or alias first, then first-word match for entries taking args.
func lookupBuiltin(lowered string) (*builtin, string) {
	for i := range builtins {
		b := &builtins[i]
		if lowered == b.name {
			return b, ""
		}
		for _, alias := range b.aliases {
			if lowered == alias {
				return b, ""
			}
		}
	}
	first, rest, _ := strings.Cut(lowered, " ")
	for i := range builtins {
		b := &builtins[i]
		if b.takesArgs && first == b.name {
			return b, strings.TrimSpace(rest)
		}
	}
	return nil, ""
}

func runClearHistory(a *App, _ string) {
	confirm, err := a.prompter.ReadLine(terminal.StyleWarn.Render("Clear session history? (Y/N): "))
	if err != nil {
		return
	}
	switch strings.ToLower(confirm) {
	case "y", "yes":
		a.session.History = nil
		fmt.Fprintln(a.out, terminal.StyleSuccess.Render("History cleared."))
	default:
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Cancelled."))
	}
}

func runModels(a *App, _ string) {
	fmt.Fprintln(a.out, terminal.StyleBanner.Render("Allowed models:"))
	for _, name := range a.client.Models() {
		fmt.Fprintf(a.out, "- %s\n", name)
	}
	fmt.Fprintf(a.out, "Preferred: %s\n", orAuto(a.session.PreferredModel))
	fmt.Fprintf(a.out, "Last used: %s\n", a.session.LastModel)
}

func runModel(a *App, args string) {
	sub, rest, _ := strings.Cut(args, " ")
	switch sub {
	case "", "status", "show":
		fmt.Fprintf(a.out, "Model preference: %s\n", orAuto(a.session.PreferredModel))
		fmt.Fprintln(a.out, terminal.StyleBanner.Render("Available:"))
		for i, name := range a.client.Models() {
			fmt.Fprintf(a.out, "%d. %s\n", i+1, name)
		}
	case "auto":
		a.session.PreferredModel = ""
		a.rebuildClient()
		fmt.Fprintln(a.out, terminal.StyleSuccess.Render("Model preference set to AUTO."))
	case "set":
		choice := strings.TrimSpace(rest)
		if choice == "" {
			fmt.Fprintln(a.out, terminal.StyleWarn.Render("Usage: model status | model auto | model set <number|name>"))
			return
		}
		selected := selectModel(a.client.Models(), choice)
		if selected == "" {
			fmt.Fprintln(a.out, terminal.StyleDanger.Render("Invalid model selection. Use 'models' to list."))
			return
		}
		a.session.PreferredModel = selected
		a.rebuildClient()
		fmt.Fprintln(a.out, terminal.StyleSuccess.Render("Preferred model set: "+selected))
	default:
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Usage: model status | model auto | model set <number|name>"))
	}
}

// selectModel resolves a 1-based index or a case-insensitive substring.
func selectModel(models []string, choice string) string {
	if n, err := strconv.Atoi(choice); err == nil {
		if n >= 1 && n <= len(models) {
			return models[n-1]
		}
		return ""
	}
	for _, name := range models {
		if strings.Contains(strings.ToLower(name), strings.ToLower(choice)) {
			return name
		}
	}
	return ""
}

func runPrivacy(a *App, args string) {
	switch args {
	case "on", "enable", "true":
		a.session.Privacy = true
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Privacy mode ON: logs will be redacted."))
	case "off", "disable", "false":
		a.session.Privacy = false
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Privacy mode OFF: full logs enabled."))
	default:
		fmt.Fprintf(a.out, "Privacy mode: %s\n", onOff(a.session.Privacy))
	}
}

func runDryRun(a *App, args string) {
	switch args {
	case "on", "enable", "true":
		a.session.DryRun = true
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Dry-run ON: commands will NOT be executed."))
	case "off", "disable", "false":
		a.session.DryRun = false
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Dry-run OFF: normal execution enabled."))
	default:
		fmt.Fprintf(a.out, "Dry-run: %s\n", onOff(a.session.DryRun))
	}
}

func runDoctor(a *App, _ string) {
	fmt.Fprintln(a.out, terminal.StyleBanner.Render("shellward doctor"))

	profile := "OK"
	if _, err := a.store.Load(); err != nil {
		profile = "MISSING/CORRUPT"
	}
	fmt.Fprintf(a.out, "Credential record: %s\n", profile)
	fmt.Fprintf(a.out, "Log size: %.2f MB\n", float64(a.log.SizeBytes())/(1024*1024))

	fmt.Fprintln(a.out, "Testing API key...")
	if err := a.client.ValidateKey(context.Background()); err != nil {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render(fmt.Sprintf("API key: FAILED (%v)", err)))
		return
	}
	fmt.Fprintln(a.out, terminal.StyleSuccess.Render("API key: OK"))
}

func runUnlock(a *App, _ string) {
	if !a.session.Locked {
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Session is already unlocked."))
		return
	}
	pw, err := a.prompter.ReadPassword("Enter password to unlock: ")
	if err != nil {
		return
	}
	apiKey, err := vault.Unlock(a.record, pw)
	if err != nil {
		if a.session.RecordAuthFailure() {
			fmt.Fprintln(a.out, terminal.StyleDanger.Render("Too many failed attempts."))
		}
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Unlock failed."))
		return
	}
	a.session.Unlock(apiKey)
	a.rebuildClient()
	fmt.Fprintln(a.out, terminal.StyleSuccess.Render("Unlocked."))
}

func runCreatePortfolio(a *App, _ string) {
	fmt.Fprintln(a.out, terminal.StyleBanner.Render("Portfolio Generator"))
	fmt.Fprintln(a.out, "This will create a simple static portfolio in ./portfolio")

	nonEmpty, err := a.siteOps.DirNonEmpty(portfolio.DirName)
	if err != nil {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render(fmt.Sprintf("Portfolio check failed: %v", err)))
		return
	}
	if nonEmpty {
		confirm, err := a.prompter.ReadLine(terminal.StyleWarn.Render("portfolio folder is not empty. Overwrite files? (Y/N): "))
		if err != nil {
			return
		}
		if lc := strings.ToLower(confirm); lc != "y" && lc != "yes" {
			fmt.Fprintln(a.out, terminal.StyleWarn.Render("Cancelled."))
			return
		}
	}

	site := portfolio.Site{
		Name:    a.ask("Your name", "Your Name"),
		Title:   a.ask("Title (e.g., Backend Engineer)", "Backend Engineer"),
		Tagline: a.ask("Short tagline", "I build secure, reliable systems."),
		Email:   a.ask("Contact email", ""),
		Primary: a.ask("Primary color (hex)", "#0B3D91"),
	}
	for i := 1; i <= 5; i++ {
		p := a.ask(fmt.Sprintf("Project %d (leave empty to stop)", i), "")
		if p == "" {
			break
		}
		site.Projects = append(site.Projects, p)
	}

	if err := portfolio.Generate(a.siteOps, site); err != nil {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render(fmt.Sprintf("Portfolio creation failed: %v", err)))
		return
	}
	fmt.Fprintln(a.out, terminal.StyleSuccess.Render("Portfolio created in ./portfolio"))
	a.logEvent("create portfolio", "portfolio_created", "Created portfolio files in ./portfolio")
}

// ask prompts with an optional default shown in brackets.
func (a *App) ask(label, fallback string) string {
	prompt := label
	if fallback != "" {
		prompt += fmt.Sprintf(" [%s]", fallback)
	}
	value, err := a.prompter.ReadLine(prompt + ": ")
	if err != nil || value == "" {
		return fallback
	}
	return value
}
