package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shellward/shellward/internal/audit"
	"github.com/shellward/shellward/internal/core"
	"github.com/shellward/shellward/internal/portfolio"
	"github.com/shellward/shellward/internal/storage"
	"github.com/shellward/shellward/internal/terminal"
	"github.com/shellward/shellward/internal/vault"
)

const (
	apiKeyPrefix    = "sk-or-v1-"
	apiKeyMinLength = 20
	maxAuthPrompts  = 3
)

var errAccessDenied = errors.New("access denied")

// authenticate loads the credential record and logs in, or walks the
// first-run setup when no record exists. On success a.record and
// a.session are populated.
func (a *App) authenticate() error {
	rec, err := a.store.Load()
	switch {
	case errors.Is(err, vault.ErrNoRecord):
		return a.firstRunSetup()
	case err != nil:
		return fmt.Errorf("credential record is missing or corrupted: %w", err)
	}
	a.record = rec
	return a.login()
}

// firstRunSetup collects and validates an API key, creates the local
// password, and saves the encrypted record.
func (a *App) firstRunSetup() error {
	fmt.Fprintln(a.out, terminal.StyleWarn.Render("First-time setup detected."))

	apiKey, err := a.promptAPIKey("Enter your OpenRouter API key: ")
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, terminal.StyleBanner.Render("Checking API key..."))
	if err := a.newClient(apiKey).ValidateKey(context.Background()); err != nil {
		return fmt.Errorf("API key validation failed: %w", err)
	}

	password, err := a.createPassword("Create password (min 8 chars): ", "Confirm password: ")
	if err != nil {
		return err
	}

	rec, err := vault.Initialize(password, apiKey)
	if err != nil {
		return err
	}
	if err := a.store.Save(rec); err != nil {
		return err
	}
	a.record = rec
	a.session = core.NewSession(apiKey)
	fmt.Fprintln(a.out, terminal.StyleSuccess.Render("Setup complete. Credentials saved for this user."))
	return nil
}

// login verifies the password against the stored record, unlocking the
// API key on success. Three failures deny access.
func (a *App) login() error {
	for attempt := 0; attempt < maxAuthPrompts; attempt++ {
		pw, err := a.prompter.ReadPassword("Password: ")
		if err != nil {
			return err
		}
		apiKey, err := vault.Unlock(a.record, pw)
		if err == nil {
			a.session = core.NewSession(apiKey)
			return nil
		}
		if errors.Is(err, vault.ErrRecordCorrupt) {
			return err
		}
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Invalid password."))
	}
	return errAccessDenied
}

// promptAPIKey reads and format-checks an API key, allowing three
// attempts before giving up.
func (a *App) promptAPIKey(label string) (string, error) {
	for attempt := 0; attempt < maxAuthPrompts; attempt++ {
		key, err := a.prompter.ReadPassword(label)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(key, apiKeyPrefix) && len(key) >= apiKeyMinLength {
			return key, nil
		}
		fmt.Fprintln(a.out, terminal.StyleDanger.Render(
			fmt.Sprintf("Invalid key format: expected %q prefix and at least %d characters.", apiKeyPrefix, apiKeyMinLength)))
	}
	return "", errAccessDenied
}

// createPassword reads a new password twice and enforces the minimum
// length before returning it.
func (a *App) createPassword(label, confirmLabel string) (string, error) {
	for attempt := 0; attempt < maxAuthPrompts; attempt++ {
		pw, err := a.prompter.ReadPassword(label)
		if err != nil {
			return "", err
		}
		if err := vault.CheckPassword(pw); err != nil {
			fmt.Fprintln(a.out, terminal.StyleDanger.Render(err.Error()))
			continue
		}
		confirm, err := a.prompter.ReadPassword(confirmLabel)
		if err != nil {
			return "", err
		}
		if pw != confirm {
			fmt.Fprintln(a.out, terminal.StyleDanger.Render("Passwords do not match."))
			continue
		}
		return pw, nil
	}
	return "", errors.New("password setup failed")
}

// verifyPassword prompts for the current password and checks it against
// the stored record, allowing three attempts. It returns the verified
// password so callers can reuse it for a rotation.
func (a *App) verifyPassword(label string) (string, bool) {
	for attempt := 0; attempt < maxAuthPrompts; attempt++ {
		pw, err := a.prompter.ReadPassword(label)
		if err != nil {
			return "", false
		}
		if vault.Verify(a.record, pw) {
			a.session.ResetAuthFailures()
			return pw, true
		}
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Invalid password."))
		if a.session.RecordAuthFailure() {
			fmt.Fprintln(a.out, terminal.StyleDanger.Render("Too many failed password checks. Session locked."))
			return "", false
		}
	}
	return "", false
}

func runChangeAPIKey(a *App, _ string) {
	fmt.Fprintln(a.out, terminal.StyleWarn.Render("Change API key requested."))
	password, ok := a.verifyPassword("Enter current password to change API key: ")
	if !ok {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Password verification failed."))
		a.logEvent("change api key", "account_change_denied", "Password verification failed")
		return
	}

	newKey, err := a.promptAPIKey("Enter new OpenRouter API key: ")
	if err != nil {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("API key update cancelled."))
		return
	}

	fmt.Fprintln(a.out, terminal.StyleBanner.Render("Validating new API key..."))
	if err := a.newClient(newKey).ValidateKey(context.Background()); err != nil {
		msg := fmt.Sprintf("API key validation failed: %v", err)
		fmt.Fprintln(a.out, terminal.StyleDanger.Render(msg))
		a.logEvent("change api key", "account_change_failed", msg)
		return
	}

	rec, err := vault.RotateAPIKey(a.record, password, newKey)
	if err != nil {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render(fmt.Sprintf("Key rotation failed: %v", err)))
		return
	}
	if err := a.store.Save(rec); err != nil {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render(fmt.Sprintf("Saving credentials failed: %v", err)))
		return
	}
	a.record = rec
	a.session.SetAPIKey(newKey)
	a.rebuildClient()
	fmt.Fprintln(a.out, terminal.StyleSuccess.Render("API key updated successfully."))
	a.logEvent("change api key", "account_change_success", "API key updated successfully")
}

func runChangePassword(a *App, _ string) {
	fmt.Fprintln(a.out, terminal.StyleWarn.Render("Change password requested."))
	current, ok := a.verifyPassword("Enter current password: ")
	if !ok {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Current password verification failed."))
		a.logEvent("change password", "account_change_denied", "Current password verification failed")
		return
	}

	newPassword, err := a.createPassword("Create new password: ", "Confirm new password: ")
	if err != nil {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Password update cancelled."))
		return
	}

	rec, err := vault.Rotate(a.record, current, newPassword)
	if err != nil {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render(fmt.Sprintf("Password rotation failed: %v", err)))
		return
	}
	if err := a.store.Save(rec); err != nil {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render(fmt.Sprintf("Saving credentials failed: %v", err)))
		return
	}
	a.record = rec
	fmt.Fprintln(a.out, terminal.StyleSuccess.Render("Password updated successfully."))
	a.logEvent("change password", "account_change_success", "Password updated successfully")
}

func runResetAccount(a *App, _ string) {
	fmt.Fprintln(a.out, terminal.StyleDanger.Render("WARNING: This will delete local credentials."))
	if _, ok := a.verifyPassword("Enter password to reset account: "); !ok {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Password verification failed."))
		return
	}
	confirm, err := a.prompter.ReadLine(terminal.StyleWarn.Render("Type RESET to confirm: "))
	if err != nil || confirm != "RESET" {
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Cancelled."))
		return
	}
	if err := a.store.Erase(); err != nil {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render(fmt.Sprintf("Erase failed: %v", err)))
		return
	}
	a.logEvent("reset account", "account_reset", "Deleted "+storage.CredentialFileName)
	a.session.Lock()
	a.quit = true
	fmt.Fprintln(a.out, terminal.StyleWarn.Render("Account reset complete. Restart shellward to set up again."))
}

func runFactoryReset(a *App, _ string) {
	fmt.Fprintln(a.out, terminal.StyleDanger.Render(
		"WARNING: Factory reset will delete the credential record, activity logs, and ./portfolio."))
	if _, ok := a.verifyPassword("Enter password to factory reset: "); !ok {
		fmt.Fprintln(a.out, terminal.StyleDanger.Render("Password verification failed."))
		return
	}
	confirm, err := a.prompter.ReadLine(terminal.StyleWarn.Render("Type FACTORY RESET to confirm: "))
	if err != nil || confirm != "FACTORY RESET" {
		fmt.Fprintln(a.out, terminal.StyleWarn.Render("Cancelled."))
		return
	}

	deleted, skipped := a.factoryReset()
	a.logEvent("factory reset", "factory_reset", fmt.Sprintf("Deleted=%d Skipped=%d", deleted, skipped))
	a.session.Lock()
	a.quit = true
	fmt.Fprintln(a.out, terminal.StyleWarn.Render("Factory reset complete. Restart shellward for a fresh first-run setup."))
}

// factoryReset wipes local state: the credential record, the activity
// log with its rotations, and the generated portfolio directory.
func (a *App) factoryReset() (deleted, skipped int) {
	remove := func(err error) {
		if err != nil {
			skipped++
			return
		}
		deleted++
	}

	remove(a.store.Erase())

	// The logger holds the file open; release it before deleting.
	if err := a.log.Close(); err == nil {
		logs, err := a.stateOps.Glob(storage.ActivityLogFileName + "*")
		if err == nil {
			for _, name := range logs {
				remove(a.stateOps.RemoveFile(name))
			}
		}
	}

	remove(a.siteOps.RemoveDir(portfolio.DirName))

	// Reopen a fresh log so the reset itself still gets recorded.
	if logger, err := audit.NewLogger(a.logPath, int64(a.cfg.Log.MaxSizeMB)*1024*1024); err == nil {
		a.log = logger
	}
	return deleted, skipped
}
