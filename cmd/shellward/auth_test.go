package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shellward/shellward/internal/portfolio"
	"github.com/shellward/shellward/internal/terminal"
	"github.com/shellward/shellward/internal/vault"
)

// reprompt replaces the app's prompter with a fresh script, keeping the
// same output buffer.
func reprompt(a *App, out *bytes.Buffer, script string) {
	a.prompter = terminal.NewPrompter(strings.NewReader(script), out)
}

func TestLoginSuccess(t *testing.T) {
	a, out := newTestApp(t, "", "")
	reprompt(a, out, testPassword+"\n")

	if err := a.login(); err != nil {
		t.Fatalf("login() error: %v", err)
	}
	if a.session.APIKey() != testAPIKey {
		t.Error("login should unlock the API key")
	}
}

func TestLoginThreeFailuresDenied(t *testing.T) {
	a, out := newTestApp(t, "", "")
	reprompt(a, out, "bad1\nbad2\nbad3\n")

	if err := a.login(); err != errAccessDenied {
		t.Fatalf("login() = %v, want errAccessDenied", err)
	}
}

func TestLoginRetryThenSuccess(t *testing.T) {
	a, out := newTestApp(t, "", "")
	reprompt(a, out, "bad1\n"+testPassword+"\n")

	if err := a.login(); err != nil {
		t.Fatalf("login() error: %v", err)
	}
	if !strings.Contains(out.String(), "Invalid password.") {
		t.Error("failed attempt should be reported")
	}
}

func TestFirstRunSetup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	t.Cleanup(srv.Close)

	a, out := newTestApp(t, "", srv.URL)
	if err := a.store.Erase(); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	a.record = nil
	a.session = nil

	script := testAPIKey + "\n" + testPassword + "\n" + testPassword + "\n"
	reprompt(a, out, script)

	if err := a.authenticate(); err != nil {
		t.Fatalf("authenticate() error: %v", err)
	}
	if !a.store.Exists() {
		t.Error("setup should save the credential record")
	}
	if a.session == nil || a.session.APIKey() != testAPIKey {
		t.Error("setup should start a session holding the key")
	}

	rec, err := a.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	key, err := vault.Unlock(rec, testPassword)
	if err != nil || key != testAPIKey {
		t.Errorf("stored record should unlock with the chosen password, got (%q, %v)", key, err)
	}
}

func TestFirstRunSetupRejectsBadKeyFormat(t *testing.T) {
	a, out := newTestApp(t, "", "")
	if err := a.store.Erase(); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	reprompt(a, out, "not-a-key\nalso-bad\nstill-bad\n")

	if err := a.firstRunSetup(); err != errAccessDenied {
		t.Fatalf("firstRunSetup() = %v, want errAccessDenied", err)
	}
	if !strings.Contains(out.String(), "Invalid key format") {
		t.Error("format failures should be explained")
	}
}

func TestCreatePasswordRejectsShortAndMismatch(t *testing.T) {
	a, out := newTestApp(t, "", "")
	script := "short\n" + // too short, rejected before confirm
		"longenough1\nmismatch111\n" + // confirm mismatch
		"longenough1\nlongenough1\n"
	reprompt(a, out, script)

	pw, err := a.createPassword("Create password: ", "Confirm password: ")
	if err != nil {
		t.Fatalf("createPassword() error: %v", err)
	}
	if pw != "longenough1" {
		t.Errorf("createPassword() = %q", pw)
	}
	if !strings.Contains(out.String(), "Passwords do not match.") {
		t.Error("mismatch should be reported")
	}
}

func TestChangePasswordRotatesRecord(t *testing.T) {
	a, out := newTestApp(t, "", "")
	newPassword := "brand-new-pass-9"
	script := testPassword + "\n" + newPassword + "\n" + newPassword + "\n"
	reprompt(a, out, script)

	a.dispatch(context.Background(), "change password")
	if !strings.Contains(out.String(), "Password updated successfully.") {
		t.Fatalf("rotation did not complete:\n%s", out.String())
	}

	rec, err := a.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := vault.Unlock(rec, testPassword); err == nil {
		t.Error("old password must be rejected after rotation")
	}
	if key, err := vault.Unlock(rec, newPassword); err != nil || key != testAPIKey {
		t.Errorf("new password should unlock the same key, got (%q, %v)", key, err)
	}
}

func TestResetAccountRequiresTypedConfirmation(t *testing.T) {
	a, out := newTestApp(t, "", "")
	reprompt(a, out, testPassword+"\nnope\n")

	a.dispatch(context.Background(), "reset account")
	if !a.store.Exists() {
		t.Error("mistyped confirmation must not erase credentials")
	}
	if a.quit {
		t.Error("cancelled reset should not end the session")
	}
}

func TestResetAccountErasesCredentials(t *testing.T) {
	a, out := newTestApp(t, "", "")
	reprompt(a, out, testPassword+"\nRESET\n")

	a.dispatch(context.Background(), "reset account")
	if a.store.Exists() {
		t.Error("reset should erase the credential record")
	}
	if !a.quit {
		t.Error("reset should end the session")
	}
}

func TestFactoryResetWipesState(t *testing.T) {
	a, out := newTestApp(t, "", "")
	if err := a.siteOps.Mkdir(portfolio.DirName); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := a.siteOps.WriteTextFile(portfolio.DirName+"/index.html", "<html></html>", false); err != nil {
		t.Fatalf("WriteTextFile: %v", err)
	}

	reprompt(a, out, testPassword+"\nFACTORY RESET\n")
	a.dispatch(context.Background(), "factory reset")

	if a.store.Exists() {
		t.Error("factory reset should erase the credential record")
	}
	if nonEmpty, _ := a.siteOps.DirNonEmpty(portfolio.DirName); nonEmpty {
		t.Error("factory reset should remove the portfolio directory")
	}
	if !a.quit {
		t.Error("factory reset should end the session")
	}
}

func TestVerifyPasswordLockoutLocksSession(t *testing.T) {
	a, out := newTestApp(t, "", "")
	reprompt(a, out, "bad1\nbad2\nbad3\n")

	if _, ok := a.verifyPassword("Password: "); ok {
		t.Fatal("wrong passwords must not verify")
	}
	if !a.session.Locked {
		t.Error("three failures should lock the session")
	}
}
