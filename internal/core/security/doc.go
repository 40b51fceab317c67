// Package security decides whether a generated shell command may run.
//
// The pattern validator sits between the AI client and the executor,
// rejecting commands before anything else sees them:
//
//   - Chaining and multi-statement detection (&&, ||, ;, |, newlines)
//   - Redirection detection (>, >>, <)
//   - Encoded/obfuscated payload detection (base64/hex blobs, -Enc flags)
//   - Blacklisted executable detection (destructive or irreversible tools)
//
// Commands that pass validation are then assigned a risk tier (LOW, MEDIUM,
// HIGH) which drives the confirmation and re-authentication policy. The
// validator is a denylist plus structural filter, not a shell parser: the
// policy deliberately favors false rejections over false acceptances, and
// any ambiguous input fails closed to DENY.
package security
