// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// PasswordResetData fills the reset email.
type PasswordResetData struct {
	SiteName  string
	Name      string
	ResetLink string
	ExpiresIn string // e.g. "1 hour"
}

// BuildPasswordResetEmail returns the reset email with text and HTML bodies.
// To is left for the caller.
func BuildPasswordResetEmail(data PasswordResetData) Email {
	return Email{
		Subject:  fmt.Sprintf("Reset your %s password", data.SiteName),
		TextBody: buildResetText(data),
		HTMLBody: buildResetHTML(data),
	}
}

func buildResetText(data PasswordResetData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.Name)
	fmt.Fprintf(&buf, "Someone asked to reset the password for your %s account.\n", data.SiteName)
	buf.WriteString("Use this link to choose a new one:\n")
	buf.WriteString(data.ResetLink + "\n\n")
	fmt.Fprintf(&buf, "The link expires in %s and can be used once.\n", data.ExpiresIn)
	buf.WriteString("If you did not ask for this, ignore this email.\n")
	return buf.String()
}

var resetTmpl = template.Must(template.New("reset").Parse(resetHTMLTemplate))

func buildResetHTML(data PasswordResetData) string {
	var buf bytes.Buffer
	_ = resetTmpl.Execute(&buf, data)
	return buf.String()
}

const resetHTMLTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Password reset</title></head>
<body style="margin:0;padding:24px;font-family:-apple-system,'Segoe UI',Roboto,Arial,sans-serif;background:#f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
    <tr><td align="center">
      <table role="presentation" cellspacing="0" cellpadding="0" style="max-width:480px;background:#fff;border-radius:8px;padding:32px;">
        <tr><td><h1 style="margin:0 0 16px;font-size:22px;color:#4f46e5;">{{.SiteName}}</h1></td></tr>
        <tr><td style="color:#374151;font-size:15px;">
          <p>Hi {{.Name}},</p>
          <p>Someone asked to reset the password for your account.</p>
          <p style="text-align:center;margin:24px 0;">
            <a href="{{.ResetLink}}" style="background:#4f46e5;color:#fff;padding:12px 20px;border-radius:6px;text-decoration:none;">Choose a new password</a>
          </p>
          <p style="font-size:13px;color:#6b7280;">The link expires in {{.ExpiresIn}} and can be used once. If you did not ask for this, ignore this email.</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`
