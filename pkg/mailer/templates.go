package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// TemplateWelcome greets a freshly registered user.
const TemplateWelcome = "welcome"

var welcomeHTML = template.Must(template.New(TemplateWelcome).Parse(`
<html>
  <body style="font-family: sans-serif; color: #1f2937;">
    <h2>Welcome to {{.AppName}}, {{.Name}}!</h2>
    <p>Your account is ready. Create your first account and start tracking
    your transactions.</p>
    <p style="color:#6b7280;font-size:12px">If you did not sign up, you can ignore this email.</p>
  </body>
</html>`))

// Render produces subject, text and html bodies for a template job.
func Render(job *EmailJob) (subject, text, html string, err error) {
	switch job.Template {
	case TemplateWelcome:
		var buf bytes.Buffer
		if err = welcomeHTML.Execute(&buf, map[string]any{
			"AppName": job.Data["AppName"],
			"Name":    job.Data["Name"],
		}); err != nil {
			return "", "", "", err
		}
		subject = "Welcome aboard"
		text = fmt.Sprintf("Welcome, %v! Your account is ready.", job.Data["Name"])
		return subject, text, buf.String(), nil
	default:
		return job.Subject, job.Text, job.HTML, nil
	}
}
