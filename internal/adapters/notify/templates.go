package notify

import "text/template"

// Plain-text bodies for every notification the service sends. The admin
// variants carry the submitted data; the user variants confirm receipt.

var adminContactTmpl = template.Must(template.New("adminContact").Parse(
	`New contact form submission

Name: {{.FirstName}} {{.LastName}}
Email: {{.Email}}
{{- if .Phone}}
Phone: {{.Phone}}
{{- end}}
Newsletter signup: {{if .SubscribeToNewsletter}}yes{{else}}no{{end}}

{{- if .Message}}

Message:
{{.Message}}
{{- end}}

Submission ID: {{.ID}}
`))

var userContactTmpl = template.Must(template.New("userContact").Parse(
	`Hi {{.FirstName}},

Thank you for reaching out to {{.SiteName}}. We received your message and
will get back to you as soon as possible.

If you did not submit this request, you can ignore this email.

Warmly,
{{.SiteName}}
`))

var adminIntakeTmpl = template.Must(template.New("adminIntake").Parse(
	`New intake form submission

Name: {{.FirstName}} {{.LastName}}
Email: {{.Email}}
{{- if .PhoneDaytime}}
Daytime phone: {{.PhoneDaytime}}
{{- end}}
{{- if .ReasonForVisit.Purpose}}
Reason for visit: {{.ReasonForVisit.Purpose}}
{{- end}}
{{- if .HowDidYouHear.Source}}
Heard about us via: {{.HowDidYouHear.Source}}
{{- end}}

Full details are available in the submissions dashboard.

Submission ID: {{.ID}}
`))

var userIntakeTmpl = template.Must(template.New("userIntake").Parse(
	`Hi {{.FirstName}},

Thank you for completing your intake form with {{.SiteName}}. We look
forward to seeing you. Your therapist will review your information before
your first session.

Warmly,
{{.SiteName}}
`))

var welcomeTmpl = template.Must(template.New("welcome").Parse(
	`Welcome to the {{.SiteName}} newsletter!

You'll occasionally hear from us about lymphatic health, new services, and
clinic news. No spam, ever.

If you'd rather not receive these emails, you can unsubscribe at any time:
{{.BaseURL}}/api/v1/forms/unsubscribe/{{.Email}}
`))

var adminNewsletterTmpl = template.Must(template.New("adminNewsletter").Parse(
	`Newsletter subscription

Email: {{.Email}}
New subscriber: {{if .IsNew}}yes{{else}}no (re-subscribed){{end}}
`))

var unsubscribeTmpl = template.Must(template.New("unsubscribe").Parse(
	`You have been unsubscribed from the {{.SiteName}} newsletter.

We're sorry to see you go. If this was a mistake, you can re-subscribe on
our website at {{.BaseURL}}.
`))
