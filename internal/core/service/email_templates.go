package service

import (
	"bytes"
	"fmt"
	"html"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

// Stored record fields are already HTML-escaped; templates unescape them so
// html/template can apply its own contextual escaping exactly once.
var templateFuncs = map[string]any{
	"unescape": html.UnescapeString,
	"date":     func(t time.Time) string { return t.Format("2006-01-02") },
}

const layoutHTML = `{{define "layout"}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family:Arial,sans-serif;line-height:1.6;color:#333;max-width:600px;margin:0 auto;padding:20px">
<div style="background-color:#FF2B00;color:#fff;padding:20px;text-align:center;border-radius:8px 8px 0 0">
<h1 style="margin:0">{{.Title}}</h1>
</div>
<div style="background-color:#f9fafb;padding:20px;border:1px solid #e5e7eb;border-top:none;border-radius:0 0 8px 8px">
{{template "body" .Data}}
</div>
<p style="margin-top:20px;text-align:center;color:#6b7280;font-size:12px">PartPulse &middot; automated message, please do not reply.</p>
</body>
</html>{{end}}`

const invitationHTML = `{{define "body"}}
<p>Hello {{unescape .Name}},</p>
<p>{{unescape .InvitedBy}} has invited you to join <strong>PartPulse</strong> as a <strong>{{.Role}}</strong>.</p>
<p><strong>Email:</strong> {{.Email}}<br><strong>Role:</strong> {{.Role}}<br><strong>Expires:</strong> {{.Expires}}</p>
<p><a href="{{.URL}}" style="display:inline-block;padding:12px 24px;background-color:#FF2B00;color:#fff;text-decoration:none;border-radius:6px">Accept invitation</a></p>
<p>If the button does not work, copy this link into your browser:<br>{{.URL}}</p>
{{end}}`

const invitationText = `Hello {{unescape .Name}},

{{unescape .InvitedBy}} has invited you to join PartPulse as a {{.Role}}.

Email:   {{.Email}}
Role:    {{.Role}}
Expires: {{.Expires}}

Accept the invitation: {{.URL}}
`

const resetHTML = `{{define "body"}}
<p>Hello {{unescape .Name}},</p>
<p>We received a request to reset your PartPulse password. The link below is valid for one hour.</p>
<p><a href="{{.URL}}" style="display:inline-block;padding:12px 24px;background-color:#FF2B00;color:#fff;text-decoration:none;border-radius:6px">Reset password</a></p>
<p>If you did not request this, you can ignore this email.</p>
{{end}}`

const resetText = `Hello {{unescape .Name}},

We received a request to reset your PartPulse password. This link is valid for one hour:

{{.URL}}

If you did not request this, you can ignore this email.
`

const transferHTML = `{{define "body"}}
<p>Internal transfer <strong>{{.ID}}</strong> has been submitted.</p>
<p><strong>Date:</strong> {{date .Date}}<br>
<strong>SSID:</strong> {{unescape .SSID}}<br>
<strong>Site:</strong> {{unescape .SiteName}}<br>
<strong>Technician:</strong> {{unescape .TechnicianName}}<br>
<strong>Items:</strong> {{len .Items}}</p>
<table style="width:100%;border-collapse:collapse">
<tr><th align="left">Qty</th><th align="left">Part No</th><th align="left">Description</th></tr>
{{range .Items}}<tr><td>{{.Qty}}</td><td>{{unescape .PartNo}}</td><td>{{unescape .Description}}</td></tr>
{{end}}</table>
<p>The transfer document is attached as a PDF.</p>
{{end}}`

const transferText = `Internal transfer {{.ID}} has been submitted.

Date:       {{date .Date}}
SSID:       {{unescape .SSID}}
Site:       {{unescape .SiteName}}
Technician: {{unescape .TechnicianName}}

Items:
{{range .Items}}  {{.Qty}} x {{unescape .PartNo}} - {{unescape .Description}}
{{end}}
The transfer document is attached as a PDF.
`

const claimHTML = `{{define "body"}}
<p>Warranty claim <strong>{{.ID}}</strong> has been submitted.</p>
<p><strong>Date:</strong> {{date .Date}}<br>
<strong>Chiller:</strong> {{unescape .ChillerModel}} / {{unescape .ChillerSerial}}<br>
<strong>SSID / Job:</strong> {{unescape .SSIDJobNumber}}<br>
<strong>Site:</strong> {{unescape .SiteName}}<br>
<strong>Technician:</strong> {{unescape .TechnicianName}}<br>
<strong>Covered by warranty:</strong> {{if .CoveredByWarranty}}Yes{{else}}No{{end}}</p>
<table style="width:100%;border-collapse:collapse">
<tr><th align="left">Part No</th><th align="left">Qty</th><th align="left">Failed serial</th><th align="left">Replaced serial</th></tr>
{{range .Items}}<tr><td>{{unescape .PartNo}}</td><td>{{.Quantity}}</td><td>{{unescape .FailedPartSerial}}</td><td>{{unescape .ReplacedPartSerial}}</td></tr>
{{end}}</table>
<p>The claim document is attached as a PDF.</p>
{{end}}`

const claimText = `Warranty claim {{.ID}} has been submitted.

Date:                {{date .Date}}
Chiller:             {{unescape .ChillerModel}} / {{unescape .ChillerSerial}}
SSID / Job:          {{unescape .SSIDJobNumber}}
Site:                {{unescape .SiteName}}
Technician:          {{unescape .TechnicianName}}
Covered by warranty: {{if .CoveredByWarranty}}Yes{{else}}No{{end}}

Items:
{{range .Items}}  {{.Quantity}} x {{unescape .PartNo}} (failed {{unescape .FailedPartSerial}}, replaced {{unescape .ReplacedPartSerial}})
{{end}}
The claim document is attached as a PDF.
`

type emailTemplate struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func mustEmailTemplate(name, body, text string) emailTemplate {
	h := htmltemplate.Must(htmltemplate.New(name).Funcs(templateFuncs).Parse(layoutHTML))
	h = htmltemplate.Must(h.Parse(body))
	return emailTemplate{
		html: h,
		text: texttemplate.Must(texttemplate.New(name).Funcs(templateFuncs).Parse(text)),
	}
}

var (
	invitationEmail = mustEmailTemplate("invitation", invitationHTML, invitationText)
	resetEmail      = mustEmailTemplate("reset", resetHTML, resetText)
	transferEmail   = mustEmailTemplate("transfer", transferHTML, transferText)
	claimEmail      = mustEmailTemplate("claim", claimHTML, claimText)
)

// render executes both variants. title is injected into the HTML layout.
func (t emailTemplate) render(title string, data any) (htmlBody, textBody string, err error) {
	var hb, tb bytes.Buffer
	if err := t.html.ExecuteTemplate(&hb, "layout", layoutData{Title: title, Data: data}); err != nil {
		return "", "", fmt.Errorf("render html email: %w", err)
	}
	if err := t.text.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render text email: %w", err)
	}
	return hb.String(), tb.String(), nil
}

type layoutData struct {
	Title string
	Data  any
}
