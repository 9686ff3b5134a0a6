package notify

import (
	"bytes"
	"html/template"
)

var templates = template.Must(template.New("notify").Parse(`
{{define "luna_welcome"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h1>Welcome to FDC Tax!</h1>
<p>Hi {{.Greeting}},</p>
<p>Thank you for choosing FDC Tax! I'm Luna, and I'll be guiding you through your onboarding journey.</p>
<p><strong>What happens next:</strong></p>
<ol>
<li><strong>Document Signing</strong> - You'll receive an engagement letter to sign within 24 hours</li>
<li><strong>ID Verification</strong> - Complete your identity verification</li>
<li><strong>Document Collection</strong> - We'll send you a checklist of documents we need</li>
<li><strong>Tax Return Preparation</strong> - Our team will prepare your return</li>
</ol>
<p><strong>Your Reference ID:</strong> {{.Reference}}</p>
<p><a href="{{.ResumeURL}}">View My Application</a></p>
<p>Warm regards,<br><strong>Luna &amp; the FDC Tax Team</strong></p>
</div>{{end}}

{{define "luna_admin"}}<h2>New Client Onboarding Complete</h2>
<p><strong>Client:</strong> {{.FullName}} ({{.Email}})</p>
<p><strong>Preferred Name:</strong> {{.Greeting}}</p>
<p><strong>Mobile:</strong> {{.Mobile}}</p>
{{if .ABN}}<p><strong>ABN:</strong> {{.ABN}}</p>{{end}}
{{if .TradingName}}<p><strong>Trading Name:</strong> {{.TradingName}}</p>{{end}}
{{if .PreviousAccountant}}<p><strong>Previous accountant:</strong> {{.PreviousAccountant}} - clearance letter required</p>{{end}}
<p><a href="{{.CRMURL}}">View in CRM</a></p>{{end}}

{{define "abn_confirmation"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h1>ABN Registration {{if .Paid}}Submitted{{else}}Guide{{end}}</h1>
<p>Hi {{.Greeting}},</p>
{{if .Paid}}<p>Thank you for choosing FDC Tax to handle your ABN registration!</p>
<ul>
<li>Our team will review your application within 1-2 business days</li>
<li>We'll lodge your ABN application with the ATO</li>
<li>Most ABNs are issued immediately - we'll email you as soon as it's confirmed</li>
{{if .GST}}<li>Your GST registration will be processed at the same time</li>{{end}}
</ul>{{else}}<p>Here's your step-by-step guide to register your ABN:</p>
<ol>
<li>Go to <a href="https://www.abr.gov.au/business-super-funds-702/apply-abn">ABR.gov.au</a></li>
<li>Click "Apply for an ABN"</li>
<li>Select "{{.StructureLabel}}"</li>
<li>Enter your personal details as provided</li>
<li>For industry code, search for "8710 - Family Day Care Services"</li>
<li>Complete the application and submit</li>
</ol>
<p>Most applications are processed instantly!</p>{{end}}
<h3>Your Application Summary</h3>
<table>
<tr><td>Name:</td><td>{{.FullName}}</td></tr>
<tr><td>Structure:</td><td>{{.Structure}}</td></tr>
<tr><td>Trading Name:</td><td>{{if .TradingName}}{{.TradingName}}{{else}}Using personal name{{end}}</td></tr>
<tr><td>GST:</td><td>{{if .GST}}Yes{{else}}No{{end}}</td></tr>
</table>
<p>Best regards,<br/>The FDC Tax Team</p>
</div>{{end}}

{{define "abn_admin"}}<h2>New ABN Registration Request</h2>
<p><strong>Client:</strong> {{.FullName}} ({{.Email}})</p>
<p><strong>Service:</strong> {{if .Paid}}Full Assistance (paid){{else}}Self-Guided{{end}}</p>
<p><strong>Structure:</strong> {{.Structure}}</p>
<p><strong>GST:</strong> {{if .GST}}yes{{else}}no{{end}}</p>
{{if .PaymentReference}}<p><strong>Payment ID:</strong> {{.PaymentReference}}</p>{{end}}
<p><a href="{{.CRMURL}}">View in CRM</a></p>{{end}}
`))

// Template names, also used as metric labels.
const (
	TemplateLunaWelcome     = "luna_welcome"
	TemplateLunaAdmin       = "luna_admin"
	TemplateABNConfirmation = "abn_confirmation"
	TemplateABNAdmin        = "abn_admin"
)

// view is the data every template renders from.
type view struct {
	Greeting           string
	FullName           string
	Email              string
	Mobile             string
	ABN                string
	TradingName        string
	Structure          string
	StructureLabel     string
	GST                bool
	Paid               bool
	PaymentReference   string
	PreviousAccountant string
	Reference          string
	ResumeURL          string
	CRMURL             string
}

func render(name string, v view) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
