package notify

import (
	"context"
	"log/slog"
	"strings"

	"fdctax/internal/onboarding/flow"
	"fdctax/internal/onboarding/models"
	"fdctax/internal/platform/metrics"
	"fdctax/pkg/email"
)

// Config addresses the outbound mail.
type Config struct {
	FromEmail  string
	FromName   string
	AdminEmail string
	BaseURL    string
}

// Submission is what the notifier needs to know about a completed onboarding.
type Submission struct {
	Flow        string
	ClientID    string
	ResumeToken string
	Record      map[string]any
}

// Notifier renders and sends the emails that follow a submission. Delivery
// failures are logged and counted, never returned.
type Notifier struct {
	mailer  Mailer
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Notifier)

func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Notifier) {
		n.metrics = m
	}
}

func New(mailer Mailer, cfg Config, opts ...Option) *Notifier {
	n := &Notifier{
		mailer: mailer,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifySubmitted emails the client and the staff inbox.
func (n *Notifier) NotifySubmitted(ctx context.Context, sub Submission) {
	rec := models.Record(sub.Record)
	switch sub.Flow {
	case flow.FlowLuna:
		v := n.lunaView(rec, sub)
		n.sendToClient(ctx, TemplateLunaWelcome, rec.Text("email"), "Welcome to FDC Tax!", v)
		n.sendToAdmin(ctx, TemplateLunaAdmin, "New Luna Onboarding: "+strings.TrimSpace(v.Greeting+" "+rec.Text("last_name")), v)
	case flow.FlowABNAssistance:
		v := n.abnView(rec, sub)
		subject := "Your ABN Registration Guide"
		if v.Paid {
			subject = "Your ABN Registration is Being Processed"
		}
		n.sendToClient(ctx, TemplateABNConfirmation, rec.Text("email"), subject, v)
		n.sendToAdmin(ctx, TemplateABNAdmin, "New ABN Registration: "+v.FullName, v)
	default:
		n.logger.WarnContext(ctx, "no emails defined for flow", "flow", sub.Flow)
	}
}

func (n *Notifier) lunaView(rec models.Record, sub Submission) view {
	v := n.baseView(rec, sub, "first_name", "middle_name", "last_name")
	v.Greeting = email.GreetingName(rec.Text("casual_name"), rec.Text("first_name"), rec.Text("email"))
	v.ABN = rec.Text("abn")
	v.TradingName = rec.Text("trading_name")
	if rec.Equals("used_accountant_previously", "Y") {
		v.PreviousAccountant = strings.TrimSpace(rec.Text("prev_accountant_name") + ", " + rec.Text("prev_accountant_firm"))
	}
	return v
}

func (n *Notifier) abnView(rec models.Record, sub Submission) view {
	v := n.baseView(rec, sub, "firstName", "middleName", "lastName")
	v.Greeting = email.GreetingName("", rec.Text("firstName"), rec.Text("email"))
	v.TradingName = rec.Text("tradingName")
	v.Structure = rec.Text("businessStructure")
	v.StructureLabel = v.Structure
	if v.Structure == "sole_trader" {
		v.StructureLabel = "Individual/Sole Trader"
	}
	v.GST = rec.Equals("registerForGST", "yes")
	v.Paid = rec.Truthy("wantsAssistance")
	v.PaymentReference = rec.Text("paymentIntentId")
	return v
}

func (n *Notifier) baseView(rec models.Record, sub Submission, first, middle, last string) view {
	var parts []string
	for _, k := range []string{first, middle, last} {
		if s := rec.Text(k); s != "" {
			parts = append(parts, s)
		}
	}
	ref := sub.ClientID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	base := strings.TrimRight(n.cfg.BaseURL, "/")
	return view{
		FullName:  strings.Join(parts, " "),
		Email:     rec.Text("email"),
		Mobile:    rec.Text("mobile"),
		Reference: ref,
		ResumeURL: base + "/" + sub.Flow + "?resume=" + sub.ResumeToken,
		CRMURL:    base + "/clients/" + sub.ClientID,
	}
}

func (n *Notifier) sendToClient(ctx context.Context, tmpl, to, subject string, v view) {
	if !email.Valid(to) {
		n.logger.WarnContext(ctx, "skipping client email, no usable address", "template", tmpl)
		n.metrics.IncNotification(tmpl, "skipped")
		return
	}
	n.send(ctx, tmpl, to, subject, v)
}

func (n *Notifier) sendToAdmin(ctx context.Context, tmpl, subject string, v view) {
	if n.cfg.AdminEmail == "" {
		return
	}
	n.send(ctx, tmpl, n.cfg.AdminEmail, subject, v)
}

func (n *Notifier) send(ctx context.Context, tmpl, to, subject string, v view) {
	body, err := render(tmpl, v)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to render email", "template", tmpl, "error", err)
		n.metrics.IncNotification(tmpl, "error")
		return
	}
	err = n.mailer.Send(ctx, Message{
		From:    email.FormatAddress(n.cfg.FromName, n.cfg.FromEmail),
		To:      []string{to},
		Subject: subject,
		HTML:    body,
	})
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to send email", "template", tmpl, "error", err)
		n.metrics.IncNotification(tmpl, "error")
		return
	}
	n.metrics.IncNotification(tmpl, "sent")
}
