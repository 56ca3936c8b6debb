package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
)

// Email sends HTML alerts over SMTP with STARTTLS. Not low-noise: routine
// confirmations never reach the inbox, only urgent and important alerts do.
type Email struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	recipient string
	timeout   time.Duration
}

func NewEmail(host string, port int, username, password, fromName, recipient string, timeout time.Duration) *Email {
	return &Email{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		recipient: recipient,
		timeout:   timeout,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) LowNoise() bool { return false }

func (e *Email) SendAlert(ctx context.Context, alert models.Alert) error {
	subject := alertSubject(alert)
	body := alertHTML(alert)
	return e.send(ctx, subject, body)
}

func (e *Email) Send(ctx context.Context, text string, urgency models.Urgency) error {
	subject := fmt.Sprintf("%s Lineup Monitor Update", urgencyEmoji(urgency))
	body := messageHTML(text, urgency)
	return e.send(ctx, subject, body)
}

// send runs the SMTP exchange with a connection deadline standing in for
// per-command context support, which net/smtp does not offer.
func (e *Email) send(ctx context.Context, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(e.host, strconv.Itoa(e.port))
	conn, err := net.DialTimeout("tcp", addr, e.timeout)
	if err != nil {
		return fmt.Errorf("failed to dial smtp server: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(e.timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set smtp deadline: %w", err)
	}

	c, err := smtp.NewClient(conn, e.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: e.host}); err != nil {
			return fmt.Errorf("failed to start tls: %w", err)
		}
	}
	if err := c.Auth(smtp.PlainAuth("", e.username, e.password, e.host)); err != nil {
		return fmt.Errorf("smtp authentication failed: %w", err)
	}
	if err := c.Mail(e.username); err != nil {
		return fmt.Errorf("smtp mail command failed: %w", err)
	}
	if err := c.Rcpt(e.recipient); err != nil {
		return fmt.Errorf("smtp rcpt command failed: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data command failed: %w", err)
	}
	if _, err := w.Write(e.message(subject, htmlBody)); err != nil {
		w.Close()
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish email body: %w", err)
	}

	if err := c.Quit(); err != nil {
		return fmt.Errorf("smtp quit failed: %w", err)
	}
	slog.Debug("email sent", "recipient", e.recipient, "subject", subject)
	return nil
}

func (e *Email) message(subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", e.fromName, e.username)
	fmt.Fprintf(&b, "To: %s\r\n", e.recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

func alertSubject(a models.Alert) string {
	prefix := urgencyEmoji(a.Urgency)
	switch a.Type {
	case models.UnexpectedBenching:
		return fmt.Sprintf("%s %s BENCHED!", prefix, a.Player.Name)
	case models.UnexpectedStarting:
		return fmt.Sprintf("%s %s STARTING!", prefix, a.Player.Name)
	}
	return fmt.Sprintf("%s Lineup Update: %s", prefix, a.Player.Name)
}

func alertHTML(a models.Alert) string {
	color := htmlColor(a.Urgency)
	stats := ""
	if a.Player.GamesPlayed > 0 || a.Player.DraftPercent != "" {
		var parts []string
		if a.Player.GamesPlayed > 0 {
			parts = append(parts, fmt.Sprintf("<p><strong>Games Played:</strong> %d</p>", a.Player.GamesPlayed))
		}
		if a.Player.DraftPercent != "" {
			parts = append(parts, fmt.Sprintf("<p><strong>Draft Percentage:</strong> %s%%</p>", a.Player.DraftPercent))
		}
		stats = "<div class=\"stats\"><h4>Player Statistics</h4>" + strings.Join(parts, "") + "</div>"
	}

	return fmt.Sprintf(`<html>
<head><meta charset="UTF-8"><style>
body { font-family: Arial, sans-serif; margin: 0; padding: 20px; }
.container { max-width: 600px; margin: 0 auto; }
.header { background-color: %s; color: white; padding: 20px; text-align: center; }
.content { background-color: #f9f9f9; padding: 20px; }
.block { background-color: white; padding: 15px; margin: 10px 0; border-left: 4px solid %s; }
.footer { text-align: center; color: #666; font-size: 12px; margin-top: 20px; }
</style></head>
<body><div class="container">
<div class="header"><h2>%s Lineup Alert</h2><p>%s</p></div>
<div class="content">
<div class="block"><h3>%s</h3>
<p><strong>Team:</strong> %s (%s)</p>
<p><strong>Position:</strong> %s</p></div>
<div class="block"><h4>Match</h4>
<p><strong>%s</strong></p>
<p><strong>Kickoff:</strong> %s UTC</p></div>
%s
<div class="block"><pre style="white-space: pre-wrap; font-family: inherit;">%s</pre></div>
</div>
<div class="footer"><p>Lineup Monitor - Sent at %s UTC</p></div>
</div></body></html>`,
		color, color,
		a.Emoji(), strings.ToUpper(string(a.Urgency)),
		a.Player.Name,
		a.Player.Team.Name, a.Player.Team.Abbreviation,
		a.Player.Position,
		a.Match.Name(),
		a.Match.Kickoff.Format("15:04 on January 2, 2006"),
		stats,
		a.Message,
		a.CreatedAt.Format("15:04:05"))
}

func messageHTML(text string, urgency models.Urgency) string {
	color := htmlColor(urgency)
	return fmt.Sprintf(`<html>
<head><meta charset="UTF-8"><style>
body { font-family: Arial, sans-serif; margin: 0; padding: 20px; }
.container { max-width: 600px; margin: 0 auto; }
.header { background-color: %s; color: white; padding: 15px; text-align: center; }
.message { background-color: white; padding: 15px; border-left: 4px solid %s; }
.footer { text-align: center; color: #666; font-size: 12px; margin-top: 20px; }
</style></head>
<body><div class="container">
<div class="header"><h3>%s Lineup Monitor</h3></div>
<div class="message"><p>%s</p></div>
<div class="footer"><p>Sent at %s UTC</p></div>
</div></body></html>`,
		color, color,
		urgencyEmoji(urgency),
		strings.ReplaceAll(text, "\n", "<br>"),
		time.Now().UTC().Format("15:04:05"))
}

func htmlColor(u models.Urgency) string {
	switch u {
	case models.UrgencyUrgent:
		return "#ff0000"
	case models.UrgencyImportant:
		return "#ff9900"
	case models.UrgencyWarning:
		return "#ffaa00"
	}
	return "#36a64f"
}
