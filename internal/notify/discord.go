package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/seanbarr1988/spunkybot/internal/domain"
)

const (
	embedColor = 3447003
	iconURL    = "https://lilpwny.com/downloads/vectto_icons/bullets.png"
	botName    = "SpunkyBot"
)

// ErrNoWebhook is returned when a notice has no configured destination.
var ErrNoWebhook = errors.New("discord webhook not configured")

// Webhook identifies one Discord webhook.
type Webhook struct {
	ID    string
	Token string
}

// ParseWebhookURL extracts the id and token from a URL of the form
// https://discord.com/api/webhooks/<id>/<token>.
func ParseWebhookURL(raw string) (Webhook, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Webhook{}, fmt.Errorf("parsing webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return Webhook{ID: parts[i+1], Token: parts[i+2]}, nil
		}
	}
	return Webhook{}, fmt.Errorf("not a webhook url: %s", raw)
}

// Discord posts report and ban notices as embeds to their webhooks.
type Discord struct {
	session *discordgo.Session
	report  *Webhook
	ban     *Webhook
}

// NewDiscord builds a notifier. Either URL may be empty.
func NewDiscord(reportURL, banURL string) (*Discord, error) {
	// webhooks need no bot token
	s, err := discordgo.New("")
	if err != nil {
		return nil, err
	}
	d := &Discord{session: s}
	if reportURL != "" {
		w, err := ParseWebhookURL(reportURL)
		if err != nil {
			return nil, err
		}
		d.report = &w
	}
	if banURL != "" {
		w, err := ParseWebhookURL(banURL)
		if err != nil {
			return nil, err
		}
		d.ban = &w
	}
	return d, nil
}

func (d *Discord) Notify(ctx context.Context, n domain.Notice) error {
	var hook *Webhook
	var embed *discordgo.MessageEmbed
	switch data := n.Data.(type) {
	case domain.ReportNotice:
		hook, embed = d.report, reportEmbed(n, data)
	case domain.BanNotice:
		hook, embed = d.ban, banEmbed(n, data)
	default:
		return nil
	}
	if hook == nil {
		return ErrNoWebhook
	}

	_, err := d.session.WebhookExecute(hook.ID, hook.Token, true, &discordgo.WebhookParams{
		Username: botName,
		Embeds:   []*discordgo.MessageEmbed{embed},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("posting %s to discord: %w", n.Type, err)
	}
	return nil
}

func reportEmbed(n domain.Notice, r domain.ReportNotice) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:     "Player report!",
		Color:     embedColor,
		Timestamp: n.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Author:    &discordgo.MessageEmbedAuthor{Name: n.Server, IconURL: iconURL},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Reported by: %s [%s]  @%d", r.Reporter, r.ReporterAuth, r.ReporterID),
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "NAME", Value: r.Target, Inline: true},
			{Name: "PLAYER ID", Value: "@" + strconv.FormatInt(r.TargetID, 10), Inline: true},
			{Name: "REASON", Value: r.Reason, Inline: true},
		},
	}
}

func banEmbed(n domain.Notice, b domain.BanNotice) *discordgo.MessageEmbed {
	by := botName
	if b.Admin != "" && b.Admin != "bot" {
		by = fmt.Sprintf("%s [%s]", b.Admin, b.AdminAuth)
	}
	expires := b.Expires
	if b.Permanent {
		expires = ":100: PERMANENT"
	}
	aliases := "-"
	if len(b.Aliases) > 0 {
		aliases = "`" + strings.Join(b.Aliases, "` `") + "`"
	}
	return &discordgo.MessageEmbed{
		Title:     "Player banned!",
		Color:     embedColor,
		Timestamp: n.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Author:    &discordgo.MessageEmbedAuthor{Name: n.Server, IconURL: iconURL},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Banned by: " + by},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "NAME", Value: b.Player, Inline: true},
			{Name: "PLAYER ID", Value: "@" + strconv.FormatInt(b.PlayerID, 10), Inline: true},
			{Name: "EXPIRES", Value: expires, Inline: true},
			{Name: "COUNTRY", Value: fmt.Sprintf(":flag_%s:  %s", b.CountryISO, b.Country), Inline: true},
			{Name: "IP ADDRESS", Value: fmt.Sprintf("[%s](https://ipgeolocation.io/ip-location/%s)", b.IP, b.IP), Inline: true},
			{Name: "GUID", Value: b.GUID, Inline: true},
			{Name: "REASON", Value: b.Reason, Inline: true},
			{Name: "ALIASES", Value: aliases},
		},
	}
}
