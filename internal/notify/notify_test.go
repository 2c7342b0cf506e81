package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/seanbarr1988/spunkybot/internal/domain"
)

var now = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func TestParseWebhookURL(t *testing.T) {
	tests := []struct {
		in      string
		id, tok string
		wantErr bool
	}{
		{"https://discord.com/api/webhooks/123/abc", "123", "abc", false},
		{"https://discordapp.com/api/webhooks/9/x-y_z/", "9", "x-y_z", false},
		{"https://discordapp.com/api/webhooks/", "", "", true},
		{"https://example.com/hooks/1/2", "", "", true},
	}
	for _, tt := range tests {
		w, err := ParseWebhookURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v", tt.in, err)
			continue
		}
		if w.ID != tt.id || w.Token != tt.tok {
			t.Errorf("%s: got %+v", tt.in, w)
		}
	}
}

func TestBanEmbed(t *testing.T) {
	n := domain.NewNotice(domain.NoticeBan, "My Server", now, nil)
	e := banEmbed(n, domain.BanNotice{
		Player: "Neo", PlayerID: 12, GUID: "G", IP: "1.2.3.4", Country: "Germany (DE)", CountryISO: "de",
		Aliases: []string{"Neo", "TheOne"}, Permanent: true, Reason: "aimbot", Admin: "Morpheus", AdminAuth: "morph",
	})
	if e.Footer.Text != "Banned by: Morpheus [morph]" {
		t.Errorf("footer = %q", e.Footer.Text)
	}
	fields := map[string]string{}
	for _, f := range e.Fields {
		fields[f.Name] = f.Value
	}
	if fields["EXPIRES"] != ":100: PERMANENT" {
		t.Errorf("expires = %q", fields["EXPIRES"])
	}
	if fields["PLAYER ID"] != "@12" || fields["ALIASES"] != "`Neo` `TheOne`" || fields["COUNTRY"] != ":flag_de:  Germany (DE)" {
		t.Errorf("fields = %v", fields)
	}

	byBot := banEmbed(n, domain.BanNotice{Admin: "bot", Expires: "2026-03-08 20:00:00"})
	if byBot.Footer.Text != "Banned by: SpunkyBot" {
		t.Errorf("bot footer = %q", byBot.Footer.Text)
	}
}

func TestDiscordPostsReport(t *testing.T) {
	var body discordgo.WebhookParams
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","channel_id":"2"}`)
	}))
	defer srv.Close()

	old := discordgo.EndpointWebhooks
	discordgo.EndpointWebhooks = srv.URL + "/webhooks/"
	t.Cleanup(func() { discordgo.EndpointWebhooks = old })

	d, err := NewDiscord("https://discord.com/api/webhooks/42/secret", "")
	if err != nil {
		t.Fatal(err)
	}
	n := domain.NewNotice(domain.NoticeReport, "My Server", now, domain.ReportNotice{
		Reporter: "Trinity", ReporterID: 3, Target: "Smith", TargetID: 7, Reason: "aimbot",
	})
	if err := d.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if path != "/webhooks/42/secret" {
		t.Errorf("path = %q", path)
	}
	if len(body.Embeds) != 1 || body.Embeds[0].Title != "Player report!" {
		t.Fatalf("embeds = %+v", body.Embeds)
	}
	if !strings.HasPrefix(body.Embeds[0].Footer.Text, "Reported by: Trinity") {
		t.Errorf("footer = %q", body.Embeds[0].Footer.Text)
	}

	// no ban webhook configured
	ban := domain.NewNotice(domain.NoticeBan, "My Server", now, domain.BanNotice{Player: "Smith"})
	if err := d.Notify(context.Background(), ban); !errors.Is(err, ErrNoWebhook) {
		t.Errorf("ban err = %v", err)
	}
	// other notices are ignored
	if err := d.Notify(context.Background(), domain.NewNotice(domain.NoticeKick, "s", now, domain.KickNotice{})); err != nil {
		t.Errorf("kick err = %v", err)
	}
}

func TestNATSPublishesNotices(t *testing.T) {
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatal(err)
	}
	go ns.Start()
	defer ns.Shutdown()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}

	sub, err := nats.Connect(ns.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	msgs, err := sub.SubscribeSync("spunky.notices.>")
	if err != nil {
		t.Fatal(err)
	}
	sub.Flush()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub, err := ConnectNATS(ns.ClientURL(), "spunky.notices", logger)
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	notice := domain.NewNotice(domain.NoticeKick, "My Server", now, domain.KickNotice{Player: "Smith", Reason: "tk"})
	if err := (Multi{Nop{}, pub}).Notify(context.Background(), notice); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	pub.conn.Flush()

	msg, err := msgs.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg: %v", err)
	}
	if msg.Subject != "spunky.notices.kick" {
		t.Errorf("subject = %q", msg.Subject)
	}
	var got struct {
		ID    string `json:"id"`
		Event string `json:"event"`
		Data  struct {
			Player string `json:"player"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Event != "kick" || got.Data.Player != "Smith" || got.ID != notice.ID {
		t.Errorf("payload = %+v", got)
	}
}

type failing struct{ err error }

func (f failing) Notify(context.Context, domain.Notice) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	a, b := errors.New("a"), errors.New("b")
	err := Multi{failing{a}, Nop{}, failing{b}}.Notify(context.Background(), domain.Notice{})
	if !errors.Is(err, a) || !errors.Is(err, b) {
		t.Errorf("err = %v", err)
	}
}
