package collector

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/seanbarr1988/spunkybot/internal/domain"
)

// rulesLoop rotates the lines of the rules file through the chat. The
// file is reread on every pass, an empty or missing file ends the loop.
func (b *Bot) rulesLoop(ctx context.Context) {
	defer b.wg.Done()
	rc := b.cfg.Rules
	if !rc.Show || rc.File == "" {
		return
	}
	if !sleepCtx(ctx, rc.InitialWait) {
		return
	}
	every := time.Duration(rc.Frequency) * time.Second
	for {
		lines, err := readRules(rc.File)
		if err != nil {
			b.logger.Warn("reading rules", "path", rc.File, "err", err)
			return
		}
		if len(lines) == 0 {
			b.logger.Info("rules file is empty, rotation stopped", "path", rc.File)
			return
		}
		for _, line := range lines {
			b.showRule(ctx, line)
			if !sleepCtx(ctx, every) {
				return
			}
		}
	}
}

func readRules(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// showRule expands the macros of one line and sends it.
func (b *Bot) showRule(ctx context.Context, line string) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case strings.Contains(line, "@admins"):
		var names []string
		for _, p := range b.game.Humans() {
			if p.Role >= domain.RoleModerator {
				names = append(names, "^7"+p.Name())
			}
		}
		if len(names) > 0 {
			b.game.Say("^3Admins online:^7 " + strings.Join(names, ", "))
		}
	case strings.Contains(line, "@nextmap"):
		b.game.Say(b.nextMapMessage(ctx))
	case strings.Contains(line, "@time"):
		b.game.Say("^3Time:^7 " + b.now().Format("15:04"))
	case strings.Contains(line, "@discord"):
		b.game.Say("^3Discord:^7 " + b.cfg.Server.DiscordLink)
	case strings.Contains(line, "@bigtext"):
		parts := strings.Split(line, "@bigtext")
		b.game.BigText("^7" + strings.TrimSpace(parts[len(parts)-1]))
	default:
		msg := fmt.Sprintf("^3%s", line)
		switch b.cfg.Rules.Display {
		case "bigtext":
			b.game.BigText(msg)
		case "raw":
			b.game.Send(msg)
		default:
			b.game.Say(msg)
		}
	}
}

// sleepCtx waits for d and reports false when ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
