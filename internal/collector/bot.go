// Package collector turns the game log into moderation. It tails the log,
// routes each line to an event handler, runs chat commands and drives the
// periodic tasks that share the match state.
package collector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/seanbarr1988/spunkybot/internal/config"
	"github.com/seanbarr1988/spunkybot/internal/domain"
	"github.com/seanbarr1988/spunkybot/internal/lookup"
	"github.com/seanbarr1988/spunkybot/internal/notify"
	"github.com/seanbarr1988/spunkybot/internal/rcon"
	"github.com/seanbarr1988/spunkybot/internal/storage"
)

const (
	// handlerTimeout bounds the collaborator calls of one line or task.
	handlerTimeout = 10 * time.Second
	janitorEvery   = 2 * time.Hour
	voteGrace      = 40 * time.Second
	cyclemapGrace  = 950 * time.Second
)

// Server is the game server as the bot drives it: an outbound console plus
// the synchronous queries. *rcon.Dispatcher implements it.
type Server interface {
	domain.Console
	Run(ctx context.Context)
	Clear()
	SetLive(live bool)
	Live() bool
	Cvar(ctx context.Context, name string) (string, error)
	Status(ctx context.Context) (string, []rcon.StatusPlayer, error)
	Maps(ctx context.Context) ([]string, error)
}

// Deps are the collaborators of a Bot. Nil lookups and notifiers fall
// back to their no-op forms.
type Deps struct {
	Server     Server
	Store      *storage.Store
	Geo        lookup.Geolocator
	Reputation lookup.ReputationChecker
	Auth       lookup.AuthStatus
	Notifier   notify.Notifier
	BanFile    *storage.BanFile
	Logger     *slog.Logger
	Version    string
}

// Bot owns the match state and every loop that touches it.
type Bot struct {
	cfg      *config.Config
	server   Server
	store    *storage.Store
	geo      lookup.Geolocator
	rep      lookup.ReputationChecker
	auth     lookup.AuthStatus
	notifier notify.Notifier
	banfile  *storage.BanFile
	logger   *slog.Logger
	version  string
	now      func() time.Time

	// mu guards the game and everything below it. Handlers, tasks and the
	// rules rotator each hold it for one invocation.
	mu       sync.Mutex
	game     *domain.Game
	rotation []string

	firstBlood     bool
	firstNadeKill  bool
	firstKnifeKill bool
	statsWithBots  bool
	matchSaved     bool

	allowCmdTeams   bool
	tsDoTeamBalance bool

	allowNextmapVote    bool
	allowCyclevote      bool
	failedVoteTimer     time.Time
	failedCyclemapTimer time.Time

	reportCooldown   time.Time
	lastReport       *domain.Player
	lastDisconnected *domain.Player
	authActive       bool

	wg     sync.WaitGroup
	runCtx context.Context
	cancel context.CancelFunc
}

// New creates a bot. Nothing runs until Run.
func New(cfg *config.Config, deps Deps) *Bot {
	b := &Bot{
		cfg:            cfg,
		server:         deps.Server,
		store:          deps.Store,
		geo:            deps.Geo,
		rep:            deps.Reputation,
		auth:           deps.Auth,
		notifier:       deps.Notifier,
		banfile:        deps.BanFile,
		logger:         deps.Logger,
		version:        deps.Version,
		now:            time.Now,
		allowCmdTeams:  true,
		allowCyclevote: true,
		authActive:     true,
	}
	if b.geo == nil {
		b.geo = lookup.NoGeo{}
	}
	if b.rep == nil {
		b.rep = lookup.NoReputation{}
	}
	if b.auth == nil {
		b.auth = lookup.AlwaysActive{}
	}
	if b.notifier == nil {
		b.notifier = notify.Nop{}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.version == "" {
		b.version = "dev"
	}
	b.game = domain.NewGame(b.server, b.now())
	return b
}

// Run opens the log, restores the running match settings and processes
// lines until ctx is canceled. A log that cannot be opened is returned
// before anything starts.
func (b *Bot) Run(ctx context.Context) error {
	tailer, err := OpenTailer(b.cfg.Server.LogFile, b.logger)
	if err != nil {
		return err
	}
	defer tailer.Close()

	payload, ok, err := tailer.LastInitGame()
	if err != nil {
		b.logger.Warn("scanning for match start", "err", err)
	}
	if ok {
		b.mu.Lock()
		b.applySettings(ParseInitGame(payload))
		b.mu.Unlock()
	}
	b.logger.Info("game settings", "mod_version", int(b.game.Mod), "game_type", b.game.Type.String())

	ctx, cancel := context.WithCancel(ctx)
	b.runCtx, b.cancel = ctx, cancel
	defer cancel()

	b.wg.Add(4)
	go func() {
		defer b.wg.Done()
		b.server.Run(ctx)
	}()
	go b.taskLoop(ctx)
	go b.rulesLoop(ctx)
	go b.janitorLoop(ctx)

	b.readLoop(ctx, tailer)
	cancel()
	b.wg.Wait()
	return nil
}

// Stop cancels every loop and waits for them to return.
func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

// lifetime is the context of the running bot, for work that outlives a
// single line.
func (b *Bot) lifetime() context.Context {
	if b.runCtx == nil {
		return context.Background()
	}
	return b.runCtx
}

func (b *Bot) readLoop(ctx context.Context, t *Tailer) {
	for ctx.Err() == nil {
		line, ok, err := t.Next()
		if err != nil {
			b.logger.Warn("reading log", "err", err)
		}
		if ok {
			b.processLine(ctx, line)
			continue
		}
		if !b.server.Live() {
			b.goLive(ctx)
		}
		t.Wait(ctx)
	}
}

// processLine routes one raw line under the shared lock. Malformed lines
// are skipped and a panicking handler is logged, never propagated.
func (b *Bot) processLine(ctx context.Context, raw string) {
	ev := ParseLine(raw)
	if ev.Kind == EventUnknown {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic", "tag", ev.Tag, "line", raw, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if err := b.dispatch(ctx, ev); err != nil {
		if errors.Is(err, errMalformed) || errors.Is(err, errNoSlot) {
			b.logger.Debug("skipping line", "tag", ev.Tag, "err", err)
			return
		}
		b.logger.Error("handling line", "tag", ev.Tag, "line", raw, "err", err)
	}
}

func (b *Bot) dispatch(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventInitGame:
		return b.handleInitGame(ctx, ev.Payload)
	case EventWarmup:
		b.allowCmdTeams = true
		return nil
	case EventInitRound:
		b.handleInitRound()
		return nil
	case EventExit:
		b.handleExit(ctx)
		return nil
	case EventShutdown:
		b.handleShutdown(ctx)
		return nil
	case EventSay, EventSayTell:
		return b.handleSay(ctx, ev.Payload)
	case EventUserinfo:
		return b.handleUserinfo(ctx, ev.Payload)
	case EventUserinfoChanged:
		return b.handleUserinfoChanged(ev.Payload)
	case EventBegin:
		return b.handleBegin(ev.Payload)
	case EventDisconnect:
		return b.handleDisconnect(ctx, ev.Payload)
	case EventSpawn:
		return b.handleSpawn(ev.Payload)
	case EventKill:
		return b.handleKill(ctx, ev.Payload)
	case EventHit:
		return b.handleHit(ev.Payload)
	case EventAssist:
		return b.handleAssist(ev.Payload)
	case EventFreeze:
		return b.handleFreeze(ev.Payload, true)
	case EventThawOut:
		return b.handleFreeze(ev.Payload, false)
	case EventFlag:
		return b.handleFlag(ev.Payload)
	case EventFlagCaptureTime:
		return b.handleFlagCaptureTime(ev.Payload)
	case EventSurvivorWinner:
		b.roundWinner(ev.Payload)
		return nil
	case EventCallvote:
		return b.handleCallvote(ev.Payload)
	case EventVotePassed:
		b.handleVotePassed(ctx, ev.Payload)
		return nil
	case EventVoteFailed:
		b.handleVoteFailed(ctx, ev.Payload)
		return nil
	case EventBomb:
		return b.handleBomb(ev.Payload)
	case EventBombExploded:
		b.handleBombExploded()
		return nil
	}
	return nil
}

// applySettings adopts the game type, tier and gear of a match.
func (b *Bot) applySettings(s GameSettings) {
	b.game.Type = s.Type
	b.game.Mod = s.Mod
	b.game.DefaultGear = s.Gear
}

// goLive turns on outbound traffic and discovers the maps.
func (b *Bot) goLive(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.server.SetLive(true)
	b.game.Live = true
	b.setAllMaps(ctx)
	b.rotation = b.readMapcycle(ctx)
	b.setCurrentMap(ctx, "")
	b.game.Say(fmt.Sprintf("^7Powered by Spunky Bot ^3[%s]", b.version))

	b.logger.Info("live tracking",
		"map", b.game.MapName,
		"next_map", b.game.NextMap,
		"maps", len(b.game.AllMaps),
		"mapcycle", strings.Join(b.rotation, ", "))
	if logsync, err := b.server.Cvar(ctx, "g_logsync"); err == nil {
		if logsync == "0" {
			b.logger.Warn("g_logsync is 0, the server log is buffered and events will arrive late")
		}
		loghits, _ := b.server.Cvar(ctx, "g_loghits")
		b.logger.Info("server cvars", "g_logsync", logsync, "g_loghits", loghits)
	}
	b.notice(ctx, domain.NoticeBotLive, domain.MatchStartNotice{Map: b.game.MapName, GameType: b.game.Type.String()})
}

// setAllMaps refreshes the list of loadable maps. An empty answer keeps
// the previous list.
func (b *Bot) setAllMaps(ctx context.Context) {
	maps, err := b.server.Maps(ctx)
	if err != nil {
		if !errors.Is(err, rcon.ErrNotLive) {
			b.logger.Warn("listing maps", "err", err)
		}
		return
	}
	if len(maps) > 0 {
		b.game.AllMaps = maps
	}
}

// setCurrentMap records the running map and derives the next one from
// the rotation. An empty name asks the server.
func (b *Bot) setCurrentMap(ctx context.Context, name string) {
	if name == "" {
		if v, err := b.server.Cvar(ctx, "mapname"); err == nil && v != "" {
			name = strings.ToLower(v)
		} else {
			name = b.game.NextMap
		}
	}
	b.game.SetMap(name)

	rotation := b.rotation
	mc := b.cfg.Mapcycle
	if mc.Dynamic {
		rotation = mc.BigCycle
		if b.game.NumberOfPlayers() < mc.SwitchCount {
			rotation = mc.SmallCycle
		}
	}
	b.game.MapList = rotation

	previous := b.game.NextMap
	b.game.NextMap = domain.RotationNext(rotation, name)
	b.logger.Debug("map set", "map", name, "next_map", b.game.NextMap)

	if mc.Dynamic {
		b.game.Send("set g_nextmap " + b.game.NextMap)
		if b.game.NextMap != previous {
			b.game.Say("^3Next Map: ^7" + b.game.NextMap)
		}
	}
}

// readMapcycle loads the rotation from the configured mapcycle file, or
// from the file the server points at through its fs_* cvars.
func (b *Bot) readMapcycle(ctx context.Context) []string {
	path := b.cfg.Server.MapcycleFile
	if path == "" {
		path = b.mapcyclePath(ctx)
	}
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		b.logger.Warn("opening mapcycle", "path", path, "err", err)
		return nil
	}
	defer f.Close()
	maps, err := parseMapcycle(f)
	if err != nil {
		b.logger.Warn("reading mapcycle", "path", path, "err", err)
	}
	b.logger.Info("mapcycle loaded", "path", path, "maps", len(maps))
	return maps
}

func (b *Bot) mapcyclePath(ctx context.Context) string {
	home, _ := b.server.Cvar(ctx, "fs_homepath")
	base, _ := b.server.Cvar(ctx, "fs_basepath")
	game, _ := b.server.Cvar(ctx, "fs_game")
	file, _ := b.server.Cvar(ctx, "g_mapcycle")
	if file == "" {
		return ""
	}
	for _, root := range []string{home, base} {
		if root == "" {
			continue
		}
		candidate := filepath.Join(root, game, file)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// parseMapcycle reads one map per line, skipping blank lines and the
// per-map { ... } settings blocks.
func parseMapcycle(f io.Reader) ([]string, error) {
	var maps []string
	depth := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "{"):
			depth++
		case strings.HasPrefix(line, "}"):
			if depth > 0 {
				depth--
			}
		case depth == 0:
			maps = append(maps, line)
		}
	}
	return maps, scanner.Err()
}

// notice publishes to the notifiers and logs failures.
func (b *Bot) notice(ctx context.Context, kind string, data interface{}) error {
	err := b.notifier.Notify(ctx, domain.NewNotice(kind, b.cfg.Server.ServerName, b.now(), data))
	if err != nil && !errors.Is(err, notify.ErrNoWebhook) {
		b.logger.Warn("notification failed", "event", kind, "err", err)
	}
	return err
}

// kickReason kicks with a reason. Servers older than 4.2 cannot show one,
// so the reason is printed to the console after the kick.
func (b *Bot) kickReason(num int, reason string) {
	if b.game.Mod > domain.Mod41 {
		b.game.Kick(num, reason)
		return
	}
	b.game.Kick(num, "")
	if reason != "" {
		b.game.Send(reason)
	}
}
