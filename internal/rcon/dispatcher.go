package rcon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

var (
	// ErrNotLive is returned by queries issued before the bot went live.
	ErrNotLive = errors.New("rcon: not live")
	// ErrBadPassword is returned when the server rejects the rcon password.
	ErrBadPassword = errors.New("rcon: bad password")
)

const (
	sayWidth  = 140
	tellWidth = 128
	pmTag     = "^4[pm] "
)

// Transport executes one RCON command. *Client implements it.
type Transport interface {
	Command(cmd string) (string, error)
}

// Dispatcher serializes all traffic to the game server. Outbound commands
// are queued and sent one at a time by Run, no faster than one per delay.
// Queries bypass the queue but share the same pacing and connection lock.
type Dispatcher struct {
	transport Transport
	limiter   *rate.Limiter
	logger    *slog.Logger
	pmTag     bool

	mu    sync.Mutex
	queue []string
	live  bool
	wake  chan struct{}

	// wire serializes use of the transport between Run and queries
	wire sync.Mutex
}

// NewDispatcher creates a dispatcher. It sends nothing until SetLive(true).
func NewDispatcher(t Transport, delay time.Duration, pmTagEnabled bool, logger *slog.Logger) *Dispatcher {
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Dispatcher{
		transport: t,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		logger:    logger,
		pmTag:     pmTagEnabled,
		wake:      make(chan struct{}, 1),
	}
}

// Run drains the queue until ctx is cancelled. A command is only taken
// off the queue once the limiter allows it, so Clear and SetLive(false)
// during the wait still drop it.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		if !d.ready() {
			select {
			case <-ctx.Done():
				return
			case <-d.wake:
				continue
			}
		}

		if err := d.limiter.Wait(ctx); err != nil {
			return
		}
		d.wire.Lock()
		cmd, ok := d.next()
		if !ok {
			d.wire.Unlock()
			continue
		}
		_, err := d.transport.Command(cmd)
		d.wire.Unlock()
		if err != nil {
			d.logger.Error("rcon command failed", "command", cmd, "error", err)
		}
	}
}

func (d *Dispatcher) ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live && len(d.queue) > 0
}

// next pops the oldest command while live.
func (d *Dispatcher) next() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.live || len(d.queue) == 0 {
		return "", false
	}
	cmd := d.queue[0]
	d.queue[0] = ""
	d.queue = d.queue[1:]
	return cmd, true
}

func (d *Dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Send enqueues a raw command. It never blocks.
func (d *Dispatcher) Send(cmd string) {
	d.mu.Lock()
	d.queue = append(d.queue, cmd)
	d.mu.Unlock()
	d.signal()
}

// Say broadcasts a chat message, wrapped into 140 character lines.
func (d *Dispatcher) Say(msg string) {
	for _, line := range Wrap(msg, sayWidth) {
		d.Send("say " + line)
	}
}

// Tell sends a private message, wrapped into 128 character lines. The
// [pm] tag, when enabled, only prefixes the first line.
func (d *Dispatcher) Tell(num int, msg string, tag bool) {
	prefix := ""
	if tag && d.pmTag {
		prefix = pmTag
	}
	for _, line := range Wrap(msg, tellWidth) {
		d.Send(fmt.Sprintf("tell %d %s%s", num, prefix, line))
		prefix = ""
	}
}

// BigText shows a centered screen message.
func (d *Dispatcher) BigText(msg string) {
	d.Send(fmt.Sprintf("bigtext \"%s\"", msg))
}

// Clear drops everything queued but not yet sent.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	d.queue = nil
	d.mu.Unlock()
}

// SetLive opens or closes the gate.
func (d *Dispatcher) SetLive(live bool) {
	d.mu.Lock()
	d.live = live
	d.mu.Unlock()
	d.signal()
}

// Live reports whether the gate is open.
func (d *Dispatcher) Live() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// Pending returns the queue length.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Query runs a command synchronously and returns its output.
func (d *Dispatcher) Query(ctx context.Context, cmd string) (string, error) {
	if !d.Live() {
		return "", ErrNotLive
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}
	d.wire.Lock()
	defer d.wire.Unlock()
	out, err := d.transport.Command(cmd)
	if err != nil {
		return "", fmt.Errorf("rcon %q: %w", cmd, err)
	}
	return out, nil
}

// Cvar reads one server variable. A missing value yields "".
func (d *Dispatcher) Cvar(ctx context.Context, name string) (string, error) {
	out, err := d.Query(ctx, name)
	if err != nil {
		return "", err
	}
	v, _ := ParseCvar(out)
	return v, nil
}

// Status returns the player table.
func (d *Dispatcher) Status(ctx context.Context) (string, []StatusPlayer, error) {
	out, err := d.Query(ctx, "status")
	if err != nil {
		return "", nil, err
	}
	m, players := ParseStatus(out)
	return m, players, nil
}

// Maps lists every map the server can load.
func (d *Dispatcher) Maps(ctx context.Context) ([]string, error) {
	out, err := d.Query(ctx, "dir map bsp")
	if err != nil {
		return nil, err
	}
	return ParseMapList(out), nil
}

// Wrap breaks text into lines of at most width bytes on word boundaries.
// Words longer than width are split between runes.
func Wrap(text string, width int) []string {
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(text) {
		for len(word) > width {
			if cur.Len() > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
			}
			head := cutRunes(word, width)
			lines = append(lines, head)
			word = word[len(head):]
		}
		switch {
		case cur.Len() == 0:
			cur.WriteString(word)
		case cur.Len()+1+len(word) <= width:
			cur.WriteByte(' ')
			cur.WriteString(word)
		default:
			lines = append(lines, cur.String())
			cur.Reset()
			cur.WriteString(word)
		}
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// cutRunes returns the longest prefix of s of at most n bytes that ends on
// a rune boundary, or the first rune when that alone is wider than n.
func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := n
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	if i == 0 {
		_, size := utf8.DecodeRuneInString(s)
		i = size
	}
	return s[:i]
}
