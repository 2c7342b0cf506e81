package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seanbarr1988/spunkybot/internal/domain"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const (
	timeLayout  = "2006-01-02 15:04:05"
	maxListSize = 15
	listSep     = ", "
)

// formatTimestamp renders t in the sortable UTC form stored in every
// DATETIME column, so expiry checks can compare strings.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

//go:embed schema.sql
var schema string

// Store provides database access
type Store struct {
	db   *sql.DB
	path string
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Players ---

// PlayerRecord is everything the bot loads about a GUID on connect.
type PlayerRecord struct {
	ID         int64
	GUID       string
	Name       string
	IP         string
	Aliases    []string
	Networks   []string
	Registered bool
	Role       int
	FirstSeen  string
	LastVisit  string
	Stats      domain.StoredStats
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}

// appendCapped adds v unless it is present or the list is full.
func appendCapped(list []string, v string) ([]string, bool) {
	for _, x := range list {
		if x == v {
			return list, false
		}
	}
	if len(list) >= maxListSize {
		return list, false
	}
	return append(list, v), true
}

// SyncPlayer records a connecting player. A new GUID gets a player row. A
// known one has its name, address and join time refreshed and the alias
// and network lists extended. Registered players also have their stats
// loaded and their visit counted.
func (s *Store) SyncPlayer(ctx context.Context, guid, name, ip string, now time.Time) (*PlayerRecord, error) {
	ts := formatTimestamp(now)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rec := &PlayerRecord{GUID: guid, Name: name, IP: ip}
	var aliases, networks sql.NullString
	err = tx.QueryRowContext(ctx, "SELECT id, aliases, networks FROM player WHERE guid = ?", guid).Scan(&rec.ID, &aliases, &networks)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO player (guid, name, ip_address, time_joined, aliases, networks)
			VALUES (?, ?, ?, ?, ?, ?)
		`, guid, name, ip, ts, name, ip)
		if err != nil {
			return nil, fmt.Errorf("inserting player: %w", err)
		}
		if rec.ID, err = res.LastInsertId(); err != nil {
			return nil, err
		}
		rec.Aliases = []string{name}
		rec.Networks = []string{ip}
	case err != nil:
		return nil, fmt.Errorf("querying player: %w", err)
	default:
		rec.Aliases = splitList(aliases.String)
		rec.Networks = splitList(networks.String)
		rec.Aliases, _ = appendCapped(rec.Aliases, name)
		rec.Networks, _ = appendCapped(rec.Networks, ip)
		if _, err := tx.ExecContext(ctx, `
			UPDATE player SET name = ?, ip_address = ?, time_joined = ?, aliases = ?, networks = ?
			WHERE guid = ?
		`, name, ip, ts, strings.Join(rec.Aliases, listSep), strings.Join(rec.Networks, listSep), guid); err != nil {
			return nil, fmt.Errorf("updating player: %w", err)
		}
	}

	var firstSeen, lastPlayed sql.NullString
	st := &rec.Stats
	err = tx.QueryRowContext(ctx, `
		SELECT last_played, num_played, kills, deaths, headshots, team_kills, team_death,
			max_kill_streak, suicides, admin_role, first_seen, flags_captured, flags_returned,
			flags_dropped, assists, rounds
		FROM xlrstats WHERE guid = ?
	`, guid).Scan(&lastPlayed, &st.NumPlayed, &st.Kills, &st.Deaths, &st.Headshots, &st.TeamKills,
		&st.TeamDeaths, &st.MaxStreak, &st.Suicides, &rec.Role, &firstSeen, &st.FlagsCaptured,
		&st.FlagsReturned, &st.FlagsDropped, &st.Assists, &st.Rounds)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec.Role = domain.RoleGuest
	case err != nil:
		return nil, fmt.Errorf("querying xlrstats: %w", err)
	default:
		rec.Registered = true
		rec.FirstSeen = firstSeen.String
		rec.LastVisit = lastPlayed.String
		if _, err := tx.ExecContext(ctx, `
			UPDATE xlrstats SET name = ?, last_played = ?, num_played = num_played + 1 WHERE guid = ?
		`, name, ts, guid); err != nil {
			return nil, fmt.Errorf("updating xlrstats: %w", err)
		}
	}

	return rec, tx.Commit()
}

// PlayerByID loads a stored player that may not be connected.
func (s *Store) PlayerByID(ctx context.Context, id int64) (*PlayerRecord, error) {
	rec := &PlayerRecord{ID: id}
	var aliases, networks sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT guid, name, ip_address, aliases, networks FROM player WHERE id = ?", id).
		Scan(&rec.GUID, &rec.Name, &rec.IP, &aliases, &networks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Aliases = splitList(aliases.String)
	rec.Networks = splitList(networks.String)

	var lastPlayed, firstSeen sql.NullString
	err = s.db.QueryRowContext(ctx, "SELECT last_played, first_seen, admin_role FROM xlrstats WHERE guid = ?", rec.GUID).
		Scan(&lastPlayed, &firstSeen, &rec.Role)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec.Role = domain.RoleGuest
	case err != nil:
		return nil, err
	default:
		rec.Registered = true
		rec.LastVisit = lastPlayed.String
		rec.FirstSeen = firstSeen.String
	}
	return rec, nil
}

// PlayerRow is one !lookup result.
type PlayerRow struct {
	ID         int64
	Name       string
	TimeJoined string
}

// SearchPlayers returns players whose name contains pattern, most recent first.
func (s *Store) SearchPlayers(ctx context.Context, pattern string, limit int) ([]PlayerRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, time_joined FROM player WHERE name LIKE ? ORDER BY time_joined DESC LIMIT ?
	`, "%"+pattern+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerRow
	for rows.Next() {
		var r PlayerRow
		var joined sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &joined); err != nil {
			return nil, err
		}
		r.TimeJoined = joined.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- XLR stats ---

// RegisterUser creates the xlrstats row for a GUID. It is a no-op when the
// row already exists.
func (s *Store) RegisterUser(ctx context.Context, guid, name, ip string, role int, now time.Time) error {
	ts := formatTimestamp(now)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO xlrstats (guid, name, ip_address, first_seen, last_played, num_played, admin_role)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(guid) DO NOTHING
	`, guid, name, ip, ts, ts, role)
	if err != nil {
		return fmt.Errorf("registering %s: %w", guid, err)
	}
	return nil
}

// SetRole changes the stored admin role of a registered GUID.
func (s *Store) SetRole(ctx context.Context, guid string, role int) error {
	res, err := s.db.ExecContext(ctx, "UPDATE xlrstats SET admin_role = ? WHERE guid = ?", role, guid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// HeadAdminExists reports whether any GUID holds the head admin role.
func (s *Store) HeadAdminExists(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM xlrstats WHERE admin_role = ?", domain.RoleHeadAdmin).Scan(&n)
	return n > 0, err
}

// LoadStats reads the lifetime counters of a registered GUID.
func (s *Store) LoadStats(ctx context.Context, guid string) (domain.StoredStats, error) {
	var st domain.StoredStats
	err := s.db.QueryRowContext(ctx, `
		SELECT num_played, kills, deaths, headshots, team_kills, team_death, max_kill_streak,
			suicides, flags_captured, flags_returned, flags_dropped, assists, rounds
		FROM xlrstats WHERE guid = ?
	`, guid).Scan(&st.NumPlayed, &st.Kills, &st.Deaths, &st.Headshots, &st.TeamKills, &st.TeamDeaths,
		&st.MaxStreak, &st.Suicides, &st.FlagsCaptured, &st.FlagsReturned, &st.FlagsDropped,
		&st.Assists, &st.Rounds)
	if errors.Is(err, sql.ErrNoRows) {
		return st, ErrNotFound
	}
	return st, err
}

// SaveStats writes the lifetime counters at match end and counts a round.
func (s *Store) SaveStats(ctx context.Context, guid string, st domain.StoredStats, gear string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE xlrstats SET kills = ?, deaths = ?, headshots = ?, team_kills = ?, team_death = ?,
			max_kill_streak = ?, suicides = ?, rounds = rounds + 1, ratio = ?, flags_captured = ?,
			flags_returned = ?, flags_dropped = ?, assists = ?,
			gear = CASE WHEN ? = '' THEN gear ELSE ? END
		WHERE guid = ?
	`, st.Kills, st.Deaths, st.Headshots, st.TeamKills, st.TeamDeaths, st.MaxStreak, st.Suicides,
		st.Ratio(), st.FlagsCaptured, st.FlagsReturned, st.FlagsDropped, st.Assists, gear, gear, guid)
	if err != nil {
		return fmt.Errorf("saving stats for %s: %w", guid, err)
	}
	return nil
}

// TopPlayers returns up to three names by ratio among players with enough
// rounds or kills who played since the given time.
func (s *Store) TopPlayers(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM xlrstats
		WHERE (rounds > 35 OR kills > 500) AND last_played > ?
		ORDER BY ratio DESC LIMIT 3
	`, formatTimestamp(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// LikeMap adds m to the GUID's liked maps, keeping the three most recent.
func (s *Store) LikeMap(ctx context.Context, guid, m string) ([]string, error) {
	var liked sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT liked_map FROM xlrstats WHERE guid = ?", guid).Scan(&liked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	list := splitList(liked.String)
	kept := list[:0]
	for _, x := range list {
		if x != m {
			kept = append(kept, x)
		}
	}
	list = append(kept, m)
	if len(list) > 3 {
		list = list[len(list)-3:]
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE xlrstats SET liked_map = ? WHERE guid = ?", strings.Join(list, listSep), guid); err != nil {
		return nil, err
	}
	return list, nil
}

// --- Bans ---

// Ban is one ban_list row.
type Ban struct {
	ID        int64
	GUID      string
	Name      string
	IP        string
	Expires   string
	Timestamp string
	Reason    string
}

// BanRequest describes a ban to write. PlayerID becomes the row id so
// admins can !unban by the player's @id.
type BanRequest struct {
	PlayerID int64
	GUID     string
	Name     string
	IP       string
	Duration time.Duration
	Reason   string
}

// AddBan writes or extends the ban of a GUID. It returns true when a new
// row was written or the existing expiry moved later. Otherwise only the
// address is refreshed.
func (s *Store) AddBan(ctx context.Context, req BanRequest, now time.Time) (bool, error) {
	expires := formatTimestamp(now.Add(req.Duration))
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT expires FROM ban_list WHERE guid = ?", req.GUID).Scan(&current)
	extended := true
	switch {
	case errors.Is(err, sql.ErrNoRows):
		var id interface{}
		if req.PlayerID > 0 {
			id = req.PlayerID
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ban_list (id, guid, name, ip_address, expires, timestamp, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, req.GUID, req.Name, req.IP, expires, formatTimestamp(now), req.Reason)
	case err != nil:
		return false, fmt.Errorf("querying ban: %w", err)
	case current < expires:
		_, err = tx.ExecContext(ctx, "UPDATE ban_list SET ip_address = ?, expires = ? WHERE guid = ?", req.IP, expires, req.GUID)
	default:
		extended = false
		_, err = tx.ExecContext(ctx, "UPDATE ban_list SET ip_address = ? WHERE guid = ?", req.IP, req.GUID)
	}
	if err != nil {
		return false, fmt.Errorf("writing ban: %w", err)
	}
	return extended, tx.Commit()
}

const banColumns = "id, guid, name, ip_address, expires, timestamp, reason"

// ActiveBan returns the unexpired ban matching guid, or failing that ip.
func (s *Store) ActiveBan(ctx context.Context, guid, ip string, now time.Time) (*Ban, error) {
	ts := formatTimestamp(now)
	for _, q := range []struct{ col, val string }{{"guid", guid}, {"ip_address", ip}} {
		if q.val == "" {
			continue
		}
		rows, err := s.db.QueryContext(ctx, "SELECT "+banColumns+" FROM ban_list WHERE "+q.col+" = ? AND expires > ? LIMIT 1", q.val, ts)
		if err != nil {
			return nil, err
		}
		bans, err := scanBans(rows)
		if err != nil {
			return nil, err
		}
		if len(bans) > 0 {
			return &bans[0], nil
		}
	}
	return nil, ErrNotFound
}

// ActiveBans returns up to limit unexpired bans, newest first.
func (s *Store) ActiveBans(ctx context.Context, now time.Time, limit int) ([]Ban, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+banColumns+" FROM ban_list WHERE expires > ? ORDER BY timestamp DESC LIMIT ?", formatTimestamp(now), limit)
	if err != nil {
		return nil, err
	}
	return scanBans(rows)
}

// LastBans returns the most recent bans whether or not they expired.
func (s *Store) LastBans(ctx context.Context, limit int) ([]Ban, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+banColumns+" FROM ban_list ORDER BY timestamp DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	return scanBans(rows)
}

// Unban deletes the ban with the given id and every other ban sharing its
// GUID or address. It returns the removed row.
func (s *Store) Unban(ctx context.Context, id int64) (*Ban, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+banColumns+" FROM ban_list WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	bans, err := scanBans(rows)
	if err != nil {
		return nil, err
	}
	if len(bans) == 0 {
		return nil, ErrNotFound
	}
	b := bans[0]
	if _, err := s.db.ExecContext(ctx, "DELETE FROM ban_list WHERE id = ? OR guid = ? OR ip_address = ?", id, b.GUID, b.IP); err != nil {
		return nil, fmt.Errorf("deleting ban: %w", err)
	}
	return &b, nil
}

// --- Ban points ---

// AddBanPoint records a ban point and returns how many unexpired points the
// GUID now holds.
func (s *Store) AddBanPoint(ctx context.Context, guid, pointType string, duration time.Duration, now time.Time) (int, error) {
	if _, err := s.db.ExecContext(ctx, "INSERT INTO ban_points (guid, point_type, expires) VALUES (?, ?, ?)",
		guid, pointType, formatTimestamp(now.Add(duration))); err != nil {
		return 0, fmt.Errorf("adding ban point: %w", err)
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ban_points WHERE guid = ? AND expires > ?", guid, formatTimestamp(now)).Scan(&n)
	return n, err
}

// ClearBanPoints removes the unexpired points of a GUID.
func (s *Store) ClearBanPoints(ctx context.Context, guid string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM ban_points WHERE guid = ? AND expires > ?", guid, formatTimestamp(now))
	return err
}

// PurgeBanPoints deletes expired points and returns how many were removed.
func (s *Store) PurgeBanPoints(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM ban_points WHERE expires < ?", formatTimestamp(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Map votes ---

// RecordMapVote counts one passed or failed g_nextmap vote.
func (s *Store) RecordMapVote(ctx context.Context, m string, passed bool) error {
	passedInc, failedInc := 0, 1
	if passed {
		passedInc, failedInc = 1, 0
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mapvotes (map, passed, failed) VALUES (?, ?, ?)
		ON CONFLICT(map) DO UPDATE SET passed = passed + excluded.passed, failed = failed + excluded.failed
	`, m, passedInc, failedInc)
	return err
}

// MapVotes returns the vote tallies of a map.
func (s *Store) MapVotes(ctx context.Context, m string) (passed, failed int, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT passed, failed FROM mapvotes WHERE map = ?", m).Scan(&passed, &failed)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, nil
	}
	return passed, failed, err
}
