// spunky - Urban Terror 4.x administration bot
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/seanbarr1988/spunkybot/internal/collector"
	"github.com/seanbarr1988/spunkybot/internal/config"
	"github.com/seanbarr1988/spunkybot/internal/domain"
	"github.com/seanbarr1988/spunkybot/internal/lookup"
	"github.com/seanbarr1988/spunkybot/internal/notify"
	"github.com/seanbarr1988/spunkybot/internal/rcon"
	"github.com/seanbarr1988/spunkybot/internal/storage"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"
)

var version = "dev"

const (
	defaultConfigPath = "./conf/settings.yml"
	banFileName       = "bot-banlist.txt"
	banListLimit      = 100
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "rcon":
		cmdRcon(os.Args[2:])
	case "bans":
		cmdBans(os.Args[2:])
	case "putgroup":
		cmdPutGroup(os.Args[2:])
	case "backup":
		cmdBackup(os.Args[2:])
	case "restore":
		cmdRestore(os.Args[2:])
	case "version":
		fmt.Printf("spunky %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: spunky <command> [options] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run                              Start the bot")
	fmt.Println("  rcon <command...>                Send one RCON command and print the reply")
	fmt.Println("  bans                             List active bans")
	fmt.Println("  putgroup --guid G --role R       Set the stored admin role of a GUID")
	fmt.Println("  backup --out FILE                Write a compressed database snapshot")
	fmt.Println("  restore --in FILE --db PATH      Restore a snapshot into a new database file")
	fmt.Println("  version                          Show version")
	fmt.Println("  help                             Show this help")
	fmt.Println()
	fmt.Println("Every command except version and help accepts --config (default " + defaultConfigPath + ").")
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	return cfg
}

// newLogger builds the text logger. With log.file set every record is
// written to stdout and appended to the file.
func newLogger(lc config.LogConfig) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if strings.EqualFold(lc.Level, "debug") {
		level = slog.LevelDebug
	}
	var out io.Writer = os.Stdout
	closer := func() {}
	if lc.File != "" {
		if err := os.MkdirAll(filepath.Dir(lc.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(lc.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closer = func() { f.Close() }
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), closer, nil
}

func openStore(path string) *storage.Store {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fatal("failed to create database directory: %v", err)
	}
	store, err := storage.New(path)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	return store
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		fatal("%v", err)
	}
	defer closeLog()

	password, err := cfg.RequirePassword()
	if err != nil {
		fatal("%v", err)
	}

	logger.Info("spunky starting", "version", version, "server", cfg.Server.Address, "log_file", cfg.Server.LogFile)

	store := openStore(cfg.Database.Path)
	defer store.Close()
	logger.Info("database initialized", "path", cfg.Database.Path)

	var geo lookup.Geolocator = lookup.NoGeo{}
	if cfg.Lookup.GeoIPDB != "" {
		g, err := lookup.OpenGeoIP(cfg.Lookup.GeoIPDB)
		if err != nil {
			logger.Warn("geolocation disabled", "err", err)
		} else {
			defer g.Close()
			geo = g
		}
	}

	var rep lookup.ReputationChecker = lookup.NoReputation{}
	if cfg.Lookup.IPHubKey != "" {
		rep = lookup.NewIPHub(cfg.Lookup.IPHubKey, logger)
	}

	var sinks notify.Multi
	nc := cfg.Notify
	if nc.DiscordReportWebhook != "" || nc.DiscordBanWebhook != "" {
		d, err := notify.NewDiscord(nc.DiscordReportWebhook, nc.DiscordBanWebhook)
		if err != nil {
			logger.Warn("discord notifications disabled", "err", err)
		} else {
			sinks = append(sinks, d)
		}
	}
	if nc.NATSURL != "" {
		n, err := notify.ConnectNATS(nc.NATSURL, nc.NATSSubject, logger)
		if err != nil {
			logger.Warn("nats notifications disabled", "err", err)
		} else {
			defer n.Close()
			sinks = append(sinks, n)
		}
	}

	client := rcon.NewClient(cfg.Server.Address, password, cfg.Server.RconTimeout)
	dispatcher := rcon.NewDispatcher(client, cfg.Server.RconDelay, cfg.Server.PMTag, logger)

	bot := collector.New(cfg, collector.Deps{
		Server:     dispatcher,
		Store:      store,
		Geo:        geo,
		Reputation: rep,
		Auth:       lookup.NewAuthChecker(cfg.Lookup.AuthStatusURL, logger),
		Notifier:   sinks,
		BanFile:    storage.NewBanFile(filepath.Join(filepath.Dir(cfg.Database.Path), banFileName)),
		Logger:     logger,
		Version:    version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bot.Run(ctx); err != nil {
		logger.Error("bot stopped", "err", err)
		closeLog()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func cmdRcon(args []string) {
	fs := flag.NewFlagSet("rcon", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to config file")
	fs.Parse(args)

	command := strings.Join(fs.Args(), " ")
	if command == "" {
		fatal("rcon command required")
	}
	cfg := loadConfig(*configPath)

	password, err := cfg.RequirePassword()
	if errors.Is(err, config.ErrNoPassword) {
		fmt.Print("RCON password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			fatal("failed to read password: %v", err)
		}
		password = string(raw)
	}

	client := rcon.NewClient(cfg.Server.Address, password, cfg.Server.RconTimeout)
	resp, err := client.Command(command)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Print(resp)
	if !strings.HasSuffix(resp, "\n") {
		fmt.Println()
	}
}

func cmdBans(args []string) {
	fs := flag.NewFlagSet("bans", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	store := openStore(cfg.Database.Path)
	defer store.Close()

	bans, err := store.ActiveBans(context.Background(), time.Now(), banListLimit)
	if err != nil {
		fatal("failed to list bans: %v", err)
	}
	if len(bans) == 0 {
		fmt.Println("No active bans")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tIP\tEXPIRES\tREASON")
	fmt.Fprintln(w, "--\t----\t--\t-------\t------")
	for _, b := range bans {
		fmt.Fprintf(w, "@%d\t%s\t%s\t%s\t%s\n", b.ID, b.Name, b.IP, b.Expires, b.Reason)
	}
	w.Flush()
}

// parseRole accepts a group name as used by !putgroup or a level number.
func parseRole(s string) (int, error) {
	if role, ok := domain.Groups[strings.ToLower(s)]; ok {
		return role, nil
	}
	role, err := strconv.Atoi(s)
	if err != nil || domain.RoleName(role) == "Unknown" {
		return 0, fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

func cmdPutGroup(args []string) {
	fs := flag.NewFlagSet("putgroup", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to config file")
	guid := fs.String("guid", "", "player GUID")
	roleText := fs.String("role", "", "group name or level")
	fs.Parse(args)

	if *guid == "" || *roleText == "" {
		fatal("--guid and --role are required")
	}
	role, err := parseRole(*roleText)
	if err != nil {
		fatal("%v", err)
	}

	cfg := loadConfig(*configPath)
	store := openStore(cfg.Database.Path)
	defer store.Close()

	if err := store.SetRole(context.Background(), *guid, role); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fatal("GUID %s is not registered", *guid)
		}
		fatal("failed to set role: %v", err)
	}
	fmt.Printf("%s put in group %s\n", *guid, domain.RoleName(role))
}

func cmdBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to config file")
	out := fs.String("out", "", "snapshot file to write (.db.zst)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	path := *out
	if path == "" {
		path = fmt.Sprintf("%s.%s.zst", cfg.Database.Path, time.Now().Format("20060102-150405"))
	}

	store := openStore(cfg.Database.Path)
	defer store.Close()

	n, err := store.BackupFile(context.Background(), path)
	if err != nil {
		fatal("backup failed: %v", err)
	}
	fmt.Printf("Wrote %s (%d bytes of database)\n", path, n)
}

func cmdRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	in := fs.String("in", "", "snapshot file written by backup")
	db := fs.String("db", "", "database file to create")
	fs.Parse(args)

	if *in == "" || *db == "" {
		fatal("--in and --db are required")
	}
	if _, err := os.Stat(*db); err == nil {
		fatal("%s already exists", *db)
	}
	f, err := os.Open(*in)
	if err != nil {
		fatal("%v", err)
	}
	defer f.Close()

	if err := storage.Restore(f, *db); err != nil {
		fatal("restore failed: %v", err)
	}
	fmt.Printf("Restored %s into %s\n", *in, *db)
}
