package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"screenlog/internal/client/api"
	"screenlog/internal/client/bus"
	"screenlog/internal/client/cache"
	"screenlog/internal/client/config"
	"screenlog/internal/client/feature"
	"screenlog/internal/client/notify"
	"screenlog/internal/client/optimistic"
	clientrealtime "screenlog/internal/client/realtime"
	"screenlog/internal/client/store"
	"screenlog/internal/realtime"
	"screenlog/pkg/logging"
)

type tokenData struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// app is the wired client runtime: one bus, one persisted store, one
// coordinator, one API client. Every subcommand goes through it.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	bus    *bus.Bus
	store  *store.Store
	api    *api.Client
	coord  *optimistic.Coordinator
	userID string

	stopSync  func()
	tokenPath string
}

func newApp(tokenPath string) *app {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	storage, err := store.NewFileStorage(cfg.DataDir, logger)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}

	b := bus.New(logger)
	st := store.New(storage, b, logger)

	stop, err := st.StartCrossTabSync()
	if err != nil {
		logger.Warn().Err(err).Msg("cross-process sync unavailable")
		stop = func() {}
	}

	client := api.NewClient(cfg.BaseURL)
	a := &app{
		cfg:       cfg,
		log:       logger,
		bus:       b,
		store:     st,
		api:       client,
		coord:     optimistic.NewCoordinator(st, terminalNotify, logger),
		stopSync:  stop,
		tokenPath: tokenPath,
	}

	if td, err := readToken(tokenPath); err == nil {
		client.Token = td.Token
		a.userID = td.UserID
	}
	return a
}

func (a *app) close() {
	a.stopSync()
}

func (a *app) mustAuthed() {
	if a.api.Token == "" {
		log.Fatal("not logged in, run: screenlog auth login")
	}
}

func terminalNotify(message string, kind notify.Kind) {
	switch kind {
	case notify.Error:
		fmt.Println("✖ " + message)
	case notify.Success:
		fmt.Println("✅ " + message)
	default:
		fmt.Println("• " + message)
	}
}

func main() {
	global := flag.NewFlagSet("screenlog", flag.ExitOnError)
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	a := newApp(*tokenPath)
	defer a.close()

	switch cmd {
	case "auth":
		handleAuth(ctx, a, sub, args[2:])
	case "titles":
		handleTitles(ctx, a, sub, args[2:])
	case "rate":
		handleRate(ctx, a, sub, args[2:])
	case "watchlist":
		handleWatchlist(ctx, a, sub, args[2:])
	case "favorite":
		handleFavorite(ctx, a, sub, args[2:])
	case "follow":
		handleFollow(ctx, a, sub, args[2:])
	case "diary":
		handleDiary(ctx, a, sub, args[2:])
	case "customize":
		handleCustomize(ctx, a, sub, args[2:])
	case "watch":
		handleWatch(a, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, a *app, sub string, args []string) {
	switch sub {
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email and password are required")
		}

		resp, err := a.api.Register(ctx, *username, *email, *password)
		if err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(a.tokenPath, tokenData{Token: resp.Token, UserID: resp.User.ID}); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ registered and logged in as " + resp.User.Username)
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		resp, err := a.api.Login(ctx, *email, *password)
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(a.tokenPath, tokenData{Token: resp.Token, UserID: resp.User.ID}); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ logged in as " + resp.User.Username)
	case "logout":
		if a.api.Token != "" {
			if err := a.api.Logout(ctx); err != nil {
				a.log.Warn().Err(err).Msg("remote logout failed")
			}
		}
		if err := clearToken(a.tokenPath); err != nil {
			log.Fatalf("clear token: %v", err)
		}
		// Sign-out wipes the local profile so the next account starts clean.
		a.store.Reset()
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: screenlog auth <register|login|logout>")
	}
}

func handleTitles(ctx context.Context, a *app, sub string, args []string) {
	switch sub {
	case "search":
		fs := flag.NewFlagSet("titles search", flag.ExitOnError)
		q := fs.String("q", "", "search query")
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		resp, err := a.api.SearchTitles(ctx, *q, *limit, *offset)
		if err != nil {
			log.Fatalf("search failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("titles show", flag.ExitOnError)
		id := fs.String("id", "", "title id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("title id is required")
		}

		titleCache, err := cache.Open(a.cfg.CachePath)
		if err == nil {
			defer titleCache.Close()
			if cached, ok, _ := titleCache.Get(*id, 0); ok {
				printJSON(cached)
				return
			}
		}

		title, err := a.api.GetTitle(ctx, *id)
		if err != nil {
			log.Fatalf("show failed: %v", err)
		}
		if titleCache != nil {
			_ = titleCache.Put(*title)
		}
		printJSON(title)
	default:
		log.Fatal("usage: screenlog titles <search|show>")
	}
}

func handleRate(ctx context.Context, a *app, sub string, args []string) {
	a.mustAuthed()
	ratings := feature.NewRatings(a.api, a.store, a.coord)

	switch sub {
	case "set":
		fs := flag.NewFlagSet("rate set", flag.ExitOnError)
		mediaType := fs.String("type", "movie", "movie or tv")
		mediaID := fs.String("id", "", "media id")
		rating := fs.Float64("rating", 0, "rating 0.5-5.0")
		review := fs.String("review", "", "optional review text")
		_ = fs.Parse(args)
		if *mediaID == "" {
			log.Fatal("media id is required")
		}

		if err := ratings.Rate(ctx, *mediaType, *mediaID, *rating, *review); err != nil {
			os.Exit(1)
		}
		rec, _ := ratings.Get(*mediaType, *mediaID)
		printJSON(rec)
	case "remove":
		fs := flag.NewFlagSet("rate remove", flag.ExitOnError)
		mediaType := fs.String("type", "movie", "movie or tv")
		mediaID := fs.String("id", "", "media id")
		_ = fs.Parse(args)
		if *mediaID == "" {
			log.Fatal("media id is required")
		}

		if err := ratings.Remove(ctx, *mediaType, *mediaID); err != nil {
			os.Exit(1)
		}
		fmt.Println("✅ rating removed")
	default:
		log.Fatal("usage: screenlog rate <set|remove>")
	}
}

func handleWatchlist(ctx context.Context, a *app, sub string, args []string) {
	a.mustAuthed()
	wl := feature.NewWatchlist(a.api, a.store, a.coord)

	switch sub {
	case "toggle":
		fs := flag.NewFlagSet("watchlist toggle", flag.ExitOnError)
		mediaType := fs.String("type", "movie", "movie or tv")
		mediaID := fs.String("id", "", "media id")
		_ = fs.Parse(args)
		if *mediaID == "" {
			log.Fatal("media id is required")
		}

		if err := wl.Toggle(ctx, *mediaType, *mediaID); err != nil {
			os.Exit(1)
		}
		if wl.Contains(*mediaType, *mediaID) {
			fmt.Println("✅ added to watchlist")
		} else {
			fmt.Println("✅ removed from watchlist")
		}
	case "list":
		resp, err := listWatchlist(ctx, a)
		if err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: screenlog watchlist <toggle|list>")
	}
}

func handleFavorite(ctx context.Context, a *app, sub string, args []string) {
	a.mustAuthed()
	fav := feature.NewFavorites(a.api, a.bus, a.coord)

	switch sub {
	case "toggle":
		fs := flag.NewFlagSet("favorite toggle", flag.ExitOnError)
		mediaType := fs.String("type", "movie", "movie or tv")
		mediaID := fs.String("id", "", "media id")
		_ = fs.Parse(args)
		if *mediaID == "" {
			log.Fatal("media id is required")
		}

		if err := fav.Toggle(ctx, *mediaType, *mediaID); err != nil {
			os.Exit(1)
		}
		if fav.IsFavorite(*mediaType, *mediaID) {
			fmt.Println("✅ favorited")
		} else {
			fmt.Println("✅ unfavorited")
		}
	default:
		log.Fatal("usage: screenlog favorite toggle")
	}
}

func handleFollow(ctx context.Context, a *app, sub string, args []string) {
	a.mustAuthed()
	fl := feature.NewFollow(a.api, a.bus, a.coord, nil, a.log)

	switch sub {
	case "toggle":
		fs := flag.NewFlagSet("follow toggle", flag.ExitOnError)
		userID := fs.String("user", "", "user id to follow/unfollow")
		_ = fs.Parse(args)
		if *userID == "" {
			log.Fatal("user id is required")
		}

		if _, err := fl.Load(ctx, *userID); err != nil {
			log.Fatalf("load follow state: %v", err)
		}
		if err := fl.Toggle(ctx, *userID); err != nil {
			os.Exit(1)
		}
		state := fl.State(*userID)
		if state.IsFollowing {
			fmt.Printf("✅ following (%d followers)\n", state.FollowersCount)
		} else {
			fmt.Printf("✅ unfollowed (%d followers)\n", state.FollowersCount)
		}
	case "status":
		fs := flag.NewFlagSet("follow status", flag.ExitOnError)
		userID := fs.String("user", "", "user id")
		_ = fs.Parse(args)
		if *userID == "" {
			log.Fatal("user id is required")
		}

		state, err := fl.Load(ctx, *userID)
		if err != nil {
			log.Fatalf("status failed: %v", err)
		}
		printJSON(state)
	default:
		log.Fatal("usage: screenlog follow <toggle|status>")
	}
}

func handleDiary(ctx context.Context, a *app, sub string, args []string) {
	a.mustAuthed()

	switch sub {
	case "add":
		fs := flag.NewFlagSet("diary add", flag.ExitOnError)
		mediaType := fs.String("type", "movie", "movie or tv")
		mediaID := fs.String("id", "", "media id")
		watchedOn := fs.String("date", "", "watched date YYYY-MM-DD (defaults to today)")
		rewatch := fs.Bool("rewatch", false, "mark as rewatch")
		_ = fs.Parse(args)
		if *mediaID == "" {
			log.Fatal("media id is required")
		}

		entry, err := a.api.AddDiaryEntry(ctx, *mediaType, *mediaID, *watchedOn, *rewatch)
		if err != nil {
			log.Fatalf("diary add failed: %v", err)
		}
		printJSON(entry)
	case "list":
		fs := flag.NewFlagSet("diary list", flag.ExitOnError)
		limit := fs.Int("limit", 50, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		entries, err := a.api.ListDiary(ctx, *limit, *offset)
		if err != nil {
			log.Fatalf("diary list failed: %v", err)
		}
		printJSON(entries)
	default:
		log.Fatal("usage: screenlog diary <add|list>")
	}
}

func handleCustomize(ctx context.Context, a *app, sub string, args []string) {
	a.mustAuthed()
	cust := feature.NewCustomizations(a.api, a.store, a.coord, nil, a.log)
	cust.SetViewer(a.userID)

	switch sub {
	case "set":
		fs := flag.NewFlagSet("customize set", flag.ExitOnError)
		mediaType := fs.String("type", "movie", "movie or tv")
		mediaID := fs.String("id", "", "media id")
		poster := fs.String("poster", "", "custom poster URL")
		banner := fs.String("banner", "", "custom banner URL")
		_ = fs.Parse(args)
		if *mediaID == "" {
			log.Fatal("media id is required")
		}
		if *poster == "" && *banner == "" {
			log.Fatal("poster or banner is required")
		}

		var patch store.CustomizationPatch
		if *poster != "" {
			patch.CustomPoster = poster
		}
		if *banner != "" {
			patch.CustomBanner = banner
		}

		if err := cust.Set(ctx, *mediaType, *mediaID, patch); err != nil {
			os.Exit(1)
		}
		rec, _ := cust.Get(*mediaType, *mediaID)
		printJSON(rec)
	default:
		log.Fatal("usage: screenlog customize set")
	}
}

func handleWatch(a *app, sub string, args []string) {
	switch sub {
	case "subject":
		fs := flag.NewFlagSet("watch subject", flag.ExitOnError)
		subject := fs.String("subject", "", "subject, e.g. profile/<user_id>")
		_ = fs.Parse(args)
		if *subject == "" {
			log.Fatal("subject is required")
		}

		source := clientrealtime.NewWSSource(a.cfg.WSURL, a.log)
		defer source.Close()

		sub, err := source.Subscribe(*subject, func(doc clientrealtime.Document) {
			if !doc.Found {
				fmt.Println("(gone)")
				return
			}
			fmt.Println(string(doc.Data))
		})
		if err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
		defer sub.Unsubscribe()

		waitForInterrupt()
	case "firehose":
		fs := flag.NewFlagSet("watch firehose", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP firehose address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := tailFirehose(*addr, *pretty); err != nil {
				log.Printf("[watch] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	default:
		log.Fatal("usage: screenlog watch <subject|firehose>")
	}
}

func tailFirehose(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[watch] connected to %s", addr)
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var ev realtime.ChangeEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(ev, "", "  ")
		fmt.Println(string(b))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func listWatchlist(ctx context.Context, a *app) (map[string]any, error) {
	items := a.store.Snapshot().Watchlist
	out := make(map[string]any, len(items))
	for key, rec := range items {
		out[string(key)] = rec
	}
	return out, nil
}

func waitForInterrupt() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.screenlog-token.json"
	}
	return filepath.Join(home, ".screenlog", "token.json")
}

func saveToken(path string, td tokenData) error {
	if td.Token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (tokenData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tokenData{}, err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return tokenData{}, err
	}
	td.Token = strings.TrimSpace(td.Token)
	return td, nil
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func printUsage() {
	fmt.Println("screenlog <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth register|login|logout")
	fmt.Println("  titles search|show")
	fmt.Println("  rate set|remove")
	fmt.Println("  watchlist toggle|list")
	fmt.Println("  favorite toggle")
	fmt.Println("  follow toggle|status")
	fmt.Println("  diary add|list")
	fmt.Println("  customize set")
	fmt.Println("  watch subject|firehose")
}
