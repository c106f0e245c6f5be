package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/byokey/byokey/internal/api"
	"github.com/byokey/byokey/internal/auth"
	"github.com/byokey/byokey/internal/byok"
	"github.com/byokey/byokey/internal/config"
	"github.com/byokey/byokey/internal/store"
	"github.com/byokey/byokey/internal/util"
)

type LogFormatter struct {
}

func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	newLog := fmt.Sprintf("[%s] [%s] %s\n", timestamp, entry.Level, entry.Message)

	b.WriteString(newLog)
	return b.Bytes(), nil
}

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&LogFormatter{})
}

func main() {
	var loginProvider string
	var configPath string
	var debug bool

	flag.StringVar(&loginProvider, "login", "", "Login to a provider (claude, codex, gemini, ...)")
	flag.StringVar(&configPath, "config", "", "Configure File Path")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")

	flag.Parse()

	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("failed to get home directory: %v", err)
		}
		configPath = path.Join(home, ".byokey", "config.yaml")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Warnf("config file not loaded, using defaults: %v", err)
		cfg = config.Default()
	}

	client := util.SetProxy(cfg.ProxyURL, &http.Client{Timeout: 300 * time.Second})

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Fatalf("failed to resolve token database path: %v", err)
		}
	}
	tokenStore, err := store.OpenSQLite(dbPath)
	if err != nil {
		log.Fatalf("failed to open token database: %v", err)
	}
	defer func() { _ = tokenStore.Close() }()

	manager := auth.NewManager(tokenStore, client)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if loginProvider != "" {
		provider, errParse := byok.ParseProvider(loginProvider)
		if errParse != nil {
			log.Fatalf("unknown provider %q: %v", loginProvider, errParse)
		}
		if _, errLogin := manager.Login(ctx, provider); errLogin != nil {
			log.Fatalf("login failed: %v", errLogin)
		}
		return
	}

	cfgStore := config.NewStore(cfg)
	if _, errStat := os.Stat(configPath); errStat == nil {
		watcher, errWatch := config.NewWatcher(configPath, cfgStore)
		if errWatch != nil {
			log.Fatalf("failed to create config watcher: %v", errWatch)
		}
		if errWatch = watcher.Start(ctx); errWatch != nil {
			log.Fatalf("failed to watch config file: %v", errWatch)
		}
		defer func() { _ = watcher.Close() }()
	}

	server := api.NewServer(cfgStore, manager, client)
	if err = server.Run(ctx); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
