package main

import (
	"net/http"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/cache"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/chat"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/config"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/globals"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/persistence"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/ws"
	"github.com/spf13/pflag"
)

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	addr       = pflag.String("addr", "localhost:8000", "service address (including port)")
	sslCert    = pflag.String("ssl-cert", "", "SSL cert (optional)")
	sslKey     = pflag.String("ssl-key", "", "SSL key (optional)")
)

func main() {
	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	cfg, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}
	globals.AppLogger.SetLevel(hclog.LevelFromString(cfg.LogLevel))

	gormStore, err := persistence.NewGormStore(cfg)
	if err != nil {
		panic(err)
	}
	var store persistence.Store = gormStore
	if cfg.PersistenceConfig.MessageLog == "buntdb" {
		log, err := persistence.NewBuntMessageLog(cfg.PersistenceConfig.MessageLogDSN)
		if err != nil {
			panic(err)
		}
		store = persistence.NewSplitStore(gormStore, log)
		globals.AppLogger.Info("message log routed to buntdb", "path", cfg.PersistenceConfig.MessageLogDSN)
	}
	defer store.Close()

	directory := persistence.NewGormDirectory(gormStore.DB())

	var msgCache cache.MessageCache
	if cfg.CacheConfig.Addr != "" {
		redisCache, err := cache.NewRedisMessageCache(cfg)
		if err != nil {
			panic(err)
		}
		defer redisCache.Close()
		msgCache = redisCache
		globals.AppLogger.Info("message cache enabled", "addr", cfg.CacheConfig.Addr, "ttl", cfg.CacheConfig.TTL)
	}

	hub := ws.NewHub(cfg.ChatConfig.IdleTTL, cfg.ChatConfig.SweepSpec)
	go hub.Run()
	defer hub.Stop()

	coordinator, err := chat.NewCoordinator(store, msgCache, directory, directory, directory, hub, cfg)
	if err != nil {
		panic(err)
	}

	srv := &server{coordinator: coordinator, hub: hub}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		globals.AppLogger.Info("interrupted, shutting down")
		hub.Stop()
		store.Close()
		os.Exit(0)
	}()

	globals.AppLogger.Info("listening", "addr", *addr)
	if *sslCert != "" && *sslKey != "" {
		err = http.ListenAndServeTLS(*addr, *sslCert, *sslKey, srv.routes())
	} else {
		err = http.ListenAndServe(*addr, srv.routes())
	}
	if err != nil {
		globals.AppLogger.Error("server stopped", "error", err)
	}
}
