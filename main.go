package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/c137req/crewbase/internal/api"
	"github.com/c137req/crewbase/internal/config"
	"github.com/c137req/crewbase/internal/ingest"
	"github.com/c137req/crewbase/internal/store"
)

func main() {
	cfg_path := flag.String("config", "", "path to crewbase.toml")
	bind := flag.String("bind", "", "override the api bind address")
	db_path := flag.String("db", "", "override the database path")
	do_import := flag.Bool("import", false, "ingest the files given as arguments and exit")
	daemon := flag.String("daemon", "", "daemon control: start, stop, status")
	verbose := flag.Bool("v", false, "debug logging")

	flag.Parse()

	// .env first so a config file can still be pointed at via env
	godotenv.Load()

	cfg, err := config.Load(*cfg_path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *bind != "" {
		cfg.Bind = *bind
	}
	if *db_path != "" {
		cfg.Database = *db_path
	}

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	switch {
	case *do_import:
		if err := _run_import(cfg, log, flag.Args()); err != nil {
			log.WithError(err).Fatal("import failed")
		}

	case *daemon != "":
		_run_daemon(cfg, log, *daemon)

	default:
		fmt.Fprintln(os.Stderr, "usage: crewbase -daemon <start|stop|status> [-config path] [-bind addr] [-db path] [-v]")
		fmt.Fprintln(os.Stderr, "       crewbase -import [-db path] file.xlsx [file.xlsx ...]")
		os.Exit(1)
	}
}

// _run_import is the one-shot CLI path: ingest the named workbooks into the
// store without the HTTP layer.
func _run_import(cfg *config.Config, log *logrus.Logger, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no files supplied")
	}

	st, err := store.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer st.Close()

	ing := ingest.New(st, ingest.NewProgress(), log)

	files := make([]ingest.BatchFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, ingest.BatchFile{Path: p, OrigName: filepath.Base(p)})
	}

	if err := ing.Run(context.Background(), files); err != nil {
		return err
	}

	snap := ing.Progress().Snapshot()
	log.WithFields(logrus.Fields{
		"files": len(files),
		"rows":  snap.Processed,
	}).Info("import complete")
	return nil
}

func _run_daemon(cfg *config.Config, log *logrus.Logger, cmd string) {
	switch cmd {
	case "start":
		st, err := store.Open(cfg.Database, log)
		if err != nil {
			log.WithError(err).Fatal("failed to open store")
		}
		defer st.Close()

		ing := ingest.New(st, ingest.NewProgress(), log)
		srv := api.NewServer(api.Options{
			Bind:       cfg.Bind,
			MaxBody:    cfg.MaxBody,
			RateRPM:    cfg.RateRPM,
			CORSOrigin: cfg.CORSOrigin,
			ScratchDir: cfg.ScratchDir,
		}, st, ing, log)

		if err := api.DaemonStart(srv, cfg.PidFile); err != nil {
			log.WithError(err).Fatal("daemon start failed")
		}

	case "stop":
		if err := api.DaemonStop(cfg.PidFile, log); err != nil {
			log.WithError(err).Fatal("daemon stop failed")
		}

	case "status":
		api.DaemonStatus(cfg.PidFile, log)

	default:
		fmt.Fprintf(os.Stderr, "unknown daemon command: %s (use start, stop, or status)\n", cmd)
		os.Exit(1)
	}
}
