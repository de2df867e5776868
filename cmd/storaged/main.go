// Command storaged runs one storage host: it loads the cluster's
// space/partition/schema configuration, registers each space the
// process is responsible for against a storageengine.Engine, and
// serves the internal RPC surface over HTTP via internal/rpcserver.
//
// Configuration:
//
//	-config   path to the cluster YAML configuration (required)
//	-listen   HTTP listen address (default ":9779")
//	-db_path  directory of per-space snapshot files; if set, each
//	          space's <name>.db is loaded at startup (if present) and
//	          saved back on graceful shutdown
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dreamware/nebulet/internal/config"
	"github.com/dreamware/nebulet/internal/kv"
	"github.com/dreamware/nebulet/internal/rpcserver"
	"github.com/dreamware/nebulet/internal/storageengine"
)

func main() {
	configPath := flag.String("config", "", "path to cluster YAML configuration")
	listen := flag.String("listen", ":9779", "HTTP listen address")
	dbPath := flag.String("db_path", "", "directory of per-space snapshot files")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *configPath == "" {
		log.Fatal("storaged: -config is required")
	}

	cluster, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("storaged: failed to load configuration")
	}

	schemas, err := cluster.BuildSchemaRegistry()
	if err != nil {
		log.WithError(err).Fatal("storaged: failed to build schema registry")
	}

	engine := storageengine.NewEngine(log)
	spaceStores := make(map[string]*kv.MemoryStore, len(cluster.Spaces))
	for _, sp := range cluster.Spaces {
		store := loadOrCreateStore(*dbPath, sp.Name, log)
		spaceStores[sp.Name] = store
		engine.RegisterSpace(sp.Name, sp.VidLen, sp.PartCount, store, schemas)
		log.WithFields(logrus.Fields{"space": sp.Name, "parts": sp.PartCount, "vid_len": sp.VidLen}).Info("storaged: registered space")
	}

	srv := rpcserver.New(engine, log)
	httpSrv := &http.Server{
		Addr:              *listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", *listen).Info("storaged: listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("storaged: listen failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("storaged: shutdown error")
	}

	if *dbPath != "" {
		for name, store := range spaceStores {
			path := snapshotPath(*dbPath, name)
			if err := store.SaveSnapshot(path); err != nil {
				log.WithError(err).WithField("space", name).Warn("storaged: failed to save snapshot")
				continue
			}
			log.WithFields(logrus.Fields{"space": name, "path": path}).Info("storaged: saved snapshot")
		}
	}
	log.Info("storaged: stopped")
}

func snapshotPath(dir, space string) string {
	return filepath.Join(dir, space+".db")
}

// loadOrCreateStore loads space's snapshot from dir if dbPath is set and
// the file exists, otherwise returns a fresh MemoryStore.
func loadOrCreateStore(dbPath, space string, log *logrus.Logger) *kv.MemoryStore {
	if dbPath == "" {
		return kv.NewMemoryStore()
	}
	path := snapshotPath(dbPath, space)
	store, err := kv.LoadSnapshot(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).WithField("space", space).Warn("storaged: failed to load snapshot, starting empty")
		}
		return kv.NewMemoryStore()
	}
	log.WithFields(logrus.Fields{"space": space, "path": path}).Info("storaged: loaded snapshot")
	return store
}
