/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command mink-configd is the configuration daemon: it owns the gdt/config
// store, commit log and NOTIFY fan-out, and speaks
// GDT+Registration+Config+Service with its peers (SPEC_FULL.md §2's
// process topology).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	libctx "github.com/minkfabric/mink/context"
	liberr "github.com/minkfabric/mink/errors"
	"github.com/minkfabric/mink/gdt"
	"github.com/minkfabric/mink/gdt/client"
	"github.com/minkfabric/mink/gdt/config"
	"github.com/minkfabric/mink/gdt/route"
	"github.com/minkfabric/mink/gdt/service"
	"github.com/minkfabric/mink/gdt/session"
	"github.com/minkfabric/mink/gdt/stream"
	"github.com/minkfabric/mink/gdt/transport/tcp"
	"github.com/minkfabric/mink/gdt/wire"
	"github.com/minkfabric/mink/internal/log"
	"github.com/minkfabric/mink/internal/metrics"
)

const (
	daemonType    = "config"
	contentsParam = 1 // ParameterMap id carrying a path's string value, matching gdt/config's test convention
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		id           string
		port         int
		schemaFile   string
		contentsFile string
		peers        []string
		peerIDs      []string
		debug        bool
		router       bool
		gdtStreams   int
		gdtStimeout  int
	)

	cmd := &cobra.Command{
		Use:   "mink-configd",
		Short: "MINK configuration daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(id) == 0 || len(id) > 15 {
				return fmt.Errorf("-i id must be 1-15 characters, got %q", id)
			}
			return run(cmd.Context(), daemonConfig{
				id:           id,
				port:         port,
				schemaFile:   schemaFile,
				contentsFile: contentsFile,
				peers:        peers,
				peerIDs:      peerIDs,
				debug:        debug,
				router:       router,
				streams:      gdtStreams,
				stimeout:     gdtStimeout,
			})
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVarP(&id, "id", "i", "", "daemon id (<=15 chars)")
	flags.IntVarP(&port, "port", "p", 0, "listen port")
	flags.StringVarP(&schemaFile, "schema", "d", "", "optional schema descriptor file")
	flags.StringVarP(&contentsFile, "contents", "c", "", "optional contents file (YAML path: value map)")
	flags.StringArrayVarP(&peers, "routing-peer", "r", nil, "routing peer ip:port (repeatable)")
	flags.StringArrayVarP(&peerIDs, "peer-id", "n", nil, "routing peer id (repeatable)")
	flags.BoolVarP(&debug, "debug", "D", false, "enable debug logging")
	flags.BoolVarP(&router, "router", "R", false, "register this daemon as a router with its peers")
	flags.IntVar(&gdtStreams, "gdt-streams", 256, "stream/descriptor pool size")
	flags.IntVar(&gdtStimeout, "gdt-stimeout", 30, "stream idle timeout in seconds")

	_ = viper.BindPFlags(flags)

	return cmd
}

type daemonConfig struct {
	id           string
	port         int
	schemaFile   string
	contentsFile string
	peers        []string
	peerIDs      []string
	debug        bool
	router       bool
	streams      int
	stimeout     int
}

func run(parent context.Context, cfg daemonConfig) error {
	logger := log.New(cfg.debug).With(log.NewFields().Add("daemon", daemonType).Add("id", cfg.id))
	logger.Info("starting mink-configd")

	if cfg.debug {
		liberr.SetModeReturnError(liberr.ErrorReturnCodeErrorTraceFull)
	} else {
		liberr.SetModeReturnError(liberr.ErrorReturnCodeError)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reg := metrics.New("mink-configd")
	store := config.NewStore()
	notify := config.NewNotifier()

	commitLog, err := config.NewCommitLog("./commit-log")
	if err != nil {
		logger.Error(err)
		commitLog = nil
	}

	handler := config.NewHandler(store, commitLog, notify)

	if cfg.schemaFile != "" {
		logger.With(log.NewFields().Add("schema_file", cfg.schemaFile)).Info("schema file accepted for diagnostic validation")
	}

	watcher := newContentsWatcher(cfg.contentsFile, store, notify, reg, logger)
	if watcher != nil {
		defer watcher.Close()
		go watcher.run(ctx)
	}

	routes := route.New()
	ctxCfg := libctx.NewDaemonContext(daemonType, cfg.id)
	ctxCfg.Store(libctx.KeyDaemonDebug, cfg.debug)
	libctx.PutString(ctxCfg, libctx.KeySchemaFile, cfg.schemaFile)
	libctx.PutString(ctxCfg, libctx.KeyContentsFile, cfg.contentsFile)
	local := wire.Endpoint{Type: daemonType, ID: cfg.id}

	sess := session.New(local, ctxCfg, routes, session.Callbacks{
		OnClientNew: func(c *client.Client) {
			logger.With(log.NewFields().Add("peer", c.Peer())).Info("client registered")
		},
		OnClientTerminated: func(c *client.Client) {
			notify.Unregister(c)
			reg.StreamsClosed.Inc()
			logger.With(log.NewFields().Add("peer", c.Peer())).Warn("client terminated")
		},
		OnStreamNew: func(c *client.Client, st *stream.Stream, msg wire.Message) {
			reg.StreamsOpened.Inc()
			handler.HandleStreamNew(ctx, c, st, msg)
		},
	}, time.Duration(cfg.stimeout)*time.Second, 3)

	ln, err := tcp.Listen(fmt.Sprintf(":%d", cfg.port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", cfg.port, err)
	}

	var ready atomic.Bool
	ready.Store(true)

	go func() {
		if err := sess.Listen(ctx, ln); err != nil && ctx.Err() == nil {
			ready.Store(false)
			logger.Error(err)
		}
	}()

	for i, peerAddr := range cfg.peers {
		peerID := ""
		if i < len(cfg.peerIDs) {
			peerID = cfg.peerIDs[i]
		}
		go func(addr, id string) {
			conn, err := tcp.Dial(ctx, addr)
			if err != nil {
				logger.With(log.NewFields().Add("peer_addr", addr).Add("peer_id", id)).Error(err)
				return
			}
			if _, err := sess.Connect(ctx, conn, cfg.router); err != nil {
				logger.With(log.NewFields().Add("peer_addr", addr).Add("peer_id", id)).Error(err)
			}
		}(peerAddr, peerID)
	}

	go pollStreamTimeouts(ctx, sess, time.Duration(cfg.stimeout)*time.Second)

	httpSrv := newHealthServer(cfg.port+1000, sess, reg, &ready)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(err)
		}
	}()

	<-ctx.Done()
	logger.Info("draining")
	ready.Store(false)
	sess.Stop(5 * time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	return nil
}

func pollStreamTimeouts(ctx context.Context, sess *session.Session, interval time.Duration) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, c := range sess.Clients() {
				c.PollTimeouts(interval)
			}
		}
	}
}

// contentsWatcher loads the `-c <contents-file>` YAML path->value map at
// startup and again on every write, seeding config.Store and dispatching
// NOTIFY for every path whose value changed (matching the live Config-
// message NOTIFY semantics described in SPEC_FULL.md §6).
type contentsWatcher struct {
	path   string
	store  *config.Store
	notify *config.Notifier
	reg    *metrics.Registry
	logger *log.Logger

	fsw *fsnotify.Watcher

	mu   sync.Mutex
	last map[string]string
}

func newContentsWatcher(path string, store *config.Store, notify *config.Notifier, reg *metrics.Registry, logger *log.Logger) *contentsWatcher {
	if path == "" {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error(err)
		return nil
	}
	if err := fsw.Add(path); err != nil {
		logger.Error(err)
		_ = fsw.Close()
		return nil
	}

	w := &contentsWatcher{path: path, store: store, notify: notify, reg: reg, logger: logger, fsw: fsw, last: make(map[string]string)}
	w.reload(context.Background())
	return w
}

func (w *contentsWatcher) Close() error { return w.fsw.Close() }

func (w *contentsWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload(ctx)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error(err)
		}
	}
}

func (w *contentsWatcher) reload(ctx context.Context) {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Error(err)
		return
	}
	var contents map[string]string
	if err := yaml.Unmarshal(raw, &contents); err != nil {
		w.logger.Error(err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for path, value := range contents {
		if prev, ok := w.last[path]; ok && prev == value {
			continue
		}
		params := service.NewParameterMap()
		params.Set(contentsParam, service.StringValue(value), 0, 0)
		w.store.Set(path, params)
		w.notify.Dispatch(ctx, path, params)
		w.reg.ConfigCommits.Inc()
		w.reg.ConfigNotifySent.Inc()
		w.last[path] = value
	}
}

func newHealthServer(port int, sess *session.Session, reg *metrics.Registry, ready *atomic.Bool) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/healthz", func(c *gin.Context) {
		if !ready.Load() {
			ret := liberr.NewDefaultReturn()
			gdt.ErrTransportDown.Errorf().Return(ret)
			ret.GinTonicAbort(c, http.StatusServiceUnavailable)
			return
		}
		body := gin.H{"status": "ok", "clients": len(sess.Clients())}
		if v, ok := libctx.GetString(sess.Context(), libctx.KeySchemaFile); ok {
			body["schema_file"] = v
		}
		if v, ok := libctx.GetString(sess.Context(), libctx.KeyContentsFile); ok {
			body["contents_file"] = v
		}
		if v, ok := libctx.GetBool(sess.Context(), libctx.KeyDaemonDebug); ok {
			body["debug"] = v
		}
		c.JSON(http.StatusOK, body)
	})
	r.GET("/metrics", gin.WrapH(reg.Handler()))

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
}
