package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"codeworkspace/internal/metrics"
	"codeworkspace/internal/project"
	"codeworkspace/internal/sessionlog"
	"codeworkspace/internal/template"
	"codeworkspace/internal/workerutil"
	"codeworkspace/internal/workspace"
	"codeworkspace/internal/wsserver"
)

type serveOptions struct {
	projectID string
	addr      string
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	so := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open a project in an editor session and serve it over WebSocket",
		Long: `serve opens one project and serves the session on /ws. Clients send
{"name":..., "args":{...}} command frames and receive {"event":..., "payload":...}
frames. Without --project the most recently modified project is opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := startServer(ctx, opts.configPath, so)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), srv.hub.URL())
			<-ctx.Done()
			return srv.shutdown()
		},
	}
	cmd.Flags().StringVar(&so.projectID, "project", "", "id of the project to open")
	cmd.Flags().StringVar(&so.addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// server is a running serve command.
type server struct {
	env     *env
	hub     *wsserver.Hub
	session *workspace.Session
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

func startServer(parent context.Context, configPath string, so *serveOptions) (*server, error) {
	e, err := loadEnv(parent, configPath)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(parent)
	srv := &server{env: e, cancel: cancel}

	handlers := map[string]http.Handler{
		"/api/template": template.Handler(e.template),
	}
	if e.cfg.Server.Metrics {
		handlers["/metrics"] = metrics.Handler()
	}
	addr := e.cfg.Server.Addr
	if so.addr != "" {
		addr = so.addr
	}
	srv.hub = wsserver.NewHub(wsserver.HubOptions{
		Addr:      addr,
		Handlers:  handlers,
		OnConnect: srv.pushSnapshot,
	})
	srv.session = workspace.NewSession(workspace.Options{
		Store:   e.store,
		Emitter: srv.hub,
		Tree:    e.treeOptions(),
	})
	srv.hub.SetDispatcher(srv.session)
	slog.SetDefault(slog.New(sessionlog.NewTeeHandler(baseLogHandler(e.cfg), slog.LevelWarn, newLogForwarder(srv.hub))))

	p, err := pickProject(ctx, e.store, so.projectID)
	if err != nil {
		cancel()
		e.close()
		return nil, err
	}
	if p != nil {
		srv.session.SetCurrentProject(p)
		slog.Info("[DEBUG-SESSION] project opened", "project", p.ID, "name", p.Name)
	} else {
		slog.Warn("[WARN-SESSION] no projects in storage, serving without a project")
	}

	if dir, ok := e.template.(*template.DirProvider); ok && e.cfg.Template.Watch {
		srv.watchTemplate(ctx, dir)
	}

	if err := srv.hub.Start(ctx); err != nil {
		cancel()
		srv.workers.Wait()
		e.close()
		return nil, err
	}
	return srv, nil
}

// pickProject returns the project with id, or the most recently modified
// one when id is empty. A store with no projects yields nil.
func pickProject(ctx context.Context, store *project.Store, id string) (*project.Project, error) {
	if id != "" {
		return store.Get(ctx, id)
	}
	projects, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	var latest *project.Project
	for _, p := range projects {
		if latest == nil || p.LastModified.After(latest.LastModified) {
			latest = p
		}
	}
	return latest, nil
}

func (s *server) pushSnapshot() {
	s.hub.Emit(wsserver.EventSnapshot, s.session.Snapshot())
}

func (s *server) watchTemplate(ctx context.Context, dir *template.DirProvider) {
	workerutil.RunWithPanicRecovery(ctx, "template-watcher", &s.workers, func(ctx context.Context) error {
		w, err := template.NewWatcher(dir, func() {
			slog.Info("[DEBUG-TEMPLATE] template changed, seed cache dropped", "dir", dir.Dir())
		})
		if err != nil {
			return err
		}
		defer w.Close()
		return w.Run(ctx)
	}, workerutil.RecoveryOptions{})
}

func (s *server) shutdown() error {
	s.cancel()
	err := s.hub.Stop()
	s.workers.Wait()
	s.env.close()
	return err
}

// newLogForwarder sends tee'd records to the client. Records logged while a
// forward is in flight are dropped, so a failing write cannot recurse.
func newLogForwarder(emitter workspace.EventEmitter) sessionlog.EntryCallback {
	var busy atomic.Bool
	return func(entry sessionlog.Entry) {
		if !busy.CompareAndSwap(false, true) {
			return
		}
		defer busy.Store(false)
		emitter.Emit(wsserver.EventLog, entry)
	}
}
