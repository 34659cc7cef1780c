package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"llamactl/internal/catalog"
	"llamactl/internal/httpapi"
	"llamactl/internal/lifecycle"
)

// mgmtService adapts the catalog and lifecycle manager to the HTTP API.
type mgmtService struct {
	cat *catalog.Catalog
	mgr *lifecycle.Manager
}

func (s *mgmtService) ListModels() ([]catalog.ModelRecord, error) { return s.cat.List() }
func (s *mgmtService) Servers() ([]lifecycle.Status, error)       { return s.mgr.Ps() }

func (s *mgmtService) Start(ctx context.Context, slug string) (lifecycle.Status, error) {
	st, err := s.mgr.EnsureRunning(ctx, slug)
	switch {
	case err == nil && st.Started:
		httpapi.CountServerStart("started")
	case err == nil:
		httpapi.CountServerStart("running")
	case lifecycle.IsStartupTimeout(err):
		httpapi.CountServerStart("timeout")
	default:
		httpapi.CountServerStart("error")
	}
	return st, err
}

func (s *mgmtService) Stop(slug string) error { return s.mgr.Kill(slug) }

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local management API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalogStore()
			if err != nil {
				return err
			}
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Addr
			}
			mux := httpapi.NewMux(&mgmtService{cat: cat, mgr: mgr}, httpapi.Options{
				CORSEnabled: a.cfg.CORSEnabled,
				CORSOrigins: a.cfg.CORSOrigins,
				Log:         a.log,
			})
			srv := &http.Server{Addr: addr, Handler: mux}

			errc := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", addr).Msg("management api listening")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errc <- err
				}
			}()

			select {
			case err := <-errc:
				return err
			case <-cmd.Context().Done():
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				a.log.Warn().Err(err).Msg("graceful shutdown error")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, e.g. :8090")
	return cmd
}
