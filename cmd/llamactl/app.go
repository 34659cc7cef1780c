package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llamactl/internal/catalog"
	"llamactl/internal/config"
	"llamactl/internal/lifecycle"
	"llamactl/internal/llmclient"
)

// app holds the wired components shared by all subcommands. The catalog
// is opened lazily so help and hub-only commands never touch the db.
type app struct {
	cfg config.Config
	log zerolog.Logger
	set bool

	cat *catalog.Catalog
	mgr *lifecycle.Manager
}

// init resolves the effective configuration: defaults+env, then the
// optional config file, then flag overrides.
func (a *app) init(cmd *cobra.Command) error {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		fileCfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = cfg.Merge(fileCfg)
	}
	cfg = cfg.Merge(flagConfig(cmd))
	a.cfg = cfg
	a.log = newLogger(cfg.LogLevel)
	a.set = true
	return nil
}

func (a *app) logger() zerolog.Logger {
	if !a.set {
		return newLogger("info")
	}
	return a.log
}

// catalogStore opens the catalog on first use.
func (a *app) catalogStore() (*catalog.Catalog, error) {
	if a.cat != nil {
		return a.cat, nil
	}
	c, err := catalog.Open(a.cfg.DatabasePath(), a.log)
	if err != nil {
		return nil, err
	}
	a.cat = c
	return c, nil
}

// manager builds the lifecycle manager on first use.
func (a *app) manager() (*lifecycle.Manager, error) {
	if a.mgr != nil {
		return a.mgr, nil
	}
	cat, err := a.catalogStore()
	if err != nil {
		return nil, err
	}
	a.mgr = lifecycle.New(a.cfg, cat, lifecycle.NewOSProcessTable(), a.log)
	return a.mgr, nil
}

// client returns the forwarding client for the active server slot.
func (a *app) client() *llmclient.Client {
	return llmclient.New(a.cfg.ServerBaseURL(), a.cfg.ConnectTimeout())
}

// ensureAndClient resolves slug, guarantees its server is up and returns
// a client pointed at it.
func (a *app) ensureAndClient(ctx context.Context, slug string) (*llmclient.Client, error) {
	mgr, err := a.manager()
	if err != nil {
		return nil, err
	}
	if _, err := mgr.EnsureRunning(ctx, slug); err != nil {
		return nil, a.withCatalogHint(err)
	}
	return a.client(), nil
}

// withCatalogHint appends the current catalog listing to NotFound
// failures so the user sees what is available.
func (a *app) withCatalogHint(err error) error {
	if !catalog.IsNotFound(err) {
		return err
	}
	if cat, cerr := a.catalogStore(); cerr == nil {
		if recs, lerr := cat.List(); lerr == nil {
			a.printModels(recs)
		}
	}
	return err
}

// printModels renders the catalog listing as a table on stdout.
func (a *app) printModels(recs []catalog.ModelRecord) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tMODEL\tSIZE\tLAST USED\tPATH")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Slug, r.ModelID, r.FileSize, fmtTime(r.LastUsed), r.FilePath)
	}
	_ = w.Flush()
}
