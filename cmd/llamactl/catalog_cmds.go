package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"llamactl/internal/catalog"
	"llamactl/internal/common/fsutil"
	"llamactl/internal/hub"
)

func newPullCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:     "pull <author/name>",
		Short:   "Download a model's gguf files and catalog them",
		Example: "  llamactl pull bartowski/Qwen2.5-Math-1.5B-Instruct-GGUF",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelID := args[0]
			if err := hub.ValidateModelID(modelID); err != nil {
				return err
			}
			cat, err := a.catalogStore()
			if err != nil {
				return err
			}
			dl := &hub.Downloader{Bin: a.cfg.DownloaderBin, Log: a.log}
			files, err := dl.Download(cmd.Context(), modelID, a.cfg.ModelsDir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				a.log.Warn().Str("model", modelID).Msg("download finished but no new gguf files appeared")
				return nil
			}
			for _, path := range files {
				slug := name
				if slug == "" {
					slug = catalog.DeriveSlug(modelID)
				}
				if prev, err := cat.Get(slug); err == nil && prev.ModelID != modelID {
					a.log.Warn().Str("slug", slug).Str("was", prev.ModelID).Str("now", modelID).Msg("slug collision, replacing existing entry")
				}
				if err := cat.Upsert(slug, modelID, filepath.Base(path), path, fsutil.FileSizeString(path)); err != nil {
					return err
				}
				a.log.Info().Str("slug", slug).Str("path", path).Msg("cataloged model")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Slug to assign instead of the derived one")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	var keepFile bool
	cmd := &cobra.Command{
		Use:   "rm <slug>",
		Short: "Remove a model from the catalog and delete its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalogStore()
			if err != nil {
				return err
			}
			rec, err := cat.Get(args[0])
			if err != nil {
				return a.withCatalogHint(err)
			}
			if err := cat.Remove(rec.Slug); err != nil {
				return err
			}
			if !keepFile {
				if err := os.Remove(rec.FilePath); err != nil && !os.IsNotExist(err) {
					a.log.Warn().Err(err).Str("path", rec.FilePath).Msg("could not delete model file")
				}
			}
			a.log.Info().Str("slug", rec.Slug).Msg("removed model")
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepFile, "keep-file", false, "Keep the model file on disk")
	return cmd
}

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List cataloged models, most recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalogStore()
			if err != nil {
				return err
			}
			recs, err := cat.List()
			if err != nil {
				return err
			}
			a.printModels(recs)
			return nil
		},
	}
}

func newAliasCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "alias <slug> <new-slug>",
		Short: "Rename a model's slug",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalogStore()
			if err != nil {
				return err
			}
			if err := cat.Rename(args[0], args[1]); err != nil {
				return a.withCatalogHint(err)
			}
			a.log.Info().Str("from", args[0]).Str("to", args[1]).Msg("renamed")
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [dir]",
		Short: "Catalog gguf files found under a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := firstOr(args, a.cfg.ModelsDir)
			cat, err := a.catalogStore()
			if err != nil {
				return err
			}
			n, err := cat.ImportFromDirectory(root)
			if err != nil {
				return err
			}
			a.log.Info().Int("imported", n).Str("dir", root).Msg("import finished")
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every catalog entry (files stay on disk)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("reset deletes the whole catalog; re-run with --force")
			}
			cat, err := a.catalogStore()
			if err != nil {
				return err
			}
			if err := cat.Reset(); err != nil {
				return err
			}
			a.log.Info().Msg("catalog reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirm the reset")
	return cmd
}
