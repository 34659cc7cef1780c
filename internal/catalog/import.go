package catalog

import (
	"fmt"
	"path/filepath"
	"strings"

	"llamactl/internal/common/fsutil"
)

// ImportFromDirectory walks root for gguf files and upserts a record for
// every file not already present (matched by exact file path). The model
// id is derived from the path relative to root, the slug from that id.
// Returns the number of records inserted.
func (c *Catalog) ImportFromDirectory(root string) (int, error) {
	expanded, err := fsutil.ExpandHome(root)
	if err != nil {
		return 0, err
	}
	if !fsutil.PathExists(expanded) {
		return 0, fmt.Errorf("import root %s does not exist", expanded)
	}
	paths, err := fsutil.ScanModelFiles(expanded)
	if err != nil {
		return 0, err
	}
	absRoot, err := filepath.Abs(expanded)
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, p := range paths {
		present, err := c.hasFilePath(p)
		if err != nil {
			return imported, err
		}
		if present {
			c.log.Info().Str("path", p).Msg("already cataloged, skipping")
			continue
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			rel = filepath.Base(p)
		}
		modelID := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
		slug := DeriveSlug(modelID)
		if slug == "" {
			c.log.Warn().Str("path", p).Msg("empty slug derived, skipping")
			continue
		}
		if err := c.Upsert(slug, modelID, filepath.Base(p), p, fsutil.FileSizeString(p)); err != nil {
			return imported, err
		}
		c.log.Info().Str("slug", slug).Str("path", p).Msg("imported model")
		imported++
	}
	return imported, nil
}
