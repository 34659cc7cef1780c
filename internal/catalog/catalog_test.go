package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestUpsertThenResolve(t *testing.T) {
	c := openTestCatalog(t)
	if err := c.Upsert("qwen-math", "bartowski/Qwen2.5-Math-1.5B-Instruct-GGUF", "model.Q4_K_M.gguf", "/models/model.Q4_K_M.gguf", "1.2G"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	p, err := c.Resolve("qwen-math")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p != "/models/model.Q4_K_M.gguf" {
		t.Fatalf("resolved path %q", p)
	}
}

func TestResolveMissingIsNotFound(t *testing.T) {
	c := openTestCatalog(t)
	_, err := c.Resolve("absent")
	if !IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestUpsertReplacesExisting(t *testing.T) {
	c := openTestCatalog(t)
	if err := c.Upsert("m", "a/one", "one.gguf", "/x/one.gguf", "1G"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := c.TouchLastUsed("m"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	// Latest wins: same slug, different model, prior usage cleared.
	if err := c.Upsert("m", "b/two", "two.gguf", "/x/two.gguf", "2G"); err != nil {
		t.Fatalf("upsert overwrite: %v", err)
	}
	rec, err := c.Get("m")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.ModelID != "b/two" || rec.FilePath != "/x/two.gguf" || rec.FileSize != "2G" {
		t.Fatalf("record not replaced: %+v", rec)
	}
	if rec.LastUsed != nil {
		t.Fatalf("last_used must reset on replace: %+v", rec)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	c := openTestCatalog(t)
	if err := c.Upsert("m", "a/m", "m.gguf", "/m.gguf", "1G"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := c.Remove("m"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := c.Resolve("m"); !IsNotFound(err) {
		t.Fatalf("expected NotFound after remove, got %v", err)
	}
	if err := c.Remove("m"); err != nil {
		t.Fatalf("second remove must be a no-op: %v", err)
	}
}

func TestTouchLastUsed(t *testing.T) {
	c := openTestCatalog(t)
	if err := c.Upsert("m", "a/m", "m.gguf", "/m.gguf", "1G"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	if err := c.TouchLastUsed("m"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	rec, _ := c.Get("m")
	if rec.LastUsed == nil || !rec.LastUsed.Equal(base) {
		t.Fatalf("last_used not set: %+v", rec.LastUsed)
	}
	// Clock regression must not move last_used backward.
	c.now = func() time.Time { return base.Add(-time.Hour) }
	if err := c.TouchLastUsed("m"); err != nil {
		t.Fatalf("touch backward: %v", err)
	}
	rec, _ = c.Get("m")
	if !rec.LastUsed.Equal(base) {
		t.Fatalf("last_used moved backward: %v", rec.LastUsed)
	}
	// Touching an unknown slug is a silent no-op.
	if err := c.TouchLastUsed("absent"); err != nil {
		t.Fatalf("touch absent: %v", err)
	}
}

func TestRename(t *testing.T) {
	c := openTestCatalog(t)
	if err := c.Upsert("old", "a/m", "m.gguf", "/m.gguf", "1G"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	before, _ := c.Resolve("old")
	if err := c.Rename("old", "new"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	after, err := c.Resolve("new")
	if err != nil {
		t.Fatalf("resolve new: %v", err)
	}
	if after != before {
		t.Fatalf("rename changed path: %q != %q", after, before)
	}
	if _, err := c.Resolve("old"); !IsNotFound(err) {
		t.Fatalf("old slug must be gone, got %v", err)
	}
}

func TestRenameMissingIsNotFound(t *testing.T) {
	c := openTestCatalog(t)
	if err := c.Rename("absent", "new"); !IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRenameConflictLeavesCatalogUnchanged(t *testing.T) {
	c := openTestCatalog(t)
	if err := c.Upsert("a", "x/a", "a.gguf", "/a.gguf", "1G"); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := c.Upsert("b", "x/b", "b.gguf", "/b.gguf", "1G"); err != nil {
		t.Fatalf("upsert b: %v", err)
	}
	if err := c.Rename("a", "b"); !IsConflict(err) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	pa, err := c.Resolve("a")
	if err != nil || pa != "/a.gguf" {
		t.Fatalf("a changed by failed rename: %q %v", pa, err)
	}
	pb, err := c.Resolve("b")
	if err != nil || pb != "/b.gguf" {
		t.Fatalf("b changed by failed rename: %q %v", pb, err)
	}
}

func TestListOrdering(t *testing.T) {
	c := openTestCatalog(t)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	c.now = func() time.Time { return clock }

	for i, slug := range []string{"never", "older", "newer"} {
		clock = base.Add(time.Duration(i) * time.Minute)
		if err := c.Upsert(slug, "x/"+slug, slug+".gguf", "/"+slug+".gguf", "1G"); err != nil {
			t.Fatalf("upsert %s: %v", slug, err)
		}
	}
	clock = base.Add(time.Hour)
	if err := c.TouchLastUsed("older"); err != nil {
		t.Fatalf("touch older: %v", err)
	}
	clock = base.Add(2 * time.Hour)
	if err := c.TouchLastUsed("newer"); err != nil {
		t.Fatalf("touch newer: %v", err)
	}

	recs, err := c.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]string, len(recs))
	for i, r := range recs {
		got[i] = r.Slug
	}
	want := []string{"newer", "older", "never"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestReset(t *testing.T) {
	c := openTestCatalog(t)
	for _, slug := range []string{"a", "b"} {
		if err := c.Upsert(slug, "x/"+slug, slug+".gguf", "/"+slug+".gguf", "1G"); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := c.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	recs, err := c.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty catalog, got %d records", len(recs))
	}
}

func TestImportFromDirectory(t *testing.T) {
	c := openTestCatalog(t)
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "author", "repo"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := []string{
		filepath.Join(root, "plain.gguf"),
		filepath.Join(root, "author", "repo", "Model.Q4_K_M.gguf"),
		filepath.Join(root, "notes.txt"),
	}
	for _, f := range files {
		if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	n, err := c.ImportFromDirectory(root)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d, want 2", n)
	}
	if p, err := c.Resolve("plain"); err != nil || p != files[0] {
		t.Fatalf("plain: %q %v", p, err)
	}
	// Nested paths keep their post-author segments in the slug.
	if p, err := c.Resolve("repo-model-q4-k-m"); err != nil || p != files[1] {
		t.Fatalf("nested: %q %v", p, err)
	}
	// A second import skips everything already present.
	n, err = c.ImportFromDirectory(root)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if n != 0 {
		t.Fatalf("re-import inserted %d, want 0", n)
	}
}

func TestImportFromMissingDirectory(t *testing.T) {
	c := openTestCatalog(t)
	if _, err := c.ImportFromDirectory(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing import root")
	}
}
