package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ModelRecord is one catalog entry: a slug mapped to a model file on disk
// plus the metadata captured when it was inserted.
type ModelRecord struct {
	Slug      string     `gorm:"column:slug;primaryKey" json:"slug"`
	ModelID   string     `gorm:"column:model_id;not null" json:"model_id"`
	FileName  string     `gorm:"column:file_name;not null" json:"file_name"`
	FilePath  string     `gorm:"column:file_path;not null" json:"file_path"`
	FileSize  string     `gorm:"column:file_size" json:"file_size"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	LastUsed  *time.Time `gorm:"column:last_used" json:"last_used,omitempty"`
}

// TableName pins the table name regardless of GORM pluralization rules.
func (ModelRecord) TableName() string { return "models" }

// Catalog is the durable slug -> model-file mapping, backed by a single
// SQLite table. Every operation is one short transaction.
type Catalog struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

// Open creates or opens the catalog database at path and ensures the
// models table exists.
func Open(path string, log zerolog.Logger) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if err := db.AutoMigrate(&ModelRecord{}); err != nil {
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return &Catalog{db: db, log: log, now: time.Now}, nil
}

// Upsert inserts a record for slug or fully replaces the existing one.
// Latest wins: an overwrite is not an error, even when the prior record
// points at an unrelated model.
func (c *Catalog) Upsert(slug, modelID, fileName, filePath, fileSize string) error {
	rec := ModelRecord{
		Slug:      slug,
		ModelID:   modelID,
		FileName:  fileName,
		FilePath:  filePath,
		FileSize:  fileSize,
		CreatedAt: c.now(),
		LastUsed:  nil,
	}
	res := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		UpdateAll: true,
	}).Create(&rec)
	if res.Error != nil {
		return fmt.Errorf("upsert %s: %w", slug, res.Error)
	}
	return nil
}

// Get returns the record for slug or NotFound.
func (c *Catalog) Get(slug string) (ModelRecord, error) {
	var rec ModelRecord
	res := c.db.Where("slug = ?", slug).First(&rec)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return ModelRecord{}, ErrNotFound(slug)
		}
		return ModelRecord{}, fmt.Errorf("get %s: %w", slug, res.Error)
	}
	return rec, nil
}

// Resolve maps slug to its file path. It does not bump usage; callers that
// are using the model call TouchLastUsed separately.
func (c *Catalog) Resolve(slug string) (string, error) {
	rec, err := c.Get(slug)
	if err != nil {
		return "", err
	}
	return rec.FilePath, nil
}

// TouchLastUsed sets last_used to now. Missing slugs are a silent no-op;
// last_used never moves backward.
func (c *Catalog) TouchLastUsed(slug string) error {
	now := c.now()
	res := c.db.Model(&ModelRecord{}).
		Where("slug = ? AND (last_used IS NULL OR last_used < ?)", slug, now).
		Update("last_used", now)
	if res.Error != nil {
		return fmt.Errorf("touch %s: %w", slug, res.Error)
	}
	return nil
}

// Remove deletes the record for slug. Deleting an absent slug is a no-op.
func (c *Catalog) Remove(slug string) error {
	res := c.db.Where("slug = ?", slug).Delete(&ModelRecord{})
	if res.Error != nil {
		return fmt.Errorf("remove %s: %w", slug, res.Error)
	}
	return nil
}

// Rename changes a record's slug. Fails with NotFound when oldSlug is
// absent and Conflict when newSlug is taken; the catalog is unchanged on
// either failure.
func (c *Catalog) Rename(oldSlug, newSlug string) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&ModelRecord{}).Where("slug = ?", newSlug).Count(&n).Error; err != nil {
			return fmt.Errorf("rename check: %w", err)
		}
		if n > 0 {
			return ErrConflict(newSlug)
		}
		res := tx.Model(&ModelRecord{}).Where("slug = ?", oldSlug).Update("slug", newSlug)
		if res.Error != nil {
			return fmt.Errorf("rename %s: %w", oldSlug, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound(oldSlug)
		}
		return nil
	})
}

// List returns a snapshot of all records ordered by last_used descending
// with never-used records last, tie-broken by created_at descending.
func (c *Catalog) List() ([]ModelRecord, error) {
	var recs []ModelRecord
	res := c.db.
		Order("last_used IS NULL").
		Order("last_used DESC").
		Order("created_at DESC").
		Find(&recs)
	if res.Error != nil {
		return nil, fmt.Errorf("list: %w", res.Error)
	}
	return recs, nil
}

// Reset deletes every record.
func (c *Catalog) Reset() error {
	if err := c.db.Where("1 = 1").Delete(&ModelRecord{}).Error; err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// hasFilePath reports whether any record already references path exactly.
func (c *Catalog) hasFilePath(path string) (bool, error) {
	var n int64
	if err := c.db.Model(&ModelRecord{}).Where("file_path = ?", path).Count(&n).Error; err != nil {
		return false, fmt.Errorf("lookup path: %w", err)
	}
	return n > 0, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
