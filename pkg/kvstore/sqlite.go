package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fieldsafe/fieldsync/pkg/config"
	pkgerrors "github.com/fieldsafe/fieldsync/pkg/errors"
	"github.com/fieldsafe/fieldsync/pkg/logger"
)

type kvEntry struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value []byte `gorm:"column:value"`
}

func (kvEntry) TableName() string {
	return "kv_entries"
}

// SQLite is a Store backed by a single on-device sqlite table.
type SQLite struct {
	conn *gorm.DB
}

// OpenSQLite boots the sqlite-backed store and ensures its schema.
func OpenSQLite(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*SQLite, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("storage db path is required")
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "opening sqlite store")
	}

	if err := conn.WithContext(ctx).AutoMigrate(&kvEntry{}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "migrating kv schema")
	}

	if logg != nil {
		logg.Info(ctx, "durable store opened")
	}

	return &SQLite{conn: conn}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry kvEntry
	err := s.conn.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reading key")
	}
	return entry.Value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	entry := kvEntry{Key: key, Value: value}
	err := s.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&entry).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "writing key")
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	err := s.conn.WithContext(ctx).Where("key = ?", key).Delete(&kvEntry{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "removing key")
	}
	return nil
}

func (s *SQLite) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.conn.WithContext(ctx).Model(&kvEntry{}).Order("key ASC").Pluck("key", &keys).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing keys")
	}
	return keys, nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
