package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const defaultTable = "grade_records"

// GradeRow mirrors the raw export columns in a SQL table. Every column is nullable
// text so that numeric and textual exports scan the same way.
type GradeRow struct {
	RowID       uint           `gorm:"column:row_id;primaryKey;autoIncrement"`
	ID          sql.NullString `gorm:"column:id"`
	Major       sql.NullString `gorm:"column:major"`
	Subject     sql.NullString `gorm:"column:subject"`
	MajorYear   sql.NullString `gorm:"column:major_year"`
	OfficalYear sql.NullString `gorm:"column:offical_year"`
	Practical   sql.NullString `gorm:"column:practical"`
	Theoretical sql.NullString `gorm:"column:theoretical"`
	Total       sql.NullString `gorm:"column:total"`
	Status      sql.NullString `gorm:"column:status"`
	Semester    sql.NullString `gorm:"column:semester"`
}

// OpenDB opens a gorm connection for a SQL source.
func OpenDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

func readSQL(ctx context.Context, src Source) ([]RawRow, error) {
	db, err := OpenDB(src.Driver, src.DSN)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var rows []GradeRow
	if err := db.WithContext(ctx).Table(src.Table).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: query: %w", src.Label(), err)
	}

	out := make([]RawRow, 0, len(rows))
	for i, r := range rows {
		out = append(out, RawRow{
			ID:          text(r.ID),
			Major:       text(r.Major),
			Subject:     text(r.Subject),
			MajorYear:   text(r.MajorYear),
			OfficalYear: text(r.OfficalYear),
			Practical:   text(r.Practical),
			Theoretical: text(r.Theoretical),
			Total:       text(r.Total),
			Status:      text(r.Status),
			Semester:    text(r.Semester),
			Source:      src.Label(),
			Line:        i + 1,
		})
	}
	return out, nil
}

func text(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return strings.TrimSpace(ns.String)
}
