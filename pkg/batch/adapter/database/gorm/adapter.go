package gorm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/taxiweather/pkg/batch/adapter/database/config"
	config "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// TableNamer represents a struct that has a TableName() string method.
type TableNamer interface {
	TableName() string
}

// applyTableName applies the table name to the GORM DB session if the model implements the TableNamer interface.
func applyTableName(db *gorm.DB, model interface{}) *gorm.DB {
	val := reflect.ValueOf(model)

	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	// 1. Single entity.
	if namer, ok := model.(TableNamer); ok {
		return db.Table(namer.TableName())
	}

	// 2. Slices: check the element type.
	if val.Kind() == reflect.Slice || val.Kind() == reflect.Array {
		elemType := val.Type().Elem()
		if elemType.Kind() == reflect.Ptr {
			elemType = elemType.Elem()
		}
		if namer, ok := reflect.New(elemType).Interface().(TableNamer); ok {
			return db.Table(namer.TableName())
		}
	}

	// 3. Let GORM infer the table name from the model.
	return db.Model(model)
}

// NewGormLogger creates a gorm logger writing through GormWriter at the configured level.
// Unknown or empty levels are silent.
func NewGormLogger(level string) gorm_logger.Interface {
	var gormLevel gorm_logger.LogLevel
	switch config.LogLevel(strings.ToUpper(level)) {
	case config.LogLevelError:
		gormLevel = gorm_logger.Error
	case config.LogLevelWarn:
		gormLevel = gorm_logger.Warn
	case config.LogLevelInfo, config.LogLevelDebug:
		gormLevel = gorm_logger.Info
	default:
		gormLevel = gorm_logger.Silent
	}

	return gorm_logger.New(
		NewGormWriter(),
		gorm_logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter redirects GORM log output to the application logger.
type GormWriter struct{}

// NewGormWriter creates a new instance of GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements gorm_logger.Writer.
// SQL trace lines go to DEBUG, everything else (slow query warnings, errors) to INFO.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isSQLTrace(msg) {
		logger.Debugf("[GORM] %s", msg)
	} else {
		logger.Infof("[GORM] %s", msg)
	}
}

func isSQLTrace(msg string) bool {
	if !strings.Contains(msg, "[") || !strings.Contains(msg, "]") {
		return false
	}
	upper := strings.ToUpper(msg)
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP"} {
		if strings.Contains(upper, verb) {
			return true
		}
	}
	return false
}

// GormDBAdapter implements database.DBConnection on top of *gorm.DB.
type GormDBAdapter struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	cfg    dbconfig.DatabaseConfig
	dbType string
	name   string
}

// NewGormDBAdapter creates a new GormDBAdapter.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) *GormDBAdapter {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Errorf("Failed to get underlying *sql.DB for '%s': %v", name, err)
	}

	return &GormDBAdapter{
		db:     db,
		sqlDB:  sqlDB,
		cfg:    cfg,
		dbType: cfg.Type,
		name:   name,
	}
}

// Close closes the underlying connection pool.
func (a *GormDBAdapter) Close() error {
	if a.sqlDB != nil {
		logger.Infof("Closing database connection '%s'...", a.name)
		return a.sqlDB.Close()
	}
	return nil
}

func (a *GormDBAdapter) Type() string {
	return a.dbType
}

func (a *GormDBAdapter) Name() string {
	return a.name
}

// RefreshConnection implements database.DBConnection.
func (a *GormDBAdapter) RefreshConnection(ctx context.Context) error {
	if a.sqlDB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	return a.sqlDB.PingContext(ctx)
}

// Config implements database.DBConnection.
func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig {
	return a.cfg
}

// GetSQLDB implements database.DBConnection.
func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	if a.sqlDB == nil {
		return nil, fmt.Errorf("underlying sql.DB is nil")
	}
	return a.sqlDB, nil
}

// IsTableNotExistError recognises the "missing table" errors of SQLite, PostgreSQL and MySQL.
func (a *GormDBAdapter) IsTableNotExistError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") || // sqlite
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) || // postgres 42P01
		strings.Contains(msg, "error 1146") // mysql
}

// HasTable implements database.DBConnection.
func (a *GormDBAdapter) HasTable(ctx context.Context, model interface{}) (bool, error) {
	if a.db == nil {
		return false, fmt.Errorf("database connection is not initialized")
	}
	return a.db.WithContext(ctx).Migrator().HasTable(model), nil
}

// ExecuteQuery implements database.DBExecutor.
func (a *GormDBAdapter) ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error {
	db := applyTableName(a.db.WithContext(ctx), target)
	if query != nil {
		db = db.Where(query)
	}
	// Find does not return ErrRecordNotFound for slices.
	return db.Find(target).Error
}

// ExecuteQueryAdvanced implements database.DBExecutor.
func (a *GormDBAdapter) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error {
	db := applyTableName(a.db.WithContext(ctx), target)

	if query != nil {
		db = db.Where(query)
	}
	if orderBy != "" {
		db = db.Order(orderBy)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	return db.Find(target).Error
}

// Count implements database.DBExecutor.
func (a *GormDBAdapter) Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error) {
	db := applyTableName(a.db.WithContext(ctx), model)
	if query != nil {
		db = db.Where(query)
	}
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Pluck implements database.DBExecutor.
func (a *GormDBAdapter) Pluck(ctx context.Context, model interface{}, column string, target interface{}, query map[string]interface{}) error {
	db := applyTableName(a.db.WithContext(ctx), model)
	if query != nil {
		db = db.Where(query)
	}
	return db.Distinct().Order(column).Pluck(column, target).Error
}

// ExecuteUpdate implements database.DBExecutor.
// operation is one of CREATE, UPDATE or DELETE.
func (a *GormDBAdapter) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error) {
	db := a.db.WithContext(ctx).Session(&gorm.Session{SkipDefaultTransaction: true})

	if tableName != "" {
		db = db.Table(tableName)
	}

	var result *gorm.DB
	switch operation {
	case "CREATE":
		result = db.Create(model)
	case "UPDATE":
		// The model's primary key becomes part of the WHERE clause.
		db = db.Model(model)
		if query != nil {
			db = db.Where(query)
		}
		result = db.Updates(model)
	case "DELETE":
		if query != nil {
			db = db.Where(query)
		}
		result = db.Delete(model)
	default:
		return 0, fmt.Errorf("unsupported update operation: %s", operation)
	}

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReplaceTable implements database.DBConnection.
// Rows are written to a staging table and swapped in only once all of them are stored,
// so a failed insert leaves the previous contents of the table in place.
func (a *GormDBAdapter) ReplaceTable(ctx context.Context, model interface{}, rows interface{}, batchSize int) (rowsAffected int64, err error) {
	rowsVal := reflect.Indirect(reflect.ValueOf(rows))
	if rowsVal.Kind() != reflect.Slice {
		return 0, errors.New("ReplaceTable: rows must be a slice")
	}
	if batchSize <= 0 {
		batchSize = rowsVal.Len()
	}

	stmt := &gorm.Statement{DB: a.db}
	if err := stmt.Parse(model); err != nil {
		return 0, fmt.Errorf("parse model: %w", err)
	}
	table := stmt.Schema.Table
	staging := table + stagingSuffix

	db := a.db.WithContext(ctx)
	if err := db.Migrator().DropTable(staging); err != nil {
		return 0, fmt.Errorf("drop stale staging table: %w", err)
	}
	if err := db.Table(staging).Migrator().CreateTable(model); err != nil {
		return 0, fmt.Errorf("create staging table: %w", err)
	}
	if rowsVal.Len() > 0 {
		result := db.Table(staging).CreateInBatches(rows, batchSize)
		if result.Error != nil {
			a.dropStaging(db, staging)
			return 0, fmt.Errorf("insert rows: %w", result.Error)
		}
		rowsAffected = result.RowsAffected
	}
	if err := a.swapTable(db, table, staging); err != nil {
		a.dropStaging(db, staging)
		return 0, fmt.Errorf("swap table: %w", err)
	}
	return rowsAffected, nil
}

const (
	stagingSuffix  = "__staging"
	previousSuffix = "__previous"
)

// swapTable replaces table with staging.
func (a *GormDBAdapter) swapTable(db *gorm.DB, table, staging string) error {
	if a.dbType != "mysql" {
		// DDL is transactional on SQLite and PostgreSQL.
		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Migrator().DropTable(table); err != nil {
				return err
			}
			if err := tx.Migrator().RenameTable(staging, table); err != nil {
				return err
			}
			if a.dbType != "postgres" {
				return nil
			}
			// PostgreSQL keeps the primary key named after the staging table.
			return tx.Exec("ALTER INDEX IF EXISTS ? RENAME TO ?",
				clause.Table{Name: staging + "_pkey"}, clause.Table{Name: table + "_pkey"}).Error
		})
	}

	// MySQL commits every DDL statement; a multi-table RENAME TABLE is its atomic swap.
	migrator := db.Migrator()
	if !migrator.HasTable(table) {
		return migrator.RenameTable(staging, table)
	}
	previous := table + previousSuffix
	if err := migrator.DropTable(previous); err != nil {
		return err
	}
	if err := db.Exec("RENAME TABLE ? TO ?, ? TO ?",
		clause.Table{Name: table}, clause.Table{Name: previous},
		clause.Table{Name: staging}, clause.Table{Name: table},
	).Error; err != nil {
		return err
	}
	if err := migrator.DropTable(previous); err != nil {
		logger.Warnf("Table '%s' was replaced but '%s' could not be dropped: %v", table, previous, err)
	}
	return nil
}

func (a *GormDBAdapter) dropStaging(db *gorm.DB, staging string) {
	if err := db.Migrator().DropTable(staging); err != nil {
		logger.Warnf("Failed to drop staging table '%s': %v", staging, err)
	}
}

var _ database.DBConnection = (*GormDBAdapter)(nil)
