package db

import (
	"log"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector picks the driver from the DSN: "file:" URIs, ":memory:" and
// *.db / *.sqlite paths use sqlite, anything else is treated as a MySQL DSN.
func Dialector(dsn string) gorm.Dialector {
	if isSQLite(dsn) {
		return gormsqlite.Open(dsn)
	}
	return mysql.Open(dsn)
}

func isSQLite(dsn string) bool {
	d := strings.ToLower(dsn)
	if strings.HasPrefix(d, "file:") || strings.HasPrefix(d, ":memory:") {
		return true
	}
	if i := strings.IndexByte(d, '?'); i >= 0 {
		d = d[:i]
	}
	return strings.HasSuffix(d, ".db") || strings.HasSuffix(d, ".sqlite") || strings.HasSuffix(d, ".sqlite3")
}

func Open(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(Dialector(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if !isSQLite(dsn) {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return gdb, nil
}

// Connect opens the database or exits the process.
func Connect(dsn string) *gorm.DB {
	gdb, err := Open(dsn)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	return gdb
}
