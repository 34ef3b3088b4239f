package persistence

import (
	"context"
	"os"
	"procurement/domain"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/sirupsen/logrus"
	otgorm "github.com/smacker/opentracing-gorm"
)

type DataSourceManager struct {
	gormDB *gorm.DB

	DatabaseConfig *DatabaseConfig
}

func (m *DataSourceManager) Start() error {
	db, err := connect(m.DatabaseConfig)
	if err != nil {
		return err
	}
	otgorm.AddGormCallbacks(db)
	db.SetLogger(gormLogger{})
	if os.Getenv("GIN_MODE") != "release" {
		db.LogMode(true)
	}
	m.gormDB = db
	return nil
}

func (m *DataSourceManager) Stop() {
	if m.gormDB != nil {
		if err := m.gormDB.Close(); err != nil {
			logrus.Warnf("failed to close DB: %v", err)
		}
		m.gormDB = nil
	}
}

// GormDB returns a session carrying the span of ctx, if any.
func (m *DataSourceManager) GormDB(ctx context.Context) *gorm.DB {
	if m.gormDB != nil {
		return otgorm.SetSpanToGorm(ctx, m.gormDB.New())
	}
	return nil
}

// Dialect names the driver of the open connection.
func (m *DataSourceManager) Dialect() string {
	if m.gormDB == nil {
		return ""
	}
	return m.gormDB.Dialect().GetName()
}

// Migrate creates the five tables of the application and their missing columns.
func (m *DataSourceManager) Migrate(ctx context.Context) error {
	return m.GormDB(ctx).AutoMigrate(&domain.Identity{}, &domain.Sector{}, &domain.WorkflowStatus{},
		&domain.FormField{}, &domain.Request{}).Error
}

func connect(config *DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(config.DriverType, config.DriverArgs)
	if err != nil {
		return nil, err
	}
	err = db.DB().Ping()
	if err != nil {
		return nil, err
	}
	return db, nil
}

type gormLogger struct{}

func (gormLogger) Print(v ...interface{}) {
	if len(v) > 0 && v[0] == "sql" && len(v) > 3 {
		logrus.WithField("source", v[1]).WithField("duration", v[2]).Debug(v[3])
		return
	}
	logrus.Debug(v...)
}
