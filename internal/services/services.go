package services

import (
	"context"
	"log/slog"

	"github.com/apiguardian/apiguardian/internal/config"
	"github.com/apiguardian/apiguardian/internal/db"
	"github.com/apiguardian/apiguardian/internal/services/project"
	"github.com/apiguardian/apiguardian/internal/services/usage"
	"github.com/apiguardian/apiguardian/internal/services/user"
	"github.com/apiguardian/apiguardian/pkg/gateway/secretcipher"
)

type Services struct {
	Project *project.ProjectService
	User    *user.UserService
	Usage   *usage.UsageService
}

func NewServices(conf *config.Config, cipher *secretcipher.Cipher) *Services {
	dbconn := db.NewConn(conf)

	var analytics *usage.Analytics
	if conf.CLICKHOUSE_HOST != "" {
		chConn, err := usage.NewClickHouseConn(&usage.ClickHouseConfig{
			Host:     conf.CLICKHOUSE_HOST,
			Port:     conf.CLICKHOUSE_PORT,
			Database: conf.CLICKHOUSE_DATABASE,
			Username: conf.CLICKHOUSE_USERNAME,
			Password: conf.CLICKHOUSE_PASSWORD,
			UseTLS:   conf.CLICKHOUSE_USE_TLS,
		})
		if err != nil {
			slog.Warn("Failed to connect to ClickHouse for usage analytics", slog.Any("error", err))
		} else {
			analytics = usage.NewAnalytics(chConn)
			if err := analytics.EnsureSchema(context.Background()); err != nil {
				slog.Warn("Failed to ensure ClickHouse usage schema, disabling analytics", slog.Any("error", err))
				analytics = nil
			} else {
				slog.Info("Connected to ClickHouse for usage analytics")
			}
		}
	}

	return &Services{
		Project: project.NewProjectService(project.NewProjectRepo(dbconn), cipher),
		User:    user.NewUserService(user.NewUserRepo(dbconn)),
		Usage:   usage.NewUsageService(usage.NewUsageRepo(dbconn), analytics),
	}
}
