package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"lecto-bridge/internal/clients"
	"lecto-bridge/internal/config"
	"lecto-bridge/internal/lecto"
	"lecto-bridge/internal/service"
	"lecto-bridge/pkg/database/postgres"
)

func newLectoClient(c config.LectoConfig) *lecto.Client {
	return lecto.NewClient(lecto.Config{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		MaxAttempts: c.MaxAttempts,
		Timeout:     c.Timeout(),
	}, lecto.WithLogger(slog.Default().With("component", "lecto")))
}

func openPostgres(c config.PostgresConfig) (*sql.DB, error) {
	db, err := postgres.NewPostgresConnection(postgres.ConnectionInfo{
		Host:         c.Host,
		Port:         c.Port,
		Username:     c.User,
		DBName:       c.DBName,
		SSLMode:      c.SSLMode,
		Password:     c.Password,
		MaxOpenConns: c.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres init: %w", err)
	}
	return db, nil
}

func openRedis(c config.RedisConfig) (*clients.RedisClient, error) {
	client, err := clients.NewRedisClient(clients.RedisConfig{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		MaxRetries:  c.MaxRetries,
		DialTimeout: time.Duration(c.DialTimeout) * time.Second,
		Timeout:     time.Duration(c.Timeout) * time.Second,
		Prefix:      c.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("redis init: %w", err)
	}
	return client, nil
}

// newUploader picks S3 when enabled. The local storage is returned as well
// because /files serves it either way.
func newUploader(c config.AppConfig) (service.Uploader, *clients.StorageClient, error) {
	storage, err := clients.NewLocalStorage(c.ExportDir, c.FilesPublicPrefix, c.ExternalURL)
	if err != nil {
		return nil, nil, fmt.Errorf("storage init: %w", err)
	}

	if !c.S3.Enabled {
		return storage, storage, nil
	}

	s3, err := clients.NewS3Client(clients.S3Config{
		Endpoint:        c.S3.Endpoint,
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		Bucket:          c.S3.Bucket,
		UseSSL:          c.S3.UseSSL,
		Region:          c.S3.Region,
		Prefix:          c.S3.Prefix,
		URLTTL:          time.Duration(c.S3.URLTTLHours) * time.Hour,
	})
	if err != nil {
		return nil, nil, err
	}
	return s3, storage, nil
}
