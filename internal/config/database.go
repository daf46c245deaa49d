package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresConfig struct {
	URL          string `json:"url" env:"DATABASE_URL"`
	Host         string `json:"host" env:"POSTGRES_HOST"`
	Port         uint16 `json:"port" env:"POSTGRES_PORT"`
	User         string `json:"user" env:"POSTGRES_USER"`
	Password     string `json:"password" env:"POSTGRES_PASSWORD"`
	PasswordFile string `json:"password_file" env:"POSTGRES_PASSWORD_FILE"`
	DbName       string `json:"db_name" env:"POSTGRES_DB"`
	SSLMode      string `json:"ssl_mode" env:"POSTGRES_SSLMODE"`
}

// Enabled reports whether enough is configured to reach a database. The
// server runs memory-only otherwise.
func (p PostgresConfig) Enabled() bool {
	return p.URL != "" || p.Host != ""
}

func (p PostgresConfig) password() (string, error) {
	if p.Password != "" || p.PasswordFile == "" {
		return p.Password, nil
	}
	data, err := os.ReadFile(p.PasswordFile)
	if err != nil {
		return "", fmt.Errorf("unable to read from password file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// DbUrl returns a postgres:// URL usable both by pgx and by the migrator.
func (p PostgresConfig) DbUrl() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" {
		return "", fmt.Errorf("no DATABASE_URL or POSTGRES_HOST set")
	}
	password, err := p.password()
	if err != nil {
		return "", err
	}
	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(p.User),
		url.QueryEscape(password),
		p.Host,
		port,
		p.DbName,
		sslMode,
	), nil
}

func (p PostgresConfig) PgxpoolConfig() (*pgxpool.Config, error) {
	dbURL, err := p.DbUrl()
	if err != nil {
		return nil, err
	}
	return pgxpool.ParseConfig(dbURL)
}
