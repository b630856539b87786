// Command migrate applies database migrations. Usage:
//
//	migrate up
//	migrate down 1
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/noah-isme/backend-caseshop/internal/config"
	"github.com/noah-isme/backend-caseshop/internal/obs"
)

func main() {
	cfg := config.MustLoad()
	logger := obs.NewLogger("console", "info").With().Str("component", "migrate").Logger()

	source := os.Getenv("MIGRATIONS_PATH")
	if source == "" {
		source = "file://db/migrations"
	}

	m, err := migrate.New(source, migrateURL(cfg.DatabaseURL))
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrator")
	}
	defer func() { _, _ = m.Close() }()

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if parsed, perr := strconv.Atoi(os.Args[2]); perr == nil {
				steps = parsed
			}
		}
		err = m.Steps(-steps)
	default:
		logger.Fatal().Msg(fmt.Sprintf("unknown direction %q, want up or down", direction))
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		logger.Fatal().Err(verr).Msg("read schema version")
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
}

// migrateURL maps the pool's postgres:// DSN onto the scheme the pgx/v5
// migrate driver registers itself under.
func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}
