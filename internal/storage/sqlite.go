package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pkuwise/pkuwise/internal/profile"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding user profiles, diet logs, and the
// PKU knowledge corpus.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "pkuwise.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for the vector store.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Profiles ---

// GetProfile fetches a user's clinical profile. Returns ErrNotFound when no
// row exists for the user.
func (s *Store) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	var p profile.Profile
	var allergies, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, dob, weight_kg, phe_tolerance_mg, protein_goal_g, calories_goal_kcal, allergies, country, created_at
		FROM profiles WHERE id = ?`, userID,
	).Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.WeightKg, &p.PheToleranceMg,
		&p.ProteinGoalG, &p.CaloriesGoalKcal, &allergies, &p.Country, &createdAt)
	if err == sql.ErrNoRows {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("querying profile %s: %w", userID, err)
	}

	if err := json.Unmarshal([]byte(allergies), &p.Allergies); err != nil {
		return profile.Profile{}, fmt.Errorf("parsing allergies for %s: %w", userID, err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = t
	}
	return p, nil
}

// SaveProfile inserts or replaces a user's profile.
func (s *Store) SaveProfile(ctx context.Context, p profile.Profile) error {
	allergies, err := json.Marshal(p.Allergies)
	if err != nil {
		return fmt.Errorf("marshalling allergies: %w", err)
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO profiles (id, name, dob, weight_kg, phe_tolerance_mg, protein_goal_g, calories_goal_kcal, allergies, country, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.DateOfBirth, p.WeightKg, p.PheToleranceMg,
		p.ProteinGoalG, p.CaloriesGoalKcal, string(allergies), p.Country,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving profile %s: %w", p.ID, err)
	}
	return nil
}

// --- Diet logs ---

// SaveDietLog inserts or replaces one day's logged intake.
func (s *Store) SaveDietLog(ctx context.Context, l DietLog) error {
	createdAt := l.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO diet_logs (id, user_id, log_date, phe_mg, protein_g, calories_kcal, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.LogDate, l.PheMg, l.ProteinG, l.CaloriesKcal,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving diet log %s: %w", l.ID, err)
	}
	return nil
}

// GetDietReport aggregates a user's logged intake over [startDate, endDate]
// (inclusive, ISO 8601 dates). The over-limit count compares each day against
// the PHE tolerance in the user's profile; with no tolerance set, no day
// counts as over.
func (s *Store) GetDietReport(ctx context.Context, userID, startDate, endDate string) (DietReport, error) {
	var r DietReport
	var avgPhe, avgProtein, avgCalories sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(l.phe_mg), AVG(l.protein_g), AVG(l.calories_kcal),
			COALESCE(SUM(CASE WHEN p.phe_tolerance_mg > 0 AND l.phe_mg > p.phe_tolerance_mg THEN 1 ELSE 0 END), 0)
		FROM diet_logs l
		LEFT JOIN profiles p ON p.id = l.user_id
		WHERE l.user_id = ? AND l.log_date >= ? AND l.log_date <= ?`,
		userID, startDate, endDate,
	).Scan(&r.TotalDaysLogged, &avgPhe, &avgProtein, &avgCalories, &r.DaysOverPheLimit)
	if err != nil {
		return DietReport{}, fmt.Errorf("aggregating diet report for %s: %w", userID, err)
	}
	r.AvgPheMg = avgPhe.Float64
	r.AvgProteinG = avgProtein.Float64
	r.AvgCaloriesKcal = avgCalories.Float64
	return r, nil
}
