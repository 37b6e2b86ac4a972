// Package persistence provides SQLite-based storage for named parameter
// presets (scenarios). Simulation results are never stored.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hippo-sim/internal/engine"
)

// DefaultScenario is the name under which DefaultParameters is seeded.
const DefaultScenario = "default"

// ErrScenarioNotFound is returned when no scenario has the requested name.
var ErrScenarioNotFound = errors.New("persistence: scenario not found")

// Scenario is a named parameter preset.
type Scenario struct {
	Name       string            `json:"name"`
	Parameters engine.Parameters `json:"parameters"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// scenarioRow is the flat table layout of a Scenario.
type scenarioRow struct {
	Name              string  `db:"name"`
	InitialPopulation int     `db:"initial_population"`
	BirthMean         float64 `db:"birth_mean"`
	BirthDev          float64 `db:"birth_dev"`
	DeathMean         float64 `db:"death_mean"`
	DeathDev          float64 `db:"death_dev"`
	HumanMean         float64 `db:"human_mean"`
	HumanDev          float64 `db:"human_dev"`
	ResourcesMean     float64 `db:"resources_mean"`
	ResourcesDev      float64 `db:"resources_dev"`
	PhenomenonMean    float64 `db:"phenomenon_mean"`
	PhenomenonDev     float64 `db:"phenomenon_dev"`
	UpdatedAt         int64   `db:"updated_at"`
}

func toRow(name string, p engine.Parameters, at time.Time) scenarioRow {
	return scenarioRow{
		Name:              name,
		InitialPopulation: p.InitialPopulation,
		BirthMean:         p.Birth.Mean,
		BirthDev:          p.Birth.Dev,
		DeathMean:         p.NaturalDeath.Mean,
		DeathDev:          p.NaturalDeath.Dev,
		HumanMean:         p.HumanInfluence.Mean,
		HumanDev:          p.HumanInfluence.Dev,
		ResourcesMean:     p.Resources.Mean,
		ResourcesDev:      p.Resources.Dev,
		PhenomenonMean:    p.Phenomenon.Mean,
		PhenomenonDev:     p.Phenomenon.Dev,
		UpdatedAt:         at.Unix(),
	}
}

func (r scenarioRow) scenario() Scenario {
	return Scenario{
		Name: r.Name,
		Parameters: engine.Parameters{
			InitialPopulation: r.InitialPopulation,
			Birth:             engine.Rate{Mean: r.BirthMean, Dev: r.BirthDev},
			NaturalDeath:      engine.Rate{Mean: r.DeathMean, Dev: r.DeathDev},
			HumanInfluence:    engine.Rate{Mean: r.HumanMean, Dev: r.HumanDev},
			Resources:         engine.Rate{Mean: r.ResourcesMean, Dev: r.ResourcesDev},
			Phenomenon:        engine.Rate{Mean: r.PhenomenonMean, Dev: r.PhenomenonDev},
		},
		UpdatedAt: time.Unix(r.UpdatedAt, 0).UTC(),
	}
}

// DB wraps a SQLite connection holding the scenario catalog.
type DB struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Open opens or creates a SQLite database at the given path, creating the
// parent directory when needed.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const scenarioColumns = `
		(name, initial_population, birth_mean, birth_dev, death_mean, death_dev,
		 human_mean, human_dev, resources_mean, resources_dev,
		 phenomenon_mean, phenomenon_dev, updated_at)
		VALUES (:name, :initial_population, :birth_mean, :birth_dev, :death_mean, :death_dev,
		 :human_mean, :human_dev, :resources_mean, :resources_dev,
		 :phenomenon_mean, :phenomenon_dev, :updated_at)`

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scenarios (
		name TEXT PRIMARY KEY,
		initial_population INTEGER NOT NULL,
		birth_mean REAL NOT NULL,
		birth_dev REAL NOT NULL,
		death_mean REAL NOT NULL,
		death_dev REAL NOT NULL,
		human_mean REAL NOT NULL,
		human_dev REAL NOT NULL,
		resources_mean REAL NOT NULL,
		resources_dev REAL NOT NULL,
		phenomenon_mean REAL NOT NULL,
		phenomenon_dev REAL NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveScenario validates params and stores them under name, replacing any
// existing scenario of that name.
func (db *DB) SaveScenario(name string, params engine.Parameters) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("save scenario: empty name")
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("save scenario %q: %w", name, err)
	}

	_, err := db.conn.NamedExec("INSERT OR REPLACE INTO scenarios"+scenarioColumns, toRow(name, params, db.now()))
	if err != nil {
		return fmt.Errorf("save scenario %q: %w", name, err)
	}
	slog.Debug("scenario saved", "name", name)
	return nil
}

// LoadScenario returns the parameters stored under name.
func (db *DB) LoadScenario(name string) (engine.Parameters, error) {
	var row scenarioRow
	err := db.conn.Get(&row, "SELECT * FROM scenarios WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Parameters{}, fmt.Errorf("%w: %q", ErrScenarioNotFound, name)
	}
	if err != nil {
		return engine.Parameters{}, fmt.Errorf("load scenario %q: %w", name, err)
	}
	return row.scenario().Parameters, nil
}

// ListScenarios returns every stored scenario ordered by name.
func (db *DB) ListScenarios() ([]Scenario, error) {
	var rows []scenarioRow
	if err := db.conn.Select(&rows, "SELECT * FROM scenarios ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	out := make([]Scenario, len(rows))
	for i, r := range rows {
		out[i] = r.scenario()
	}
	return out, nil
}

// DeleteScenario removes the scenario stored under name.
func (db *DB) DeleteScenario(name string) error {
	res, err := db.conn.Exec("DELETE FROM scenarios WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete scenario %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scenario %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrScenarioNotFound, name)
	}
	return nil
}

// SeedDefaults stores DefaultParameters as DefaultScenario unless a scenario
// of that name already exists.
func (db *DB) SeedDefaults() error {
	res, err := db.conn.NamedExec("INSERT OR IGNORE INTO scenarios"+scenarioColumns,
		toRow(DefaultScenario, engine.DefaultParameters(), db.now()))
	if err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("seeded default scenario")
	}
	return nil
}
