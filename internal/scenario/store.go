package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when no scenario has the requested name.
var ErrNotFound = errors.New("scenario not found")

// Record is the database row for one scenario. Entity lists are stored as
// JSON columns.
type Record struct {
	ID         uint           `gorm:"primarykey"`
	Name       string         `gorm:"uniqueIndex;size:128;not null"`
	View       string         `gorm:"size:16"`
	Units      datatypes.JSON `json:"units"`
	Structures datatypes.JSON `json:"structures"`
	Sensors    datatypes.JSON `json:"sensors"`
	Zones      datatypes.JSON `json:"zones"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName pins the table name.
func (Record) TableName() string { return "scenarios" }

// Store persists scenarios in sqlite or postgres.
type Store struct {
	DB     *gorm.DB
	Logger zerolog.Logger
}

// Open connects to the database and migrates the scenarios table.
// driver is "sqlite" (dsn is a file path) or "postgres" (dsn is a libpq
// connection string).
func Open(driver, dsn string, log zerolog.Logger) (*Store, error) {
	cfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}

	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate scenarios table: %w", err)
	}

	log.Info().Str("driver", driver).Msg("Scenario store ready")
	return &Store{DB: db, Logger: log}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// Save inserts sc, or replaces the stored scenario with the same name.
func (s *Store) Save(sc Scenario) error {
	if sc.Name == "" {
		return errors.New("scenario name is required")
	}
	rec, err := toRecord(sc)
	if err != nil {
		return err
	}
	err = s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"view", "units", "structures", "sensors", "zones", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("saving scenario %q: %w", sc.Name, err)
	}
	s.Logger.Debug().Str("scenario", sc.Name).Msg("Scenario saved")
	return nil
}

// Load fetches a scenario by name.
func (s *Store) Load(name string) (Scenario, error) {
	var rec Record
	err := s.DB.Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Scenario{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Scenario{}, fmt.Errorf("loading scenario %q: %w", name, err)
	}
	return fromRecord(rec)
}

// List returns stored scenario names in alphabetical order.
func (s *Store) List() ([]string, error) {
	var names []string
	if err := s.DB.Model(&Record{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("listing scenarios: %w", err)
	}
	return names, nil
}

// Delete removes a scenario by name.
func (s *Store) Delete(name string) error {
	res := s.DB.Where("name = ?", name).Delete(&Record{})
	if res.Error != nil {
		return fmt.Errorf("deleting scenario %q: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

func toRecord(sc Scenario) (Record, error) {
	rec := Record{Name: sc.Name, View: sc.View}
	cols := []struct {
		dst *datatypes.JSON
		v   any
	}{
		{&rec.Units, sc.Units},
		{&rec.Structures, sc.Structures},
		{&rec.Sensors, sc.Sensors},
		{&rec.Zones, sc.Zones},
	}
	for _, c := range cols {
		b, err := json.Marshal(c.v)
		if err != nil {
			return Record{}, fmt.Errorf("encoding scenario %q: %w", sc.Name, err)
		}
		*c.dst = datatypes.JSON(b)
	}
	return rec, nil
}

func fromRecord(rec Record) (Scenario, error) {
	sc := Scenario{Name: rec.Name, View: rec.View}
	cols := []struct {
		src datatypes.JSON
		v   any
	}{
		{rec.Units, &sc.Units},
		{rec.Structures, &sc.Structures},
		{rec.Sensors, &sc.Sensors},
		{rec.Zones, &sc.Zones},
	}
	for _, c := range cols {
		if len(c.src) == 0 {
			continue
		}
		if err := json.Unmarshal(c.src, c.v); err != nil {
			return Scenario{}, fmt.Errorf("decoding scenario %q: %w", rec.Name, err)
		}
	}
	return sc, nil
}
