// Package gormstore implements engine.Store on a relational database through
// gorm. MySQL, PostgreSQL and SQLite are supported; the schema mirrors the
// airport, country, player, game_state, player_movement, clues and npc tables.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wricardo/skytrack/game/config"
	"github.com/wricardo/skytrack/game/engine"
)

var _ engine.Store = (*Store)(nil)

// Options tunes the connection pool and query behaviour
type Options struct {
	QueryTimeout time.Duration
	MaxOpenConns int
	Debug        bool
}

// Store is a gorm-backed engine.Store
type Store struct {
	db           *gorm.DB
	queryTimeout time.Duration
	inTx         bool
}

// Open connects, migrates the schema and returns a store
func Open(dialector gorm.Dialector, opts Options) (*Store, error) {
	if dialector == nil {
		return nil, fmt.Errorf("no database dialector configured")
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 5 * time.Second
	}

	gormConfig := gorm.Config{}
	if opts.Debug {
		gormConfig.Logger = logger.Default.LogMode(logger.Error)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, &gormConfig)
	if err != nil {
		return nil, fmt.Errorf("error occurred while connecting to database: %w", err)
	}

	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("error occurred while migrating database: %w", err)
	}

	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error occurred while creating database pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(opts.MaxOpenConns)
		pool.SetMaxIdleConns(opts.MaxOpenConns)
	}

	return &Store{db: db, queryTimeout: opts.QueryTimeout}, nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	pool, err := s.db.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return pool.PingContext(ctx)
}

func (s *Store) query(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	return s.db.WithContext(ctx), cancel
}

// WithinTx runs fn in a database transaction
func (s *Store) WithinTx(ctx context.Context, fn func(tx engine.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, queryTimeout: s.queryTimeout, inTx: true})
	})
}

// Seed upserts the world's countries and airports and replaces the clues
// and informants of every airport it lists.
func (s *Store) Seed(ctx context.Context, world *config.World) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		countries := make([]countryModel, 0, len(world.Countries))
		for _, c := range world.Countries {
			countries = append(countries, countryModel{ISOCountry: c.ISOCode, Name: c.Name})
		}
		if len(countries) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&countries).Error; err != nil {
				return fmt.Errorf("fail to seed countries: %w", err)
			}
		}

		airports := make([]airportModel, 0, len(world.Airports))
		ids := make([]int64, 0, len(world.Airports))
		var clues []clueModel
		var npcs []npcModel
		for _, a := range world.Airports {
			airports = append(airports, airportModel{
				ID:            a.ID,
				Ident:         a.Ident,
				Name:          a.Name,
				ISOCountry:    a.ISOCountry,
				LatitudeDeg:   a.Latitude,
				LongitudeDeg:  a.Longitude,
				FuelPrice:     a.FuelPrice,
				FuelAvailable: a.FuelAvailable,
			})
			ids = append(ids, a.ID)
			for _, c := range a.Clues {
				clues = append(clues, clueModel{AirportID: a.ID, Description: c.Description, Valid: c.Valid})
			}
			for _, n := range a.NPCs {
				npcs = append(npcs, npcModel{AirportID: a.ID, Name: n.Name, Role: n.Role, Information: n.Info})
			}
		}
		if len(airports) == 0 {
			return nil
		}

		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&airports).Error; err != nil {
			return fmt.Errorf("fail to seed airports: %w", err)
		}
		if err := tx.Where("airport_id IN ?", ids).Delete(&clueModel{}).Error; err != nil {
			return fmt.Errorf("fail to clear clues: %w", err)
		}
		if err := tx.Where("airport_id IN ?", ids).Delete(&npcModel{}).Error; err != nil {
			return fmt.Errorf("fail to clear npcs: %w", err)
		}
		if len(clues) > 0 {
			if err := tx.Create(&clues).Error; err != nil {
				return fmt.Errorf("fail to seed clues: %w", err)
			}
		}
		if len(npcs) > 0 {
			if err := tx.Create(&npcs).Error; err != nil {
				return fmt.Errorf("fail to seed npcs: %w", err)
			}
		}
		return nil
	})
}

func notFound(kind string, key any) error {
	return fmt.Errorf("%s %v: %w", kind, key, engine.ErrRecordNotFound)
}

func (s *Store) GetPlayer(ctx context.Context, id int64) (*engine.Player, error) {
	db, cancel := s.query(ctx)
	defer cancel()

	var m playerModel
	err := db.Where("player_id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("player", id)
	}
	if err != nil {
		return nil, err
	}
	return m.toPlayer(), nil
}

func (s *Store) FindPlayerByName(ctx context.Context, screenName string) (*engine.Player, error) {
	db, cancel := s.query(ctx)
	defer cancel()

	var m playerModel
	err := db.Where("screen_name = ?", screenName).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("player", screenName)
	}
	if err != nil {
		return nil, err
	}
	return m.toPlayer(), nil
}

func (s *Store) CreatePlayer(ctx context.Context, screenName string, startAirportID int64, startingFuel float64) (*engine.Player, error) {
	db, cancel := s.query(ctx)
	defer cancel()

	m := playerModel{
		ScreenName:       screenName,
		CurrentAirportID: startAirportID,
		Fuel:             startingFuel,
	}
	if err := db.Create(&m).Error; err != nil {
		return nil, fmt.Errorf("fail to create player: %w", err)
	}
	return m.toPlayer(), nil
}

func (s *Store) updatePlayer(ctx context.Context, id int64, column string, value interface{}) error {
	db, cancel := s.query(ctx)
	defer cancel()

	result := db.Model(&playerModel{}).Where("player_id = ?", id).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound("player", id)
	}
	return nil
}

func (s *Store) UpdatePlayerFuel(ctx context.Context, id int64, fuel float64) error {
	return s.updatePlayer(ctx, id, "fuel", fuel)
}

func (s *Store) UpdatePlayerLocation(ctx context.Context, id int64, airportID int64) error {
	return s.updatePlayer(ctx, id, "current_airport_id", airportID)
}

func (s *Store) UpdatePlayerRefuelAttempts(ctx context.Context, id int64, attempts int) error {
	return s.updatePlayer(ctx, id, "refuel_attempts", attempts)
}

func (s *Store) SetPlayerGameOver(ctx context.Context, id int64, over bool) error {
	return s.updatePlayer(ctx, id, "game_over", over)
}

func (s *Store) CreateGame(ctx context.Context, playerID int64) (int64, error) {
	if _, err := s.GetPlayer(ctx, playerID); err != nil {
		return 0, err
	}

	db, cancel := s.query(ctx)
	defer cancel()

	m := gameStateModel{PlayerID: playerID}
	if err := db.Create(&m).Error; err != nil {
		return 0, fmt.Errorf("fail to create game: %w", err)
	}
	return m.GameID, nil
}

func (s *Store) GetGame(ctx context.Context, id int64) (*engine.GameState, error) {
	db, cancel := s.query(ctx)
	defer cancel()

	var m gameStateModel
	err := db.Where("game_id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("game", id)
	}
	if err != nil {
		return nil, err
	}
	return m.toGame(), nil
}

func (s *Store) UpdateGame(ctx context.Context, id int64, update engine.GameUpdate) error {
	if update.IsEmpty() {
		_, err := s.GetGame(ctx, id)
		return err
	}

	fields := make(map[string]interface{}, 3)
	if update.MovesCount != nil {
		fields["moves_count"] = *update.MovesCount
	}
	if update.CriminalCaught != nil {
		fields["criminal_caught"] = *update.CriminalCaught
	}
	if update.GameOver != nil {
		fields["game_over"] = *update.GameOver
	}

	db, cancel := s.query(ctx)
	defer cancel()

	result := db.Model(&gameStateModel{}).Where("game_id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound("game", id)
	}
	return nil
}

func (s *Store) AppendMovement(ctx context.Context, playerID, fromID, toID int64, distanceKm float64) error {
	db, cancel := s.query(ctx)
	defer cancel()

	m := movementModel{
		PlayerID:             playerID,
		DepartureAirportID:   fromID,
		DestinationAirportID: toID,
		DistanceTraveled:     distanceKm,
		MovedAt:              time.Now(),
	}
	if err := db.Create(&m).Error; err != nil {
		return fmt.Errorf("fail to record movement: %w", err)
	}
	return nil
}

func (s *Store) ListMovements(ctx context.Context, playerID int64) ([]engine.MovementRecord, error) {
	db, cancel := s.query(ctx)
	defer cancel()

	var rows []movementModel
	if err := db.Where("player_id = ?", playerID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]engine.MovementRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, engine.MovementRecord{
			ID:            r.ID,
			PlayerID:      r.PlayerID,
			FromAirportID: r.DepartureAirportID,
			ToAirportID:   r.DestinationAirportID,
			DistanceKm:    r.DistanceTraveled,
			MovedAt:       r.MovedAt,
		})
	}
	return records, nil
}

func (s *Store) PurgeMovements(ctx context.Context, playerID int64) error {
	db, cancel := s.query(ctx)
	defer cancel()

	return db.Where("player_id = ?", playerID).Delete(&movementModel{}).Error
}

func (s *Store) airports(db *gorm.DB) *gorm.DB {
	return db.Table("airport").
		Select("airport.id, airport.ident, airport.name, airport.iso_country, airport.latitude_deg, " +
			"airport.longitude_deg, airport.fuel_price, airport.fuel_available, country.name AS country_name").
		Joins("LEFT JOIN country ON country.iso_country = airport.iso_country")
}

func (s *Store) GetAirport(ctx context.Context, id int64) (*engine.Airport, error) {
	db, cancel := s.query(ctx)
	defer cancel()

	var rows []airportRow
	if err := s.airports(db).Where("airport.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound("airport", id)
	}
	return rows[0].toAirport(), nil
}

func (s *Store) ListAirportsExcept(ctx context.Context, id int64) ([]engine.Airport, error) {
	db, cancel := s.query(ctx)
	defer cancel()

	var rows []airportRow
	err := s.airports(db).
		Where("airport.id <> ?", id).
		Order("country.name, airport.name, airport.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	airports := make([]engine.Airport, 0, len(rows))
	for i := range rows {
		airports = append(airports, *rows[i].toAirport())
	}
	return airports, nil
}

func (s *Store) GetCluesAt(ctx context.Context, airportID int64) ([]engine.Clue, error) {
	db, cancel := s.query(ctx)
	defer cancel()

	var rows []clueModel
	if err := db.Where("airport_id = ?", airportID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	clues := make([]engine.Clue, 0, len(rows))
	for _, r := range rows {
		clues = append(clues, engine.Clue{Description: r.Description, Valid: r.Valid})
	}
	return clues, nil
}

func (s *Store) GetNpcsAt(ctx context.Context, airportID int64) ([]engine.NPC, error) {
	db, cancel := s.query(ctx)
	defer cancel()

	var rows []npcModel
	if err := db.Where("airport_id = ?", airportID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	npcs := make([]engine.NPC, 0, len(rows))
	for _, r := range rows {
		npcs = append(npcs, engine.NPC{Name: r.Name, Role: r.Role, Info: r.Information})
	}
	return npcs, nil
}
