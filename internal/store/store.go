package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/hl-pug-backend/internal/engine"
)

var ErrGameNotFound = errors.New("game not found")

// Game is a finalized Highlander match.
type Game struct {
	ID         uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	LobbyCode  string       `json:"lobby_code" gorm:"index;not null"`
	FinishedAt time.Time    `json:"finished_at" gorm:"index;not null"`
	Players    []GamePlayer `json:"players" gorm:"constraint:OnDelete:CASCADE"`
}

type GamePlayer struct {
	ID      uint      `json:"-" gorm:"primaryKey"`
	GameID  uuid.UUID `json:"-" gorm:"type:uuid;index;not null"`
	Team    int       `json:"team" gorm:"not null"`
	Role    string    `json:"role" gorm:"not null"`
	Nick    string    `json:"nick" gorm:"not null"`
	Captain bool      `json:"captain" gorm:"not null;default:false"`
}

// Teams rebuilds the role mappings of the game.
func (g Game) Teams() [2]engine.Team {
	teams := [2]engine.Team{{}, {}}
	for _, p := range g.Players {
		if p.Team < 0 || p.Team >= len(teams) {
			continue
		}
		teams[p.Team][engine.Role(p.Role)] = p.Nick
	}
	return teams
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to postgres through gorm's pgx driver.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return New(db), nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Game{}, &GamePlayer{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// NewGame flattens finalized teams into a Game row set.
func NewGame(code string, captains [2]string, teams [2]engine.Team, finishedAt time.Time) Game {
	g := Game{ID: uuid.New(), LobbyCode: code, FinishedAt: finishedAt.UTC()}
	for team, roster := range teams {
		for _, r := range engine.Roles {
			nick, ok := roster[r]
			if !ok {
				continue
			}
			g.Players = append(g.Players, GamePlayer{
				GameID:  g.ID,
				Team:    team,
				Role:    string(r),
				Nick:    nick,
				Captain: nick == captains[team],
			})
		}
	}
	return g
}

// RecordGame stores one finalized game. It satisfies lobby.Recorder.
func (s *Store) RecordGame(ctx context.Context, code string, captains [2]string, teams [2]engine.Team) error {
	g := NewGame(code, captains, teams, s.now())
	if err := s.db.WithContext(ctx).Create(&g).Error; err != nil {
		return fmt.Errorf("record game %s: %w", code, err)
	}
	return nil
}

func (s *Store) RecentGames(ctx context.Context, limit int) ([]Game, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var games []Game
	err := s.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("team, id") }).
		Order("finished_at DESC").
		Limit(limit).
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("recent games: %w", err)
	}
	return games, nil
}

func (s *Store) GetGame(ctx context.Context, id uuid.UUID) (Game, error) {
	var g Game
	err := s.db.WithContext(ctx).Preload("Players").First(&g, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Game{}, ErrGameNotFound
	}
	if err != nil {
		return Game{}, fmt.Errorf("get game %s: %w", id, err)
	}
	return g, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
