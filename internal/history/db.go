package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/poker"
)

// HandRow is one completed hand.
type HandRow struct {
	ID             int64      `gorm:"column:id;primaryKey;autoIncrement"`
	HandID         string     `gorm:"column:hand_id;type:varchar(36);uniqueIndex;not null"`
	TableID        string     `gorm:"column:table_id;type:varchar(36);index:idx_table_hand;not null"`
	HandNumber     int        `gorm:"column:hand_number;index:idx_table_hand;not null"`
	ButtonSeat     int        `gorm:"column:button_seat"`
	SmallBlindSeat int        `gorm:"column:small_blind_seat"`
	BigBlindSeat   int        `gorm:"column:big_blind_seat"`
	SmallBlind     int        `gorm:"column:small_blind"`
	BigBlind       int        `gorm:"column:big_blind"`
	FinalPot       int        `gorm:"column:final_pot"`
	Showdown       bool       `gorm:"column:showdown"`
	Community      string     `gorm:"column:community;type:varchar(32)"`
	Winners        string     `gorm:"column:winners;type:varchar(64)"`
	CompletedAt    time.Time  `gorm:"column:completed_at"`
	Seats          []SeatRow  `gorm:"foreignKey:HandRowID;constraint:OnDelete:CASCADE"`
	Events         []EventRow `gorm:"foreignKey:HandRowID;constraint:OnDelete:CASCADE"`
}

func (HandRow) TableName() string { return "hands" }

// SeatRow is one seat's part in a hand.
type SeatRow struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	HandRowID  int64  `gorm:"column:hand_row_id;index;not null"`
	Seat       int    `gorm:"column:seat"`
	Name       string `gorm:"column:name;type:varchar(64)"`
	Kind       string `gorm:"column:kind;type:varchar(8)"`
	StartStack int    `gorm:"column:start_stack"`
	EndStack   int    `gorm:"column:end_stack"`
	Invested   int    `gorm:"column:invested"`
	HoleCards  string `gorm:"column:hole_cards;type:varchar(8)"`
	Folded     bool   `gorm:"column:folded"`
	Won        int    `gorm:"column:won"`
	HandLabel  string `gorm:"column:hand_label;type:varchar(64)"`
	Eliminated bool   `gorm:"column:eliminated"`
}

func (SeatRow) TableName() string { return "hand_seats" }

// EventRow is one entry of the hand log.
type EventRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	HandRowID int64  `gorm:"column:hand_row_id;index;not null"`
	Seq       int    `gorm:"column:seq"`
	Type      string `gorm:"column:type;type:varchar(32)"`
	Street    string `gorm:"column:street;type:varchar(16)"`
	Seat      int    `gorm:"column:seat"`
	Amount    int    `gorm:"column:amount"`
	RaiseTo   int    `gorm:"column:raise_to"`
	Cards     string `gorm:"column:cards;type:varchar(32)"`
	Detail    string `gorm:"column:detail;type:varchar(128)"`
}

func (EventRow) TableName() string { return "hand_events" }

// OpenDB connects to "sqlite" or "mysql" with a driver specific DSN.
func OpenDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("history: unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("history: connect to %s: %w", driver, err)
	}
	return db, nil
}

// DBSink stores hands as rows through gorm.
type DBSink struct {
	db *gorm.DB
}

// NewDBSink migrates the schema and returns a sink over db.
func NewDBSink(db *gorm.DB) (*DBSink, error) {
	if err := db.AutoMigrate(&HandRow{}, &SeatRow{}, &EventRow{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &DBSink{db: db}, nil
}

func (s *DBSink) Write(ctx context.Context, rec game.HandRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("history: insert hand %s: %w", rec.HandID, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *DBSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Hands loads the stored hands of a table in hand order.
func (s *DBSink) Hands(ctx context.Context, tableID string) ([]HandRow, error) {
	var rows []HandRow
	err := s.db.WithContext(ctx).
		Preload("Seats", func(db *gorm.DB) *gorm.DB { return db.Order("seat") }).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Where("table_id = ?", tableID).
		Order("hand_number").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("history: load hands for %s: %w", tableID, err)
	}
	return rows, nil
}

func toRow(rec game.HandRecord) (HandRow, error) {
	winners, err := json.Marshal(rec.Winners)
	if err != nil {
		return HandRow{}, err
	}
	row := HandRow{
		HandID:         rec.HandID,
		TableID:        rec.TableID,
		HandNumber:     rec.HandNumber,
		ButtonSeat:     rec.ButtonSeat,
		SmallBlindSeat: rec.SmallBlindSeat,
		BigBlindSeat:   rec.BigBlindSeat,
		SmallBlind:     rec.SmallBlind,
		BigBlind:       rec.BigBlind,
		FinalPot:       rec.FinalPot,
		Showdown:       rec.Showdown,
		Community:      poker.FormatCards(rec.Community),
		Winners:        string(winners),
		CompletedAt:    rec.CompletedAt,
	}

	won := make(map[int]int)
	for _, a := range rec.Awards {
		won[a.Seat] += a.Amount
	}
	for _, seat := range rec.Seats {
		row.Seats = append(row.Seats, SeatRow{
			Seat:       seat.Seat,
			Name:       seat.Name,
			Kind:       seat.Kind.String(),
			StartStack: seat.StartStack,
			EndStack:   seat.EndStack,
			Invested:   seat.Invested,
			HoleCards:  poker.FormatCards(seat.HoleCards),
			Folded:     seat.Folded,
			Won:        won[seat.Seat],
			HandLabel:  seat.HandLabel,
			Eliminated: seat.Eliminated,
		})
	}
	for _, e := range rec.Events {
		row.Events = append(row.Events, EventRow{
			Seq:     e.Seq,
			Type:    string(e.Type),
			Street:  e.Street.String(),
			Seat:    e.Seat,
			Amount:  e.Amount,
			RaiseTo: e.RaiseTo,
			Cards:   poker.FormatCards(e.Cards),
			Detail:  e.Detail,
		})
	}
	return row, nil
}

var _ Sink = (*DBSink)(nil)
