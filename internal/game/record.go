package game

import (
	"time"

	"github.com/lox/pokertable/internal/evaluator"
	"github.com/lox/pokertable/poker"
)

// HandRecordVersion is bumped whenever HandRecord changes shape.
const HandRecordVersion = 1

// Recorder receives completed hands. Record must return quickly and never
// report failure back to the engine.
type Recorder interface {
	Record(HandRecord)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(HandRecord)

func (f RecorderFunc) Record(r HandRecord) { f(r) }

// RecordSeat is one player's part in a completed hand.
type RecordSeat struct {
	Seat        int          `json:"seat" toml:"seat"`
	Name        string       `json:"name" toml:"name"`
	Kind        Kind         `json:"kind" toml:"kind"`
	StartStack  int          `json:"start_stack" toml:"start_stack"`
	EndStack    int          `json:"end_stack" toml:"end_stack"`
	Invested    int          `json:"invested" toml:"invested"`
	HoleCards   []poker.Card `json:"hole_cards,omitempty" toml:"hole_cards,omitempty"`
	Folded      bool         `json:"folded" toml:"folded"`
	Score       int          `json:"score,omitempty" toml:"score,omitempty"`
	HandLabel   string       `json:"hand_label,omitempty" toml:"hand_label,omitempty"`
	Eliminated  bool         `json:"eliminated" toml:"eliminated"`
	Participant bool         `json:"participant" toml:"participant"`
}

// HandRecord is the serializable summary of one completed hand.
type HandRecord struct {
	Version        int          `json:"version" toml:"version"`
	HandID         string       `json:"hand_id" toml:"hand_id"`
	TableID        string       `json:"table_id" toml:"table_id"`
	HandNumber     int          `json:"hand_number" toml:"hand_number"`
	ButtonSeat     int          `json:"button_seat" toml:"button_seat"`
	SmallBlindSeat int          `json:"small_blind_seat" toml:"small_blind_seat"`
	BigBlindSeat   int          `json:"big_blind_seat" toml:"big_blind_seat"`
	SmallBlind     int          `json:"small_blind" toml:"small_blind"`
	BigBlind       int          `json:"big_blind" toml:"big_blind"`
	FinalPot       int          `json:"final_pot" toml:"final_pot"`
	Showdown       bool         `json:"showdown" toml:"showdown"`
	Community      []poker.Card `json:"community" toml:"community"`
	Winners        []int        `json:"winners" toml:"winners"`
	Awards         []Award      `json:"awards" toml:"awards"`
	Seats          []RecordSeat `json:"seats" toml:"seats"`
	Events         []Event      `json:"events" toml:"events"`
	CompletedAt    time.Time    `json:"completed_at" toml:"completed_at"`
}

// HandResult is what the table reports when a hand finishes.
type HandResult struct {
	HandID     string                   `json:"hand_id"`
	HandNumber int                      `json:"hand_number"`
	Pot        int                      `json:"pot"`
	Pots       []Pot                    `json:"pots,omitempty"`
	Awards     []Award                  `json:"awards"`
	Winners    []int                    `json:"winners"`
	Showdown   bool                     `json:"showdown"`
	Scores     map[int]evaluator.Result `json:"scores,omitempty"`
	Community  []poker.Card             `json:"community"`
	Eliminated []int                    `json:"eliminated,omitempty"`
}

// Won returns the chips awarded to seat.
func (r *HandResult) Won(seat int) int {
	total := 0
	for _, a := range r.Awards {
		if a.Seat == seat {
			total += a.Amount
		}
	}
	return total
}
