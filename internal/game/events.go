package game

import (
	"github.com/lox/pokertable/poker"
)

// EventType names an entry in a hand's event log.
type EventType string

const (
	EventHandStart        EventType = "hand_start"
	EventBlindsIncreased  EventType = "blinds_increased"
	EventPostBlind        EventType = "post_blind"
	EventDealHole         EventType = "deal_hole"
	EventFold             EventType = "fold"
	EventCheck            EventType = "check"
	EventCall             EventType = "call"
	EventRaise            EventType = "raise"
	EventAllIn            EventType = "all_in"
	EventStreet           EventType = "street"
	EventShowdown         EventType = "showdown"
	EventPotAwarded       EventType = "pot_awarded"
	EventHandComplete     EventType = "hand_complete"
	EventPlayerEliminated EventType = "player_eliminated"
)

// Event is one entry of the ordered per-hand log. Seat is -1 for table events.
type Event struct {
	Seq     int          `json:"seq" toml:"seq"`
	Type    EventType    `json:"type" toml:"type"`
	Street  Street       `json:"street" toml:"street"`
	Seat    int          `json:"seat" toml:"seat"`
	Amount  int          `json:"amount,omitempty" toml:"amount,omitempty"`
	RaiseTo int          `json:"raise_to,omitempty" toml:"raise_to,omitempty"`
	Cards   []poker.Card `json:"cards,omitempty" toml:"cards,omitempty"`
	Detail  string       `json:"detail,omitempty" toml:"detail,omitempty"`
}

func (t *Table) record(e Event) {
	e.Seq = len(t.events) + 1
	t.events = append(t.events, e)
}

func (t *Table) recordTable(typ EventType, amount int, detail string) {
	t.record(Event{Type: typ, Street: t.street, Seat: -1, Amount: amount, Detail: detail})
}
