package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a room, an event sequence,
// and expectations over the derived views.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Room declares the room the events run in.
	Room RoomDef `yaml:"room"`

	// Events is the sequence submitted to the coordinator, in order.
	Events []EventStep `yaml:"events"`

	// Expect validates the derived views after all events are applied.
	Expect Expectations `yaml:"expect"`
}

// RoomDef declares the scenario's room.
type RoomDef struct {
	Name         string           `yaml:"name"`
	Currency     string           `yaml:"currency"`
	Participants []ParticipantDef `yaml:"participants"`
}

// ParticipantDef declares one participant. Weight defaults to 1.
type ParticipantDef struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name,omitempty"`
	Weight int64  `yaml:"weight,omitempty"`
}

// EventStep is one event submission. Amounts are decimal strings in the
// room currency.
type EventStep struct {
	// Kind is contribution, expense, or distribution.
	Kind string `yaml:"kind"`

	// Actor is the contributor, payer, or recorder.
	Actor string `yaml:"actor"`

	Amount string `yaml:"amount"`

	// Policy applies to expense and distribution steps. Defaults to equal.
	Policy string `yaml:"policy,omitempty"`

	// Shares gives exact per-participant amounts for the exact policy.
	Shares map[string]string `yaml:"shares,omitempty"`

	Note string `yaml:"note,omitempty"`

	// Reject, when set, asserts the event is refused with this validation
	// code instead of being applied (e.g. "UNBALANCED_SHARES").
	Reject string `yaml:"reject,omitempty"`
}

// Expectations validates the derived views. All fields are optional;
// empty expectations still exercise conservation and determinism via the
// golden snapshot.
type Expectations struct {
	// Balances maps participant id to expected net balance.
	Balances map[string]string `yaml:"balances,omitempty"`

	// Pool is the expected pool balance.
	Pool string `yaml:"pool,omitempty"`

	// Positions maps participant id to expected settlement position
	// (balance with the pool folded back in).
	Positions map[string]string `yaml:"positions,omitempty"`

	// Transfers is the expected settlement plan, in order.
	Transfers []TransferExpect `yaml:"transfers,omitempty"`
}

// TransferExpect is one expected settlement transfer.
type TransferExpect struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Amount string `yaml:"amount"`
}

// Event kind constants mirrored from the ledger, spelled out so scenario
// files stay readable without importing Go types.
const (
	KindContribution = "contribution"
	KindExpense      = "expense"
	KindDistribution = "distribution"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently weakening a scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Room.Name == "" {
		return fmt.Errorf("room.name is required")
	}
	if s.Room.Currency == "" {
		return fmt.Errorf("room.currency is required")
	}
	if len(s.Room.Participants) == 0 {
		return fmt.Errorf("room.participants is required and must be non-empty")
	}

	seen := map[string]bool{}
	for i, p := range s.Room.Participants {
		if p.ID == "" {
			return fmt.Errorf("room.participants[%d]: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("room.participants[%d]: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
		if p.Weight < 0 {
			return fmt.Errorf("room.participants[%d]: weight must not be negative", i)
		}
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}
	for i, ev := range s.Events {
		switch ev.Kind {
		case KindContribution, KindExpense, KindDistribution:
		case "":
			return fmt.Errorf("events[%d]: kind is required", i)
		default:
			return fmt.Errorf("events[%d]: unknown kind %q", i, ev.Kind)
		}
		if ev.Actor == "" {
			return fmt.Errorf("events[%d]: actor is required", i)
		}
		if ev.Amount == "" {
			return fmt.Errorf("events[%d]: amount is required", i)
		}
		if ev.Kind == KindContribution && (ev.Policy != "" || len(ev.Shares) > 0) {
			return fmt.Errorf("events[%d]: contributions take no policy or shares", i)
		}
	}

	for i, tr := range s.Expect.Transfers {
		if tr.From == "" || tr.To == "" || tr.Amount == "" {
			return fmt.Errorf("expect.transfers[%d]: from, to, and amount are required", i)
		}
	}

	return nil
}
