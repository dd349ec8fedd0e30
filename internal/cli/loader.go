package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/finsight/fairsplit/internal/ledger"
)

// RoomDefinition is a declarative room description loaded from CUE. It
// carries everything CreateRoom needs; the room id is still generated at
// creation time.
type RoomDefinition struct {
	Name         string
	Currency     string
	Participants []ledger.Participant
}

// roomSchema constrains definitions beyond what decoding alone would
// catch: integer weights (no floats anywhere near money math), non-empty
// ids, at least one participant.
const roomSchema = `
room: {
	name:     string & !=""
	currency: string | *""
	participants: [...{
		id:     string & !=""
		name:   string | *""
		weight: int & >0 | *1
	}]
}
`

// LoadRoomDefinition loads and validates a single CUE room definition.
func LoadRoomDefinition(path string) (*RoomDefinition, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("room definition not found: %s", path), Err: err}
	}

	ctx := cuecontext.New()

	dir := filepath.Dir(path)
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{filepath.Base(path)}, cfg)
	if len(instances) == 0 || instances[0].Err != nil {
		var err error
		if len(instances) > 0 {
			err = instances[0].Err
		}
		return nil, WrapExitError(ExitCommandError, "loading CUE room definition", err)
	}

	value := ctx.BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return nil, WrapExitError(ExitCommandError, "building CUE room definition", err)
	}

	// Unify with the schema so constraint violations surface as CUE
	// errors with positions.
	schema := ctx.CompileString(roomSchema)
	value = schema.Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid room definition", err)
	}

	roomVal := value.LookupPath(cue.ParsePath("room"))
	if !roomVal.Exists() {
		return nil, NewExitError(ExitCommandError, "room definition must contain a top-level \"room\" field")
	}

	def := &RoomDefinition{}
	var err error
	if def.Name, err = roomVal.LookupPath(cue.ParsePath("name")).String(); err != nil {
		return nil, WrapExitError(ExitCommandError, "room.name", err)
	}
	if def.Currency, err = roomVal.LookupPath(cue.ParsePath("currency")).String(); err != nil {
		return nil, WrapExitError(ExitCommandError, "room.currency", err)
	}

	partsVal := roomVal.LookupPath(cue.ParsePath("participants"))
	iter, err := partsVal.List()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "room.participants", err)
	}

	seen := map[string]bool{}
	for iter.Next() {
		pv := iter.Value()
		p := ledger.Participant{}

		id, err := pv.LookupPath(cue.ParsePath("id")).String()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "participant.id", err)
		}
		if seen[id] {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("duplicate participant id %q", id))
		}
		seen[id] = true
		p.ID = ledger.ParticipantID(id)

		if p.Name, err = pv.LookupPath(cue.ParsePath("name")).String(); err != nil {
			return nil, WrapExitError(ExitCommandError, "participant.name", err)
		}
		if p.Weight, err = pv.LookupPath(cue.ParsePath("weight")).Int64(); err != nil {
			return nil, WrapExitError(ExitCommandError, "participant.weight", err)
		}
		def.Participants = append(def.Participants, p)
	}

	if len(def.Participants) == 0 {
		return nil, NewExitError(ExitCommandError, "room definition needs at least one participant")
	}
	return def, nil
}
