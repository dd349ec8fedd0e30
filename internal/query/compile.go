package query

import (
	"fmt"
	"strings"
	"time"
)

// Compile turns a filter into parameterized SQL over the events table,
// scoped to one room.
//
// Every compiled query orders by seq ascending, so results are always a
// contiguous replayable slice of the log. All values are bound parameters,
// never interpolated.
func Compile(roomID string, f Filter) (string, []any, error) {
	if err := Validate(f); err != nil {
		return "", nil, fmt.Errorf("invalid filter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT room_id, seq, kind, actor, amount, policy, shares, note, at
		FROM events
		WHERE room_id = ?`)
	params := []any{roomID}

	if f.Where != nil {
		frag, fragParams, err := compilePredicate(f.Where)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(frag)
		params = append(params, fragParams...)
	}

	sb.WriteString(" ORDER BY seq ASC")

	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, f.Limit)
	}

	return sb.String(), params, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case KindIs:
		return "kind = ?", []any{pred.Kind}, nil
	case ActorIs:
		return "actor = ?", []any{pred.Actor}, nil
	case SeqAtLeast:
		return "seq >= ?", []any{pred.Seq}, nil
	case SeqAtMost:
		return "seq <= ?", []any{pred.Seq}, nil
	case Since:
		// Timestamps are stored RFC 3339; compare through datetime() so
		// differing fractional-second widths cannot skew the ordering.
		return "datetime(at) >= datetime(?)", []any{pred.At.UTC().Format(time.RFC3339Nano)}, nil
	case Until:
		return "datetime(at) <= datetime(?)", []any{pred.At.UTC().Format(time.RFC3339Nano)}, nil
	case And:
		frags := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			frag, fragParams, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			frags = append(frags, frag)
			params = append(params, fragParams...)
		}
		return "(" + strings.Join(frags, " AND ") + ")", params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type %T", p)
	}
}
