package query

import (
	"fmt"

	"github.com/finsight/fairsplit/internal/ledger"
)

// maxDepth bounds predicate nesting. The fragment only nests through And,
// so anything deeper than this is a programming error, not a real filter.
const maxDepth = 4

// Validate checks a filter before compilation: known event kinds,
// non-empty fields, positive seqs, bounded nesting.
//
// Validate is a pure function; Compile calls it, so callers building
// filters from trusted code may skip it.
func Validate(f Filter) error {
	if f.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", f.Limit)
	}
	if f.Where == nil {
		return nil
	}
	return validatePredicate(f.Where, 0)
}

func validatePredicate(p Predicate, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("predicate nesting exceeds %d levels", maxDepth)
	}

	switch pred := p.(type) {
	case KindIs:
		switch ledger.EventKind(pred.Kind) {
		case ledger.KindContribution, ledger.KindExpense, ledger.KindDistribution:
			return nil
		default:
			return fmt.Errorf("unknown event kind %q", pred.Kind)
		}
	case ActorIs:
		if pred.Actor == "" {
			return fmt.Errorf("actor must not be empty")
		}
		return nil
	case SeqAtLeast:
		if pred.Seq < 1 {
			return fmt.Errorf("seq lower bound must be positive, got %d", pred.Seq)
		}
		return nil
	case SeqAtMost:
		if pred.Seq < 1 {
			return fmt.Errorf("seq upper bound must be positive, got %d", pred.Seq)
		}
		return nil
	case Since:
		if pred.At.IsZero() {
			return fmt.Errorf("since requires a non-zero instant")
		}
		return nil
	case Until:
		if pred.At.IsZero() {
			return fmt.Errorf("until requires a non-zero instant")
		}
		return nil
	case And:
		if len(pred.Predicates) == 0 {
			return fmt.Errorf("and requires at least one predicate")
		}
		for i, sub := range pred.Predicates {
			if sub == nil {
				return fmt.Errorf("and[%d]: nil predicate", i)
			}
			if err := validatePredicate(sub, depth+1); err != nil {
				return fmt.Errorf("and[%d]: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported predicate type %T", p)
	}
}
