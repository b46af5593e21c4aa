package ledger

import "context"

// sequencer hands out event sequences for one command. The store only knows
// sequences that are already saved, so numbers handed out earlier in the
// same command are tracked here.
type sequencer struct {
	events BalanceEventRepository
	next   map[string]int
}

func newSequencer(events BalanceEventRepository) *sequencer {
	return &sequencer{events: events, next: make(map[string]int)}
}

func (s *sequencer) nextFor(ctx context.Context, date Date) (int, error) {
	key := date.String()
	n, ok := s.next[key]
	if !ok {
		var err error
		if n, err = s.events.NextEventSequence(ctx, date); err != nil {
			return 0, err
		}
	}
	s.next[key] = n + 1
	return n, nil
}
