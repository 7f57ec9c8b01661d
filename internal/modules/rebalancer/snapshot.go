package rebalancer

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// PolicySnapshot is a portable copy of a learned Q-table
type PolicySnapshot struct {
	Precision int             `msgpack:"precision" json:"precision"`
	Assets    int             `msgpack:"assets" json:"assets"`
	States    []StateSnapshot `msgpack:"states" json:"states"`
}

// StateSnapshot holds one state row with its actions in insertion order
type StateSnapshot struct {
	State   []int64          `msgpack:"s" json:"state"`
	Actions []ActionSnapshot `msgpack:"a" json:"actions"`
}

// ActionSnapshot is one learned (action, value) pair
type ActionSnapshot struct {
	Action []int64 `msgpack:"k" json:"action"`
	Value  float64 `msgpack:"v" json:"value"`
}

// Snapshot copies the current table
func (a *Agent) Snapshot() PolicySnapshot {
	snap := PolicySnapshot{
		Precision: a.cfg.Precision,
		Assets:    a.sim.Assets(),
		States:    make([]StateSnapshot, 0, a.q.Len()),
	}
	for _, s := range a.q.States() {
		row := StateSnapshot{State: s.Ints()}
		for _, act := range a.q.Actions(s) {
			row.Actions = append(row.Actions, ActionSnapshot{Action: act.Ints(), Value: a.q.Value(s, act)})
		}
		snap.States = append(snap.States, row)
	}
	return snap
}

// Restore replaces the table with snap. The snapshot must match the agent's
// precision and instrument count.
func (a *Agent) Restore(snap PolicySnapshot) error {
	if snap.Precision != a.cfg.Precision {
		return fmt.Errorf("%w: snapshot precision %d, agent precision %d", ErrInvalidConfig, snap.Precision, a.cfg.Precision)
	}
	n := a.sim.Assets()
	if snap.Assets != n {
		return fmt.Errorf("%w: snapshot has %d instruments, agent has %d", ErrInvalidConfig, snap.Assets, n)
	}

	q := NewQTable()
	for i, row := range snap.States {
		if len(row.State) != 2*n {
			return fmt.Errorf("%w: state %d has %d components, expected %d", ErrInvalidConfig, i, len(row.State), 2*n)
		}
		s := KeyFromInts(row.State)
		q.ensure(s)
		for _, act := range row.Actions {
			if len(act.Action) != n {
				return fmt.Errorf("%w: action in state %d has %d components, expected %d", ErrInvalidConfig, i, len(act.Action), n)
			}
			q.Set(s, KeyFromInts(act.Action), act.Value)
		}
	}
	a.q = q
	return nil
}

// EncodeSnapshot serializes snap with msgpack
func EncodeSnapshot(snap PolicySnapshot) ([]byte, error) {
	data, err := msgpack.Marshal(&snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a msgpack snapshot
func DecodeSnapshot(data []byte) (PolicySnapshot, error) {
	var snap PolicySnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return PolicySnapshot{}, fmt.Errorf("failed to decode policy snapshot: %w", err)
	}
	return snap, nil
}
