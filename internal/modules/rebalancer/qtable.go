package rebalancer

// actionValues holds the learned values of one state, in action insertion order
type actionValues struct {
	order  []Key
	values map[Key]float64
}

// QTable maps (state, action) key pairs to learned values.
// Unvisited pairs read as 0.0. States and actions keep their insertion order,
// which makes greedy tie breaking and snapshots deterministic.
type QTable struct {
	order  []Key
	states map[Key]*actionValues
}

// NewQTable returns an empty table
func NewQTable() *QTable {
	return &QTable{states: make(map[Key]*actionValues)}
}

// Len returns the number of states with a row, including rows with no actions
func (q *QTable) Len() int {
	return len(q.states)
}

// Entries returns the total number of (state, action) pairs
func (q *QTable) Entries() int {
	n := 0
	for _, row := range q.states {
		n += len(row.order)
	}
	return n
}

// Has reports whether the state has a row
func (q *QTable) Has(state Key) bool {
	_, ok := q.states[state]
	return ok
}

// Value returns Q[state][action], 0.0 when absent
func (q *QTable) Value(state, action Key) float64 {
	row, ok := q.states[state]
	if !ok {
		return 0
	}
	return row.values[action]
}

// Set stores Q[state][action], creating the row and entry as needed
func (q *QTable) Set(state, action Key, value float64) {
	row := q.ensure(state)
	if _, ok := row.values[action]; !ok {
		row.order = append(row.order, action)
	}
	row.values[action] = value
}

// ensureEntry returns Q[state][action], first inserting 0.0 when absent
func (q *QTable) ensureEntry(state, action Key) float64 {
	row := q.ensure(state)
	v, ok := row.values[action]
	if !ok {
		row.order = append(row.order, action)
		row.values[action] = 0
	}
	return v
}

// ensure creates an empty row for state if missing
func (q *QTable) ensure(state Key) *actionValues {
	row, ok := q.states[state]
	if !ok {
		row = &actionValues{values: make(map[Key]float64)}
		q.states[state] = row
		q.order = append(q.order, state)
	}
	return row
}

// Best returns the highest-valued action of state. The first inserted action wins ties.
// ok is false when the state has no actions.
func (q *QTable) Best(state Key) (action Key, value float64, ok bool) {
	row, exists := q.states[state]
	if !exists || len(row.order) == 0 {
		return "", 0, false
	}
	action = row.order[0]
	value = row.values[action]
	for _, a := range row.order[1:] {
		if v := row.values[a]; v > value {
			action, value = a, v
		}
	}
	return action, value, true
}

// MaxValue is the maximum over the existing actions of state, 0.0 for an empty or missing row
func (q *QTable) MaxValue(state Key) float64 {
	_, v, _ := q.Best(state)
	return v
}

// Actions returns the actions recorded for state, in insertion order
func (q *QTable) Actions(state Key) []Key {
	row, ok := q.states[state]
	if !ok {
		return nil
	}
	return append([]Key(nil), row.order...)
}

// States returns every state key, in insertion order
func (q *QTable) States() []Key {
	return append([]Key(nil), q.order...)
}
