package series

// Column is one dependent parameter's values aligned to a Table's shared
// index. Present marks which index tuples this parameter actually measured;
// absent cells are missing values, not zeros.
type Column struct {
	Name    string
	Complex bool
	Values  []complex128
	Present []bool
}

// Table is the horizontal combination of every dependent parameter's series
// for one run, outer-joined on index tuples: a tuple present in any series
// appears once in the shared index, and columns without it carry a missing
// cell.
type Table struct {
	Levels  []string
	Index   []Key
	Columns []Column
}

// Join aligns the given series into a table. Index order is first-seen
// across the series in argument order. An empty argument list yields an
// empty table. All series are expected to share the same index levels (they
// come from one run's catalog); the first series' levels label the result.
func Join(list []*Series) *Table {
	t := &Table{}
	if len(list) == 0 {
		return t
	}
	t.Levels = append([]string(nil), list[0].Levels...)

	pos := make(map[string]int)
	for _, s := range list {
		for _, p := range s.Points() {
			k := keyString(p.Key)
			if _, ok := pos[k]; ok {
				continue
			}
			pos[k] = len(t.Index)
			t.Index = append(t.Index, append(Key(nil), p.Key...))
		}
	}

	for _, s := range list {
		col := Column{
			Name:    s.Name,
			Complex: s.Complex,
			Values:  make([]complex128, len(t.Index)),
			Present: make([]bool, len(t.Index)),
		}
		for _, p := range s.Points() {
			i := pos[keyString(p.Key)]
			col.Values[i] = p.Value
			col.Present[i] = true
		}
		t.Columns = append(t.Columns, col)
	}
	return t
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t == nil || len(t.Index) == 0 }
