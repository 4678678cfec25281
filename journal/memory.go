package journal

// Memory keeps everything in slices. Used by tests and dry runs.
type Memory struct {
	Fills  []FillRecord
	Equity []EquityRecord
	Runs   []RunSummary
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) RecordFill(f FillRecord) error {
	m.Fills = append(m.Fills, f)
	return nil
}

func (m *Memory) RecordEquity(e EquityRecord) error {
	m.Equity = append(m.Equity, e)
	return nil
}

func (m *Memory) RecordRun(r RunSummary) error {
	m.Runs = append(m.Runs, r)
	return nil
}

func (m *Memory) Close() error { return nil }
