package partition

import "fmt"

// Item is one unit of assignment: a document name with the summed byte size
// of every file that must travel with it.
type Item struct {
	Name string
	Size int64
}

// Limits bounds each partition.
type Limits struct {
	// ByteCeiling is the soft maximum of overhead plus document sizes per
	// partition.
	ByteCeiling int64
	// DocumentCeiling is the hard maximum number of documents per partition.
	DocumentCeiling int
}

// Partition is one output archive's worth of documents.
type Partition struct {
	// Ordinal is 1-based and becomes the output archive suffix.
	Ordinal   int
	Documents []string
	// Size is the shared overhead plus the total size of assigned documents.
	Size int64
}

// planner threads the running accumulator and the open partition through the
// scan instead of keeping them in shared mutable state.
type planner struct {
	overhead int64
	limits   Limits
	current  Partition
	closed   []Partition
}

// Assign distributes items over partitions in scan order. Every partition
// satisfies size < ByteCeiling or holds exactly one document, and never holds
// more than DocumentCeiling documents. The final open partition is always
// emitted, so an empty item list yields a single empty partition.
func Assign(items []Item, overhead int64, limits Limits) ([]Partition, error) {
	if limits.ByteCeiling <= 0 {
		return nil, fmt.Errorf("byte ceiling must be positive, got %d", limits.ByteCeiling)
	}
	if limits.DocumentCeiling < 1 {
		return nil, fmt.Errorf("document ceiling must be at least 1, got %d", limits.DocumentCeiling)
	}

	p := planner{
		overhead: overhead,
		limits:   limits,
		current:  Partition{Ordinal: 1, Size: overhead},
	}
	for _, item := range items {
		p.place(item)
	}
	return append(p.closed, p.current), nil
}

func (p *planner) place(item Item) {
	projected := p.current.Size + item.Size
	// An empty partition always accepts its first document, so an oversized
	// document lands alone instead of producing an empty archive before it.
	if len(p.current.Documents) == 0 ||
		(projected < p.limits.ByteCeiling && len(p.current.Documents) < p.limits.DocumentCeiling) {
		p.current.Documents = append(p.current.Documents, item.Name)
		p.current.Size = projected
		return
	}

	p.closed = append(p.closed, p.current)
	p.current = Partition{
		Ordinal:   p.current.Ordinal + 1,
		Documents: []string{item.Name},
		Size:      p.overhead + item.Size,
	}
}
