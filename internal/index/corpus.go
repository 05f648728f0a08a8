package index

// Corpus is the explicit per-run owner of all source collections. It
// replaces any notion of a process-wide dataset registry: callers build
// one, hand it to the matcher, and drop it when the run is over. Source
// order is first-added and stable, and is the tie-break order wherever
// the matcher needs one.
type Corpus struct {
	order       []string
	collections map[string]*Collection
}

func NewCorpus() *Corpus {
	return &Corpus{collections: map[string]*Collection{}}
}

// Attach adds a built collection. Re-attaching a source replaces its
// collection but keeps its original position in the order.
func (c *Corpus) Attach(col *Collection) {
	if col == nil {
		return
	}
	if _, exists := c.collections[col.SourceID()]; !exists {
		c.order = append(c.order, col.SourceID())
	}
	c.collections[col.SourceID()] = col
}

func (c *Corpus) Get(sourceID string) (*Collection, bool) {
	col, ok := c.collections[sourceID]
	return col, ok
}

// Sources returns the stable source ordering.
func (c *Corpus) Sources() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Corpus) Len() int { return len(c.collections) }

// SourceRank maps each source to its position in the stable order.
func (c *Corpus) SourceRank() map[string]int {
	out := make(map[string]int, len(c.order))
	for i, id := range c.order {
		out[id] = i
	}
	return out
}
