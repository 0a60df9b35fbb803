package processor

import (
	"fmt"

	"tcaflow/models"
)

// Catalog is the read-only instrument reference lookup, built once from the
// refdata rows and never mutated afterwards.
type Catalog struct {
	instruments map[string]models.Instrument
}

// NewCatalog builds the catalog. A duplicate instrument id is ambiguous
// reference data and aborts the load; there is no first-seen-wins.
func NewCatalog(rows []models.Instrument) (*Catalog, error) {
	instruments := make(map[string]models.Instrument, len(rows))
	for _, inst := range rows {
		if err := inst.Validate(); err != nil {
			return nil, err
		}
		if _, exists := instruments[inst.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate instrument id %s in reference data", models.ErrDataIntegrity, inst.ID)
		}
		instruments[inst.ID] = inst
	}
	return &Catalog{instruments: instruments}, nil
}

// Lookup returns the instrument for an id. The second return is false when
// the id is not in the catalog.
func (c *Catalog) Lookup(id string) (models.Instrument, bool) {
	inst, ok := c.instruments[id]
	return inst, ok
}

// Len returns the number of instruments in the catalog.
func (c *Catalog) Len() int {
	return len(c.instruments)
}
