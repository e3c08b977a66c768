package query

// Columns names the table columns a query reads.
type Columns struct {
	Month string `yaml:"month" json:"month"`
	Town  string `yaml:"town" json:"town"`
	Area  string `yaml:"area" json:"area"`
	Price string `yaml:"price" json:"price"`
}

// DefaultColumns returns the column names of the HDB resale table.
func DefaultColumns() Columns {
	return Columns{
		Month: "month",
		Town:  "town",
		Area:  "floor_area_sqm",
		Price: "resale_price",
	}
}

func (c Columns) predicate() []string {
	return []string{c.Month, c.Town, c.Area}
}

func (c Columns) all() []string {
	return []string{c.Month, c.Town, c.Area, c.Price}
}
