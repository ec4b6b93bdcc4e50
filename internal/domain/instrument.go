package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/btree"
)

// isinRegex matches the ISIN shape: country prefix, nine alphanumerics,
// one check digit. The check digit itself is not verified.
var isinRegex = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// InstrumentTypeBond is the only category carried by the sample catalog.
const InstrumentTypeBond = "BOND"

// Instrument is a tradable security identified by its ISIN.
type Instrument struct {
	ISIN string
	Name string
	Type string
}

// DefaultCatalog returns the sample instruments loaded at startup.
func DefaultCatalog() []Instrument {
	return []Instrument{
		{ISIN: "US0378331005", Name: "Apple Inc", Type: InstrumentTypeBond},
		{ISIN: "US5949181045", Name: "Microsoft Corp", Type: InstrumentTypeBond},
		{ISIN: "US02079K3059", Name: "Alphabet Inc", Type: InstrumentTypeBond},
		{ISIN: "US30303M1027", Name: "Meta Platforms", Type: InstrumentTypeBond},
		{ISIN: "GB0002875804", Name: "HSBC Holdings", Type: InstrumentTypeBond},
	}
}

// IsValidISIN reports whether code has the ISIN shape. It does not
// consult any catalog.
func IsValidISIN(code string) bool {
	return isinRegex.MatchString(code)
}

func instrumentLess(a, b *Instrument) bool {
	return a.ISIN < b.ISIN
}

// InstrumentRegistry is the fixed catalog of known instruments.
// It is populated once by NewInstrumentRegistry and read-only afterwards,
// so it needs no locking.
type InstrumentRegistry struct {
	byISIN  map[string]*Instrument
	ordered *btree.BTreeG[*Instrument] // ISIN ascending, for stable Search
}

// NewInstrumentRegistry builds a registry from the given catalog.
// Entries with a malformed ISIN are rejected; a duplicate ISIN keeps the
// last entry.
func NewInstrumentRegistry(catalog []Instrument) (*InstrumentRegistry, error) {
	const degree = 8
	r := &InstrumentRegistry{
		byISIN:  make(map[string]*Instrument, len(catalog)),
		ordered: btree.NewG[*Instrument](degree, instrumentLess),
	}
	for i := range catalog {
		inst := catalog[i]
		if !IsValidISIN(inst.ISIN) {
			return nil, fmt.Errorf("catalog entry %q: %w", inst.ISIN, ErrInvalidFormat)
		}
		r.byISIN[inst.ISIN] = &inst
		r.ordered.ReplaceOrInsert(&inst)
	}
	return r, nil
}

// Exists returns true if code is well-formed and present in the catalog.
func (r *InstrumentRegistry) Exists(code string) bool {
	if !IsValidISIN(code) {
		return false
	}
	_, ok := r.byISIN[code]
	return ok
}

// Fetch returns a copy of the instrument for code. It returns
// ErrInvalidFormat for a malformed code and ErrInstrumentNotFound for a
// well-formed unknown one.
func (r *InstrumentRegistry) Fetch(code string) (*Instrument, error) {
	if !IsValidISIN(code) {
		return nil, fmt.Errorf("isin %q: %w", code, ErrInvalidFormat)
	}
	inst, ok := r.byISIN[code]
	if !ok {
		return nil, fmt.Errorf("isin %q: %w", code, ErrInstrumentNotFound)
	}
	c := *inst
	return &c, nil
}

// Search returns instruments whose name contains term (case-insensitive)
// or whose ISIN contains term verbatim, in ISIN order. An empty term
// matches everything. The results are copies.
func (r *InstrumentRegistry) Search(term string) []*Instrument {
	lower := strings.ToLower(term)
	result := make([]*Instrument, 0)
	r.ordered.Ascend(func(inst *Instrument) bool {
		if strings.Contains(strings.ToLower(inst.Name), lower) || strings.Contains(inst.ISIN, term) {
			c := *inst
			result = append(result, &c)
		}
		return true
	})
	return result
}

// Len returns the number of instruments in the catalog.
func (r *InstrumentRegistry) Len() int {
	return len(r.byISIN)
}
