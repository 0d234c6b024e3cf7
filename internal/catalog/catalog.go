// Package catalog holds the read-only list of tradable instruments.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"PresenceTrader/internal/model"
)

var (
	// ErrEmpty is returned when a catalog would contain no instruments.
	ErrEmpty = errors.New("catalog is empty")
	// ErrIndexOutOfRange is returned by Get for indexes outside [0, Size()-1].
	ErrIndexOutOfRange = errors.New("catalog index out of range")
	// ErrUnknownSymbol is returned by Find when no instrument matches.
	ErrUnknownSymbol = errors.New("symbol not in catalog")
)

// Catalog is an immutable, indexable instrument list. It is safe for
// concurrent readers without synchronization.
type Catalog struct {
	items []model.Instrument
}

// New builds a catalog from a copy of items.
func New(items []model.Instrument) (*Catalog, error) {
	if len(items) == 0 {
		return nil, ErrEmpty
	}
	cp := make([]model.Instrument, len(items))
	copy(cp, items)
	return &Catalog{items: cp}, nil
}

// Size returns the number of instruments.
func (c *Catalog) Size() int { return len(c.items) }

// Get returns the instrument at index.
func (c *Catalog) Get(index int) (model.Instrument, error) {
	if index < 0 || index >= len(c.items) {
		return model.Instrument{}, fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, index, len(c.items)-1)
	}
	return c.items[index], nil
}

// Find returns the index of symbol (case-insensitive).
func (c *Catalog) Find(symbol string) (int, error) {
	for i, it := range c.items {
		if strings.EqualFold(it.Symbol, symbol) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
}

// Load reads a catalog from a CSV file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a catalog from CSV. The header must name a Symbol column;
// Description, GICSSector, Country, MarketCap and DividendYield are optional.
func Parse(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["symbol"]; !ok {
		return nil, fmt.Errorf("catalog header missing Symbol column")
	}
	cr.FieldsPerRecord = len(header)

	field := func(rec []string, name string) string {
		if i, ok := cols[name]; ok {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var items []model.Instrument
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		symbol := field(rec, "symbol")
		if symbol == "" {
			return nil, fmt.Errorf("line %d: empty symbol", line)
		}
		mcap, err := parseDecimal(field(rec, "marketcap"))
		if err != nil {
			return nil, fmt.Errorf("line %d: market cap: %w", line, err)
		}
		yield, err := parseDecimal(field(rec, "dividendyield"))
		if err != nil {
			return nil, fmt.Errorf("line %d: dividend yield: %w", line, err)
		}
		items = append(items, model.Instrument{
			Symbol:        strings.ToUpper(symbol),
			Description:   field(rec, "description"),
			Sector:        field(rec, "gicssector"),
			Country:       field(rec, "country"),
			MarketCap:     mcap,
			DividendYield: yield,
		})
	}
	return New(items)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), "%")
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
