package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PresenceTrader/internal/model"
)

const sample = `Symbol,Description,GICSSector,MarketCap,DividendYield,Country
aapl,Apple Inc.,Information Technology,"2,870,000,000,000",0.52%,United States
MSFT,Microsoft Corporation,Information Technology,2790000000000,0.74,United States
BRK.B,Berkshire Hathaway,Financials,780000000000,,United States
`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, 3, c.Size())

	first, err := c.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Symbol)
	assert.Equal(t, "Information Technology", first.Sector)
	assert.True(t, first.MarketCap.Equal(decimal.RequireFromString("2870000000000")))
	assert.True(t, first.DividendYield.Equal(decimal.RequireFromString("0.52")))

	last, err := c.Get(2)
	require.NoError(t, err)
	assert.True(t, last.DividendYield.IsZero())
}

func TestGet_OutOfRange(t *testing.T) {
	c, err := New([]model.Instrument{{Symbol: "A"}, {Symbol: "B"}})
	require.NoError(t, err)

	for _, idx := range []int{-1, 2, 1000} {
		_, err := c.Get(idx)
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "index %d", idx)
	}
}

func TestNew_RejectsEmpty(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Parse(strings.NewReader("Symbol,Description\n"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNew_CopiesInput(t *testing.T) {
	items := []model.Instrument{{Symbol: "A"}}
	c, err := New(items)
	require.NoError(t, err)

	items[0].Symbol = "Z"
	got, _ := c.Get(0)
	assert.Equal(t, "A", got.Symbol)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"no symbol column": "Ticker,Description\nAAPL,Apple\n",
		"empty symbol":     "Symbol,Description\n,Apple\n",
		"bad market cap":   "Symbol,MarketCap\nAAPL,lots\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestFind(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	idx, err := c.Find("msft")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = c.Find("TSLA")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instruments.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Size())

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
