package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid inputs", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromInt(100), AED)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromInt(100)))
		assert.Equal(t, AED, m.Currency())
	})

	t.Run("fails with empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		require.Error(t, err)
	})
}

func TestMoneyArithmetic(t *testing.T) {
	t.Run("adds same currency", func(t *testing.T) {
		a := NewMoneyAEDFromFloat(1000)
		b := NewMoneyAEDFromFloat(2000)
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromInt(3000)))
	})

	t.Run("rejects mixed currency addition", func(t *testing.T) {
		a := NewMoneyAEDFromFloat(1000)
		b, _ := NewMoneyFromFloat(1000, USD)
		_, err := a.Add(b)
		require.Error(t, err)
	})

	t.Run("rejects division by zero", func(t *testing.T) {
		a := NewMoneyAEDFromFloat(1000)
		_, err := a.Divide(decimal.Zero)
		require.Error(t, err)
	})
}

func TestMoneyRoundStep(t *testing.T) {
	m, err := NewMoneyFromString("123.456789", AED)
	require.NoError(t, err)
	assert.Equal(t, "123.4568", m.RoundStep().Amount().String())
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m, err := NewMoneyFromString("2500.1234", AED)
	require.NoError(t, err)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equal(decoded))
}

func TestMoneyComparisons(t *testing.T) {
	small := NewMoneyAEDFromFloat(5)
	large := NewMoneyAEDFromFloat(10)

	assert.True(t, small.LessThan(large))
	assert.True(t, large.GreaterThan(small))
	assert.False(t, small.Equal(large))
	assert.True(t, ZeroAED().IsZero())
}

func TestIsValidCurrency(t *testing.T) {
	assert.True(t, IsValidCurrency("AED"))
	assert.True(t, IsValidCurrency("USD"))
	assert.False(t, IsValidCurrency("XYZ"))
	assert.False(t, IsValidCurrency(""))
}
