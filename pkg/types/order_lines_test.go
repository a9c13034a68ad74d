package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestOrderLinesTotal(t *testing.T) {
	lines := OrderLines{
		{ProductID: uuid.New(), Name: "Blazer", Price: decimal.RequireFromString("10"), Quantity: 2},
		{ProductID: uuid.New(), Name: "Tie", Price: decimal.RequireFromString("5"), Quantity: 3},
	}
	require.True(t, lines.Total().Equal(decimal.NewFromInt(35)))
	require.True(t, OrderLines{}.Total().IsZero())
}

func TestOrderLinesScanAcceptsTextAndBytes(t *testing.T) {
	size := "M"
	original := OrderLines{{ProductID: uuid.New(), Name: "Skirt", Price: decimal.RequireFromString("24.50"), Quantity: 1, Size: &size}}
	value, err := original.Value()
	require.NoError(t, err)

	var fromText OrderLines
	require.NoError(t, fromText.Scan(value))
	require.Len(t, fromText, 1)
	require.Equal(t, "M", *fromText[0].Size)
	require.True(t, fromText[0].Price.Equal(decimal.RequireFromString("24.5")))

	var fromBytes OrderLines
	require.NoError(t, fromBytes.Scan([]byte(value.(string))))
	require.Equal(t, fromText[0].ProductID, fromBytes[0].ProductID)

	var empty OrderLines
	require.NoError(t, empty.Scan(nil))
	require.Empty(t, empty)

	require.Error(t, empty.Scan(42))
}
