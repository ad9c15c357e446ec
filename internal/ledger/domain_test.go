package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOperationDescription(t *testing.T) {
	cases := []struct {
		name string
		op   Operation
		want string
	}{
		{
			name: "purchase",
			op:   Operation{Kind: OperationPurchase, ProductName: "Widget", Quantity: 10, UnitPrice: 2, Amount: 20},
			want: "Purchased 10 of Widget at 2 each. Total: 20",
		},
		{
			name: "purchase fractional price",
			op:   Operation{Kind: OperationPurchase, ProductName: "Bolt", Quantity: 4, UnitPrice: 2.5, Amount: 10},
			want: "Purchased 4 of Bolt at 2.5 each. Total: 10",
		},
		{
			name: "sale",
			op:   Operation{Kind: OperationSale, ProductName: "Widget", Quantity: 4, UnitPrice: 3, Amount: 12},
			want: "Sold 4 of Widget at 3 each. Total: 12",
		},
		{
			name: "balance increase",
			op:   Operation{Kind: OperationBalanceIncrease, Amount: 100, Balance: 100},
			want: "Balance increased by 100. New balance: 100",
		},
		{
			name: "balance decrease below zero",
			op:   Operation{Kind: OperationBalanceDecrease, Amount: 25.5, Balance: -25.5},
			want: "Balance decreased by 25.5. New balance: -25.5",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.op.Description())
		})
	}
}
