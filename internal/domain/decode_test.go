package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeString(t *testing.T, s string) []byte {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return b
}

func TestDecodeItems_AllEncodingsAgree(t *testing.T) {
	plain := `[{"name":"Ramen","quantity":2,"price":9.5,"options":["extra egg"],"notes":"no onions"}]`
	single := encodeString(t, plain)
	double := encodeString(t, string(single))

	want := DecodeItems([]byte(plain))
	require.Len(t, want, 1)
	assert.Equal(t, "Ramen", want[0].Name)
	assert.Equal(t, 2, want[0].Quantity)
	require.NotNil(t, want[0].Price)
	assert.InDelta(t, 9.5, *want[0].Price, 1e-9)
	assert.Equal(t, []string{"extra egg"}, want[0].Options)
	assert.Equal(t, "no onions", want[0].Note)

	assert.Equal(t, want, DecodeItems(single))
	assert.Equal(t, want, DecodeItems(double))
}

func TestDecodeItems_InvalidYieldsEmpty(t *testing.T) {
	triple := encodeString(t, string(encodeString(t, string(encodeString(t, `[{"name":"x"}]`)))))
	cases := map[string][]byte{
		"nil":           nil,
		"empty":         []byte(""),
		"null":          []byte("null"),
		"garbage":       []byte("{broken"),
		"string":        encodeString(t, "not json at all"),
		"object":        []byte(`{"name":"Ramen"}`),
		"scalar list":   []byte(`[1,2,3]`),
		"too deep":      triple,
		"broken inside": encodeString(t, `[{"name":`),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			items := DecodeItems(raw)
			require.NotNil(t, items)
			assert.Empty(t, items)
		})
	}
}

func TestDecodeItems_LenientFields(t *testing.T) {
	items := DecodeItems([]byte(`[{"name":"Gyoza","quantity":"3","price":"4.20","note":"well done","options":[{"name":"spicy"},7]},{"name":"Tea"}]`))
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	require.NotNil(t, items[0].Price)
	assert.InDelta(t, 4.2, *items[0].Price, 1e-9)
	assert.Equal(t, "well done", items[0].Note)
	assert.Equal(t, []string{"spicy", "7"}, items[0].Options)

	assert.Equal(t, 1, items[1].Quantity)
	assert.Nil(t, items[1].Price)
}

func TestDecodeItems_ZeroQuantityPrintsAsOne(t *testing.T) {
	items := DecodeItems([]byte(`[{"name":"Ramen","quantity":0},{"name":"Miso","quantity":"0"},{"name":"Udon","quantity":null},{"name":"Tea","quantity":-3}]`))
	require.Len(t, items, 4)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Equal(t, 1, items[2].Quantity)
	assert.Equal(t, -3, items[3].Quantity)
}

func TestLenientFloat(t *testing.T) {
	cases := []struct {
		in   any
		want *float64
	}{
		{nil, nil},
		{19.5, ptr(19.5)},
		{int64(7), ptr(7)},
		{"12.30", ptr(12.3)},
		{[]byte(" 4 "), ptr(4)},
		{"dix-neuf", nil},
		{true, nil},
	}
	for _, tc := range cases {
		got := LenientFloat(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, "%#v", tc.in)
			continue
		}
		require.NotNil(t, got, "%#v", tc.in)
		assert.InDelta(t, *tc.want, *got, 1e-9)
	}
}

func TestLenientTime(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	assert.True(t, LenientTime(at).Equal(at))
	assert.True(t, LenientTime("2026-10-19 12:00:00").Equal(at))
	assert.True(t, LenientTime([]byte("2026-10-19T12:00:00Z")).Equal(at))
	assert.True(t, LenientTime("2026-10-19 12:00:00+00:00").Equal(at))
	assert.True(t, LenientTime("yesterday").IsZero())
	assert.True(t, LenientTime(nil).IsZero())
}

func ptr(v float64) *float64 { return &v }

func TestDecodeCustomer(t *testing.T) {
	plain := `{"name":"Aiko","phone":612345678}`
	single := encodeString(t, plain)
	double := encodeString(t, string(single))

	want := CustomerInfo{Name: "Aiko", Phone: "612345678"}
	assert.Equal(t, want, DecodeCustomer([]byte(plain)))
	assert.Equal(t, want, DecodeCustomer(single))
	assert.Equal(t, want, DecodeCustomer(double))

	assert.True(t, DecodeCustomer([]byte("nope")).Empty())
	assert.True(t, DecodeCustomer([]byte(`["a"]`)).Empty())
	assert.True(t, DecodeCustomer(nil).Empty())
}

func TestParseOrderRow(t *testing.T) {
	row := `{"id":42,"order_number":"A-7","items":"[{\"name\":\"Ramen\",\"quantity\":2,\"price\":9.5}]",` +
		`"customer_info":null,"total_price":"19.0","payment_method":"CB","print_status":"pending_print",` +
		`"created_at":"2026-10-19T12:30:00.123456"}`

	o, err := ParseOrderRow([]byte(row))
	require.NoError(t, err)
	assert.Equal(t, int64(42), o.ID)
	assert.Equal(t, "A-7", o.Ref())
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Ramen", o.Items[0].Name)
	require.NotNil(t, o.TotalPrice)
	assert.InDelta(t, 19.0, *o.TotalPrice, 1e-9)
	assert.Equal(t, StatusPendingPrint, o.PrintStatus)
	assert.True(t, o.Customer.Empty())
	assert.Equal(t, 2026, o.CreatedAt.Year())

	_, err = ParseOrderRow([]byte(`{"order_number":"A-8"}`))
	require.Error(t, err)

	o, err = ParseOrderRow([]byte(`{"id":"7"}`))
	require.NoError(t, err)
	assert.Equal(t, "7", o.Ref())
	assert.Empty(t, o.Items)
}

func TestPrintStatusRoles(t *testing.T) {
	assert.Equal(t, []Role{RoleKitchen, RoleCashier}, StatusPendingPrint.Roles())
	assert.Equal(t, []Role{RoleKitchen, RoleCashier}, StatusReprintAll.Roles())
	assert.Equal(t, []Role{RoleKitchen}, StatusReprintKitchen.Roles())
	assert.Equal(t, []Role{RoleCashier}, StatusReprintCashier.Roles())
	assert.Nil(t, StatusPrinted.Roles())
	assert.False(t, StatusPrinting.Dispatchable())
	assert.True(t, StatusReprintCashier.Dispatchable())

	st, ok := ReprintFor("kitchen")
	assert.True(t, ok)
	assert.Equal(t, StatusReprintKitchen, st)
	_, ok = ReprintFor("bar")
	assert.False(t, ok)
}

func TestParseInsertEvent(t *testing.T) {
	ev, err := ParseInsertEvent([]byte(`{"id":9,"print_status":"pending_print","partial":true}`))
	require.NoError(t, err)
	assert.True(t, ev.Partial)
	assert.Equal(t, int64(9), ev.Order.ID)
	assert.Empty(t, ev.Order.Items)

	ev, err = ParseInsertEvent([]byte(`{"id":"10","items":"[{\"name\":\"Gyoza\"}]","print_status":"pending_print"}`))
	require.NoError(t, err)
	assert.False(t, ev.Partial)
	require.Len(t, ev.Order.Items, 1)
	assert.Equal(t, 1, ev.Order.Items[0].Quantity)

	_, err = ParseInsertEvent([]byte(`{"print_status":"pending_print"}`))
	assert.Error(t, err)
}
