package storage

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagos/internal/core"
)

func sampleLedger() *core.Ledger {
	tid := 1
	paidOn := core.NewDate(2026, 4, 2)
	return &core.Ledger{
		SchemaVersion: core.CurrentSchemaVersion,
		Year:          2026,
		ControlDay:    29,
		NextID:        302,
		Balances: map[int]decimal.Decimal{
			1: decimal.RequireFromString("100.50"),
			2: decimal.RequireFromString("-12.30"),
		},
		Accounts:   []core.Account{{ID: 1, Name: "Main", Color: "#112233"}, {ID: 2, Name: "Savings"}},
		Categories: []string{"Vivienda", "Ocio"},
		Template: []core.TemplateItem{
			{ID: 1, Name: "Rent", Amount: decimal.RequireFromString("500"), Day: 31, AccountID: 1, Category: "Vivienda", Kind: core.KindFixed},
			{ID: 201, Name: "Telegram", Amount: decimal.RequireFromString("33.99"), Day: 25, AccountID: 2, Kind: core.KindSubAnnual, AnnualMonth: 9},
		},
		Months: map[string]*core.Month{
			"2026-04": {Year: 2026, Month: 4, Items: []core.ChargeInstance{
				{ID: 1, SourceTemplateID: &tid, Name: "Rent", Amount: decimal.RequireFromString("500"), AccountID: 1, Category: "Vivienda", Due: core.NewDate(2026, 4, 30), Paid: true, PaidDate: &paidOn, Kind: core.KindFixed},
				{ID: 301, Name: "Dentist", Amount: decimal.RequireFromString("45.10"), AccountID: 2, Due: core.NewDate(2026, 4, 12), Kind: core.KindAdhoc, Notes: "checkup"},
			}},
		},
	}
}

func TestCodecEncodeDecode(t *testing.T) {
	c := Codec{}
	want := sampleLedger()

	data, err := c.Encode(want)
	require.NoError(t, err)

	got, err := c.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, want.NextID, got.NextID)
	assert.Equal(t, want.Accounts, got.Accounts)
	assert.True(t, got.Balance(2).Equal(decimal.RequireFromString("-12.3")))

	items := got.Months["2026-04"].Items
	require.Len(t, items, 2)
	require.NotNil(t, items[0].SourceTemplateID)
	assert.Equal(t, 1, *items[0].SourceTemplateID)
	require.NotNil(t, items[0].PaidDate)
	assert.Equal(t, "2026-04-02", items[0].PaidDate.String())
	assert.True(t, items[1].IsAdhoc())
	assert.Equal(t, "checkup", items[1].Notes)
}

func TestEncodeWritesPlainNumbersAndLegacyFields(t *testing.T) {
	data, err := Codec{}.Encode(sampleLedger())
	require.NoError(t, err)

	var raw struct {
		SchemaVersion int                        `json:"schema_version"`
		Balances      map[string]json.RawMessage `json:"balances"`
		Months        map[string]struct {
			Items []map[string]json.RawMessage `json:"items"`
		} `json:"months"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, core.CurrentSchemaVersion, raw.SchemaVersion)
	assert.Equal(t, "100.5", string(raw.Balances["1"]))

	adhoc := raw.Months["2026-04"].Items[1]
	assert.Equal(t, "null", string(adhoc["tid"]))
	assert.Equal(t, "true", string(adhoc["is_adhoc"]))
	assert.Equal(t, "45.1", string(adhoc["amount"]))
	assert.Equal(t, `"adhoc"`, string(adhoc["type"]))
}

func TestDecodeMissingKeys(t *testing.T) {
	_, err := Codec{}.Decode([]byte(`{"year": 2026, "balances": {}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMissingKeys)
	assert.ErrorIs(t, err, core.ErrMalformedDocument)
	assert.Contains(t, err.Error(), "template")
	assert.Contains(t, err.Error(), "months")
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"year": `,
		"unknown kind":    `{"schema_version":3,"year":2026,"control_day":1,"next_id":10,"balances":{},"accounts":[{"id":1,"name":"A"}],"template":[{"id":1,"name":"X","amount":1,"day":1,"account_id":1,"type":"weekly"}],"months":{}}`,
		"future schema":   `{"schema_version":99,"year":2026,"control_day":1,"next_id":10,"balances":{},"template":[],"months":{}}`,
		"bad balance":     `{"schema_version":3,"year":2026,"control_day":1,"next_id":10,"balances":{"x":1},"accounts":[],"template":[],"months":{}}`,
		"bad due date":    `{"schema_version":3,"year":2026,"control_day":1,"next_id":10,"balances":{},"accounts":[{"id":1,"name":"A"}],"template":[],"months":{"2026-01":{"year":2026,"month":1,"items":[{"id":1,"tid":null,"name":"X","amount":1,"account_id":1,"due":"2026-02-31","paid":false,"type":"adhoc","is_adhoc":true}]}}}`,
		"annual no month": `{"schema_version":3,"year":2026,"control_day":1,"next_id":10,"balances":{},"accounts":[{"id":1,"name":"A"}],"template":[{"id":1,"name":"X","amount":1,"day":1,"account_id":1,"type":"sub_annual"}],"months":{}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Codec{}.Decode([]byte(doc))
			assert.ErrorIs(t, err, core.ErrMalformedDocument)
		})
	}
}

func TestDecodeMigratesVersion1(t *testing.T) {
	legacy := `{
  "year": 2026,
  "control_day": 29,
  "balances": {"1": 100.5, "2": 0},
  "template": [
    {"id": 1, "name": "Rent", "amount": 500, "day": 31, "account_id": 1, "type": "fixed"},
    {"id": 201, "name": "Telegram", "amount": 33.99, "day": 25, "account_id": 2, "type": "sub_annual", "annual_month": 9}
  ],
  "months": {
    "2026-04": {"year": 2026, "month": 4, "items": [
      {"tid": 1, "name": "Rent", "amount": 500, "account_id": 1, "due": "2026-04-30", "paid": true, "type": "fixed", "is_adhoc": false}
    ]}
  },
  "next_id": 300
}`
	accounts := []core.Account{{ID: 1, Name: "BBVA"}, {ID: 2, Name: "Caixa"}}

	l, err := Codec{Accounts: accounts}.Decode([]byte(legacy))
	require.NoError(t, err)

	assert.Equal(t, core.CurrentSchemaVersion, l.SchemaVersion)
	assert.Equal(t, accounts, l.Accounts)
	assert.Equal(t, 300, l.NextID)

	it := l.Months["2026-04"].Items[0]
	assert.Equal(t, 1, it.ID)
	assert.False(t, it.IsAdhoc())
	assert.True(t, it.Paid)
}

func TestDecodeVersion1WithoutFallbackAccounts(t *testing.T) {
	legacy := `{"year":2026,"control_day":29,"balances":{"2":0,"1":5},"template":[],"months":{},"next_id":300}`

	l, err := Codec{}.Decode([]byte(legacy))
	require.NoError(t, err)
	require.Len(t, l.Accounts, 2)
	assert.Equal(t, 1, l.Accounts[0].ID)
	assert.Equal(t, "Cuenta 2", l.Accounts[1].Name)
}

func TestDecodeMigratesVersion2(t *testing.T) {
	legacy := `{
  "year": 2026,
  "control_day": 29,
  "next_id": 300,
  "balances": {"1": 10},
  "accounts": [{"id": 1, "name": "Main", "color": "#ff0000"}],
  "template": [
    {"id": 1, "name": "Rent", "amount": 500, "day": 31, "account_id": 1, "category": "Vivienda", "type": "fixed"}
  ],
  "months": {
    "2026-02": {"year": 2026, "month": 2, "items": [
      {"tid": 1, "name": "Rent", "amount": 500, "account_id": 1, "due": "2026-02-28", "paid": false, "type": "fixed", "is_adhoc": false},
      {"tid": 1, "name": "Rent again", "amount": 20, "account_id": 1, "due": "2026-02-28", "paid": false, "type": "fixed", "is_adhoc": false},
      {"tid": null, "name": "Dentist", "amount": 45, "account_id": 1, "due": "2026-02-12", "paid": false, "is_adhoc": true, "notes": "x"}
    ]}
  }
}`
	l, err := Codec{}.Decode([]byte(legacy))
	require.NoError(t, err)

	assert.Equal(t, []string{"Vivienda"}, l.Categories)

	items := l.Months["2026-02"].Items
	require.Len(t, items, 3)
	assert.Equal(t, 1, items[0].ID)
	assert.Equal(t, 300, items[1].ID, "colliding template id draws from next_id")
	assert.Equal(t, 301, items[2].ID)
	assert.Equal(t, core.KindAdhoc, items[2].Kind)
	assert.True(t, items[2].IsAdhoc())
	assert.Equal(t, 302, l.NextID)
}

func TestDecodeFillsMissingBalances(t *testing.T) {
	doc := `{"schema_version":3,"year":2026,"control_day":1,"next_id":10,"balances":{},"accounts":[{"id":4,"name":"A"}],"template":[],"months":{}}`
	l, err := Codec{}.Decode([]byte(doc))
	require.NoError(t, err)
	b, ok := l.Balances[4]
	require.True(t, ok)
	assert.True(t, b.IsZero())
}
