package sellersjson

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Success(t *testing.T) {
	raw := []byte(`{
		"contact_email": "adops@example.com",
		"version": "1.0",
		"identifiers": [{"name": "TAG-ID", "value": "abc123"}],
		"sellers": [
			{"seller_id": "1001", "name": "Example Publisher", "domain": "pub.example.com", "seller_type": "PUBLISHER"},
			{"seller_id": "1002", "name": "Example Network", "seller_type": "INTERMEDIARY"}
		]
	}`)

	doc, err := Parse(raw)

	require.NoError(t, err)
	assert.Equal(t, "adops@example.com", doc.ContactEmail)
	assert.Equal(t, "1.0", doc.Version)
	assert.Len(t, doc.Identifiers, 1)
	assert.Equal(t, "TAG-ID", doc.Identifiers[0].Name)
	require.Len(t, doc.Sellers, 2)
	assert.Equal(t, "1001", doc.Sellers[0].SellerID)
	assert.Equal(t, "Example Publisher", doc.Sellers[0].Name)
}

func TestParse_NormalizesSellers(t *testing.T) {
	raw := []byte(`{"sellers": [
		{"seller_id": "  2001  ", "seller_type": "publisher"},
		{"seller_id": "2002", "seller_type": " Both "}
	]}`)

	doc, err := Parse(raw)

	require.NoError(t, err)
	assert.Equal(t, "2001", doc.Sellers[0].SellerID)
	assert.Equal(t, TypePublisher, doc.Sellers[0].SellerType)
	assert.Equal(t, TypeBoth, doc.Sellers[1].SellerType)
}

func TestParse_EmptyObjectIsValid(t *testing.T) {
	doc, err := Parse([]byte(`{}`))

	require.NoError(t, err)
	assert.Empty(t, doc.Sellers)
	assert.Equal(t, 0, doc.Metadata().SellerCount)
}

func TestParse_LeadingWhitespace(t *testing.T) {
	doc, err := Parse([]byte("\n\t  {\"sellers\": []}"))

	require.NoError(t, err)
	assert.NotNil(t, doc)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty body", ""},
		{"whitespace only", "   \n\t"},
		{"json array", `[{"seller_id": "1"}]`},
		{"json string", `"sellers"`},
		{"json number", `42`},
		{"json null", `null`},
		{"html page", `<html><body>404</body></html>`},
		{"truncated object", `{"sellers": [`},
		{"wrong field type", `{"sellers": "none"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.raw))
			assert.Nil(t, doc)
			assert.Error(t, err)
		})
	}
}

func TestCanonical_StableAcrossFormatting(t *testing.T) {
	pretty := []byte(`{
		"version":   "1.0",
		"sellers": [
			{"name": "A", "seller_id": "1"}
		]
	}`)
	compact := []byte(`{"sellers":[{"seller_id":"1","name":"A"}],"version":"1.0"}`)

	docA, err := Parse(pretty)
	require.NoError(t, err)
	docB, err := Parse(compact)
	require.NoError(t, err)

	canonA, err := docA.Canonical()
	require.NoError(t, err)
	canonB, err := docB.Canonical()
	require.NoError(t, err)

	assert.Equal(t, canonA, canonB)
}

func TestCanonical_RoundTrip(t *testing.T) {
	doc, err := Parse([]byte(`{"contact_email":"a@b.c","sellers":[{"seller_id":"7","seller_type":"both"}]}`))
	require.NoError(t, err)

	canon, err := doc.Canonical()
	require.NoError(t, err)

	reparsed, err := Parse(canon)
	require.NoError(t, err)
	assert.Equal(t, doc, reparsed)
}

func TestIndex(t *testing.T) {
	t.Run("maps seller ids to entries", func(t *testing.T) {
		doc := &Document{Sellers: []Seller{
			{SellerID: "1", Name: "First"},
			{SellerID: "2", Name: "Second"},
		}}

		idx := doc.Index()

		require.Len(t, idx, 2)
		assert.Equal(t, "First", idx["1"].Name)
		assert.Equal(t, "Second", idx["2"].Name)
	})

	t.Run("first entry wins on duplicate ids", func(t *testing.T) {
		doc := &Document{Sellers: []Seller{
			{SellerID: "1", Name: "First"},
			{SellerID: "1", Name: "Shadowed"},
		}}

		idx := doc.Index()

		require.Len(t, idx, 1)
		assert.Equal(t, "First", idx["1"].Name)
	})

	t.Run("skips entries without an id", func(t *testing.T) {
		doc := &Document{Sellers: []Seller{
			{SellerID: "", Name: "Anonymous"},
			{SellerID: "9", Name: "Named"},
		}}

		idx := doc.Index()

		require.Len(t, idx, 1)
		assert.Nil(t, idx[""])
	})
}

func TestMetadata(t *testing.T) {
	doc := &Document{
		ContactEmail: "ops@example.com",
		Version:      "1.0",
		Sellers:      make([]Seller, 3),
	}

	meta := doc.Metadata()

	assert.Equal(t, "ops@example.com", meta.ContactEmail)
	assert.Equal(t, "1.0", meta.Version)
	assert.Equal(t, 3, meta.SellerCount)
}

func TestParse_LargeDocument(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`{"sellers":[`)
	for i := 0; i < 5000; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(`{"seller_id":"s`)
		sb.WriteString(strings.Repeat("0", 3))
		sb.WriteString(string(rune('a' + i%26)))
		sb.WriteString(`"}`)
	}
	sb.WriteString(`]}`)

	doc, err := Parse([]byte(sb.String()))

	require.NoError(t, err)
	assert.Len(t, doc.Sellers, 5000)
}
