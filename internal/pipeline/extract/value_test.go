package extract_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piaoju/internal/pipeline/extract"
)

func TestFromJSON_RejectsInvalid(t *testing.T) {
	_, err := extract.FromJSON(json.RawMessage(`{"unterminated": `), 8)
	assert.Error(t, err)
}

func TestLookup_CaseInsensitive(t *testing.T) {
	v := mustValue(t, `{"Invoice_Number": "123"}`)
	found, ok := v.Lookup("invoice_number", 8)
	require.True(t, ok)
	assert.Equal(t, "123", found.Text())
}

func TestLookup_PrefersDirectKeyOverNested(t *testing.T) {
	v := mustValue(t, `{
		"amount": "10.00",
		"details": {"amount": "99.00"}
	}`)
	found, ok := v.Lookup("amount", 8)
	require.True(t, ok)
	assert.Equal(t, "10.00", found.Text())
}

func TestLookup_DescendsIntoArrays(t *testing.T) {
	v := mustValue(t, `{"items": [{"amount": "55.00"}]}`)
	found, ok := v.Lookup("amount", 8)
	require.True(t, ok)
	assert.Equal(t, "55.00", found.Text())
}

func TestLookup_DepthBounded(t *testing.T) {
	inner := `{"deep_only": "buried"}`
	for i := 0; i < 20; i++ {
		inner = `{"nest": ` + inner + `}`
	}
	v := mustValue(t, `{"target": "shallow", "wrapped": `+inner+`}`)

	_, ok := v.Lookup("deep_only", 4)
	assert.False(t, ok, "value beyond maxDepth must not be found")

	found, ok := v.Lookup("target", 4)
	require.True(t, ok)
	assert.Equal(t, "shallow", found.Text())
}

func TestUnwrapEnvelope(t *testing.T) {
	v := mustValue(t, `{"total": {"value": "88.00", "confidence": 0.9}}`)
	found, ok := v.Lookup("total", 8)
	require.True(t, ok)
	assert.Equal(t, "88.00", found.Text())
}

func TestText_NumberFormatting(t *testing.T) {
	v := mustValue(t, `{"n": 12.5, "i": 3}`)
	n, _ := v.Lookup("n", 8)
	i, _ := v.Lookup("i", 8)
	assert.Equal(t, "12.5", n.Text())
	assert.Equal(t, "3", i.Text())
}

func TestFromAny_UnknownTypeDegradesToString(t *testing.T) {
	v := extract.FromAny(map[string]any{"flag": true, "n": 42}, 8)
	flag, ok := v.Lookup("flag", 8)
	require.True(t, ok)
	assert.Equal(t, "true", flag.Text())
	n, ok := v.Lookup("n", 8)
	require.True(t, ok)
	assert.Equal(t, "42", n.Text())
}
