package convert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloat(t *testing.T) {
	for _, v := range []any{1.5, float32(1.5), " 1.5 ", json.Number("1.5")} {
		f, err := ParseFloat(v)
		require.NoError(t, err)
		assert.Equal(t, 1.5, f)
	}
	f, err := ParseFloat(int64(3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	_, err = ParseFloat("abc")
	assert.Error(t, err)
	_, err = ParseFloat(nil)
	assert.Error(t, err)
	_, err = ParseFloat(true)
	assert.Error(t, err)
	assert.Equal(t, 0.0, ToFloat64("abc"))
}

func TestToText(t *testing.T) {
	assert.Equal(t, "", ToText(nil))
	assert.Equal(t, "abc", ToText("abc"))
	assert.Equal(t, "1000.5", ToText(1000.5))
	assert.Equal(t, "2", ToText(json.Number("2")))
	assert.Equal(t, "true", ToText(true))
}
