package kraken

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISOTimestampMs(t *testing.T) {
	ms, err := parseISOTimestampMs("2024-01-15T10:30:00.123456789Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1705314600123), ms)
}

func TestParseISOTimestampMsInvalid(t *testing.T) {
	_, err := parseISOTimestampMs("not-a-timestamp")
	assert.Error(t, err)
}

func TestWSTradeFrameDecodesDataArray(t *testing.T) {
	raw := []byte(`{"channel":"trade","type":"update","data":[{"symbol":"BTC/USD","price":42000.5,"qty":0.1,"timestamp":"2024-01-15T10:30:00.000Z"}]}`)
	var frame wsTradeFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	require.Len(t, frame.Data, 1)
	assert.Equal(t, "BTC/USD", frame.Data[0].Symbol)
	assert.Equal(t, 42000.5, frame.Data[0].Price)
}
