package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger_AccessLineAndContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside handler")
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inner, access map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &inner))
	require.NoError(t, json.Unmarshal(lines[1], &access))

	assert.Equal(t, "inside handler", inner["message"])
	assert.NotEmpty(t, inner["request_id"])
	assert.Equal(t, inner["request_id"], access["request_id"])
	assert.Equal(t, float64(http.StatusAccepted), access["status"])
	assert.Equal(t, "POST", access["method"])
}
