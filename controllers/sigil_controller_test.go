package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewSigil(t *testing.T) {
	r := newTestRouter()
	r.POST("/sigils/preview", authAs(1, "u@example.com"), PreviewSigil)

	do := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/sigils/preview", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(`{"intention_text": "I am calm and focused"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Letters  string `json:"letters"`
		Svg      string `json:"svg"`
		Analysis struct {
			LetterCount int    `json:"letterCount"`
			Style       string `json:"style"`
		} `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "MCLNDFS", out.Letters)
	assert.Contains(t, out.Svg, "<svg")
	assert.Equal(t, 7, out.Analysis.LetterCount)
	assert.Equal(t, "traditional", out.Analysis.Style)

	// identical request, identical artwork
	w2 := do(`{"intention_text": "I am calm and focused"}`)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, w.Body.String(), w2.Body.String())

	// validation failures
	assert.Equal(t, http.StatusBadRequest, do(`{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(`{"intention_text": "123"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(`{"intention_text": "ok", "style": "cubist"}`).Code)
}

func TestManualSigil(t *testing.T) {
	r := newTestRouter()
	r.POST("/sigils/manual", authAs(1, "u@example.com"), ManualSigil)

	body := `{"strokes": [[{"x":0,"y":0},{"x":40,"y":40},{"x":80,"y":10}]]}`
	req := httptest.NewRequest("POST", "/sigils/manual", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Svg string `json:"svg"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Contains(t, out.Svg, "<path")

	// a single-point stroke can't be smoothed
	req = httptest.NewRequest("POST", "/sigils/manual",
		strings.NewReader(`{"strokes": [[{"x":1,"y":1}]]}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
