package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type MantraService struct {
	client *http.Client
	token  string
	model  string
}

func NewMantraService() *MantraService {
	return &MantraService{
		client: &http.Client{Timeout: 15 * time.Second},
		token:  os.Getenv("HUGGINGFACE_TOKEN"),
		model:  "google/flan-t5-small",
	}
}

// Suggest asks the text model for short present-tense mantras matching the
// intention. Returns one suggestion per line, bullets stripped.
func (m *MantraService) Suggest(intention string) ([]string, error) {
	if m.token == "" {
		return nil, fmt.Errorf("HUGGINGFACE_TOKEN not set")
	}

	var sb bytes.Buffer
	sb.WriteString("Intention: ")
	sb.WriteString(intention)
	sb.WriteString("\n\nWrite 3 short affirmation mantras for this intention. Present tense, first person, under 8 words each. Return plain bullet points.")

	body := map[string]any{
		"inputs": sb.String(),
		"parameters": map[string]any{
			"max_new_tokens": 64,
			"temperature":    0.7,
		},
	}
	b, _ := json.Marshal(body)

	req, _ := http.NewRequest(
		"POST",
		fmt.Sprintf("https://api-inference.huggingface.co/models/%s", m.model),
		bytes.NewReader(b),
	)
	req.Header.Set("Authorization", "Bearer "+m.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-wait-for-model", "true")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hf request error: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read hf response error: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var hfErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBytes, &hfErr) == nil && hfErr.Error != "" {
			return nil, fmt.Errorf("hf api error (%d): %s", resp.StatusCode, hfErr.Error)
		}
		return nil, fmt.Errorf("hf api error (%d): %s", resp.StatusCode, string(respBytes))
	}

	var hfOut []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(respBytes, &hfOut); err != nil {
		bodyPreview := string(respBytes)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		return nil, fmt.Errorf("decode hf response error: %v | body: %s", err, bodyPreview)
	}
	if len(hfOut) == 0 || strings.TrimSpace(hfOut[0].GeneratedText) == "" {
		return nil, fmt.Errorf("empty mantras from hf")
	}

	var mantras []string
	for _, line := range strings.Split(hfOut[0].GeneratedText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimLeft(line, "-•* \t")
		if line != "" {
			mantras = append(mantras, line)
		}
	}
	return mantras, nil
}
