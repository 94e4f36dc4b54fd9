package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ImageGenService renders enhancement prompts through the Hugging Face
// Inference API. The seed keeps a job's variations distinct but reproducible
// across retries.
type ImageGenService struct {
	client *http.Client
	token  string
	model  string
}

func NewImageGenService() *ImageGenService {
	model := os.Getenv("HF_IMAGE_MODEL")
	if model == "" {
		model = "stabilityai/stable-diffusion-2-1"
	}
	return &ImageGenService{
		client: &http.Client{Timeout: 60 * time.Second}, // diffusion is slow
		token:  os.Getenv("HUGGINGFACE_TOKEN"),
		model:  model,
	}
}

func (g *ImageGenService) Generate(ctx context.Context, prompt string, seed int64) ([]byte, string, error) {
	if g.token == "" {
		return nil, "", fmt.Errorf("HUGGINGFACE_TOKEN not set")
	}

	body := map[string]any{
		"inputs": prompt,
		"parameters": map[string]any{
			"seed":                seed,
			"num_inference_steps": 30,
			"guidance_scale":      7.5,
		},
	}
	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST",
		fmt.Sprintf("https://api-inference.huggingface.co/models/%s", g.model),
		bytes.NewReader(b),
	)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")
	// Ensure HF loads cold models instead of returning a "loading" error
	req.Header.Set("x-wait-for-model", "true")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("hf request error: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read hf response error: %w", err)
	}

	// Non-200 => surface exact HF error body (often JSON with {"error": "..."} or plain text)
	if resp.StatusCode != http.StatusOK {
		var hfErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBytes, &hfErr) == nil && hfErr.Error != "" {
			return nil, "", fmt.Errorf("hf api error (%d): %s", resp.StatusCode, hfErr.Error)
		}
		return nil, "", fmt.Errorf("hf api error (%d): %s", resp.StatusCode, string(respBytes))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	if len(respBytes) == 0 {
		return nil, "", fmt.Errorf("empty image from hf")
	}
	return respBytes, contentType, nil
}
