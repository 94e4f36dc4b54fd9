package services

import (
	"context"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// ModerationService screens generated sigil images before they are stored.
// Diffusion models occasionally drift somewhere we can't ship.
type ModerationService struct {
	client        *rekognition.Client
	minConfidence float32
}

func NewModerationService() (*ModerationService, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		return nil, err
	}
	minConf := float32(80)
	if v := os.Getenv("REKOGNITION_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			minConf = float32(f)
		}
	}
	return &ModerationService{
		client:        rekognition.NewFromConfig(cfg),
		minConfidence: minConf,
	}, nil
}

// Review returns whether the image is acceptable and, when it is not, the
// highest-confidence moderation label that flagged it.
func (m *ModerationService) Review(ctx context.Context, img []byte) (bool, string, error) {
	out, err := m.client.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image:         &types.Image{Bytes: img},
		MinConfidence: aws.Float32(m.minConfidence),
	})
	if err != nil {
		return false, "", err
	}

	var worst string
	var worstConf float32
	for _, l := range out.ModerationLabels {
		if l.Confidence != nil && *l.Confidence > worstConf {
			worstConf = *l.Confidence
			worst = aws.ToString(l.Name)
		}
	}
	if worst != "" {
		return false, worst, nil
	}
	return true, "", nil
}
