package ocr

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"notivate/internal/logger"

	"github.com/rs/zerolog"
)

// VisionExtractor implements Extractor with the Google Cloud Vision API.
type VisionExtractor struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewVisionExtractor builds the Vision client from environment
// credentials: GOOGLE_CREDENTIALS (inline JSON) is preferred, then
// GOOGLE_APPLICATION_CREDENTIALS (file path), then application default
// credentials.
func NewVisionExtractor(ctx context.Context) (*VisionExtractor, error) {
	var opts []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	return &VisionExtractor{client: client, log: logger.WithComponent("ocr")}, nil
}

// ExtractText runs text detection and returns the full-text
// transcription. The first annotation carries the whole detected text;
// no annotations means the image simply contains no readable text.
func (v *VisionExtractor) ExtractText(ctx context.Context, image []byte) (string, error) {
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION, MaxResults: 1}},
		}},
	})
	if err == nil {
		if res := resp.GetResponses()[0]; res.GetError() != nil {
			err = fmt.Errorf("%v", res.GetError().GetMessage())
		}
	}
	if err != nil {
		v.log.Error().Err(err).Msg("vision text detection failed")
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	annotations := resp.GetResponses()[0].GetTextAnnotations()
	if len(annotations) == 0 {
		return "", nil
	}
	text := annotations[0].GetDescription()
	v.log.Debug().Int("chars", len(text)).Msg("ocr extraction completed")
	return text, nil
}

// Close closes the underlying Vision client.
func (v *VisionExtractor) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
