package inference

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sagemakerruntime"
	"github.com/aws/aws-sdk-go/service/sagemakerruntime/sagemakerruntimeiface"

	"lrt-predictor/internal/domain/entity"
)

type sageMakerResponse struct {
	Predictions []struct {
		PredictedLabel *float64 `json:"predicted_label"`
	} `json:"predictions"`
}

// SageMakerClassifier sends one scaled reading per call to a hosted endpoint.
type SageMakerClassifier struct {
	client   sagemakerruntimeiface.SageMakerRuntimeAPI
	endpoint string
}

func NewSageMakerClassifier(client sagemakerruntimeiface.SageMakerRuntimeAPI, endpoint string) (*SageMakerClassifier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("sagemaker endpoint name is empty")
	}
	return &SageMakerClassifier{client: client, endpoint: endpoint}, nil
}

func (c *SageMakerClassifier) Predict(ctx context.Context, x []float64) (entity.Prediction, error) {
	payload := map[string]any{
		"instances": []map[string]any{
			{"features": x},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return entity.NoFailure, fmt.Errorf("failed to marshal payload: %w", err)
	}

	out, err := c.client.InvokeEndpointWithContext(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(c.endpoint),
		Body:         body,
		ContentType:  aws.String("application/json"),
		Accept:       aws.String("application/json"),
	})
	if err != nil {
		return entity.NoFailure, fmt.Errorf("failed to invoke endpoint: %w", err)
	}

	var resp sageMakerResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return entity.NoFailure, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Predictions) != 1 || resp.Predictions[0].PredictedLabel == nil {
		return entity.NoFailure, fmt.Errorf("endpoint returned %d predictions, want 1 with a label", len(resp.Predictions))
	}

	label := *resp.Predictions[0].PredictedLabel
	if label != 0 && label != 1 {
		return entity.NoFailure, fmt.Errorf("endpoint returned label %v outside {0,1}", label)
	}
	return entity.PredictionFromClass(int(label))
}
