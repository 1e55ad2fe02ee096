package embedding

import (
	"context"
	"errors"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// VertexEmbedder calls a Vertex AI text-embedding publisher model through the
// prediction endpoint. text-embedding-004 produces 768-dim vectors, matching
// the vector(768) columns.
type VertexEmbedder struct {
	client   *aiplatform.PredictionClient
	endpoint string
	dims     int
}

func NewVertexEmbedder(ctx context.Context, projectID, location, modelName string) (*VertexEmbedder, error) {
	if modelName == "" {
		modelName = "text-embedding-004"
	}

	c, err := aiplatform.NewPredictionClient(ctx,
		option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", location)))
	if err != nil {
		return nil, err
	}

	return &VertexEmbedder{
		client: c,
		endpoint: fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s",
			projectID, location, modelName),
		dims: 768,
	}, nil
}

func (v *VertexEmbedder) Close() error { return v.client.Close() }

func (v *VertexEmbedder) Dimensions() int { return v.dims }

func (v *VertexEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	inst, err := structpb.NewStruct(map[string]any{"content": text})
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:  v.endpoint,
		Instances: []*structpb.Value{structpb.NewStructValue(inst)},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Predictions) == 0 {
		return nil, errors.New("empty embedding response")
	}

	values := resp.Predictions[0].
		GetStructValue().GetFields()["embeddings"].
		GetStructValue().GetFields()["values"].
		GetListValue().GetValues()
	if len(values) == 0 {
		return nil, errors.New("embedding response has no values")
	}

	out := make([]float32, 0, len(values))
	for _, val := range values {
		out = append(out, float32(val.GetNumberValue()))
	}
	return out, nil
}
