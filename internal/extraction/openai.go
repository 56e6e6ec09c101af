package extraction

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = openai.ChatModelGPT4o

// OpenAI implements the Extractor interface using the OpenAI chat completions API
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI Extractor instance.
// baseURL may be empty to use the public endpoint.
func NewOpenAI(apiKey string, baseURL string, modelName string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAI{
		client: &client,
		model:  modelName,
	}, nil
}

// Name returns the provider and model identifier
func (o *OpenAI) Name() string {
	return "openai/" + o.model
}

// Extract sends the prompt and image as one user message and returns the reply text
func (o *OpenAI) Extract(ctx context.Context, req *Request) (string, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(req.System),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart(req.Prompt),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    req.DataURL(),
							Detail: "high",
						}),
					},
				},
			},
		},
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai API error: %w", ErrInference, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no response from openai", ErrInference)
	}

	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the OpenAI client holds no resources
func (o *OpenAI) Close() error {
	return nil
}
