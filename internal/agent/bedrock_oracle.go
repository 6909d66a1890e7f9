package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockOracle implements Oracle on the Bedrock Converse API, for
// deployments that keep everything inside AWS.
type BedrockOracle struct {
	api     bedrockConverseAPI
	modelID string
}

// NewBedrockOracle wraps a Bedrock runtime client.
func NewBedrockOracle(api bedrockConverseAPI, modelID string) *BedrockOracle {
	if api == nil {
		panic("agent: bedrock converse client cannot be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		panic("agent: bedrock model id cannot be empty")
	}
	return &BedrockOracle{api: api, modelID: modelID}
}

// Infer sends one prompt through Converse and returns the text output.
func (o *BedrockOracle) Infer(ctx context.Context, system, prompt string) (string, error) {
	var systemBlocks []brtypes.SystemContentBlock
	if strings.TrimSpace(system) != "" {
		systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: system})
	}

	out, err := o.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(o.modelID),
		System:  systemBlocks,
		Messages: []brtypes.Message{{
			Role: brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberText{Value: prompt},
			},
		}},
		InferenceConfig: &brtypes.InferenceConfiguration{
			Temperature: aws.Float32(0),
			MaxTokens:   aws.Int32(1024),
		},
	})
	if err != nil {
		return "", err
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("agent: bedrock returned unexpected output type")
	}
	var text strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("agent: bedrock returned empty content")
	}
	return strings.TrimSpace(text.String()), nil
}

var _ Oracle = (*BedrockOracle)(nil)
