package assistant

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// APIConfig contains settings for the direct-API invoker.
type APIConfig struct {
	// APIKey authenticates direct calls; falls back to ANTHROPIC_API_KEY.
	APIKey string
	// DefaultModel is used when a call does not name a model.
	DefaultModel string
	// UseBedrock routes calls through AWS Bedrock.
	UseBedrock bool
	// AWSRegion is the AWS region for Bedrock.
	AWSRegion string
	// AWSProfile is the optional AWS shared-config profile.
	AWSProfile string
}

// APIInvoker makes assistant calls directly against the Anthropic API.
// Local tools and session resumption are CLI capabilities; api mode
// serves single-shot calls and ignores session handles.
type APIInvoker struct {
	client anthropic.Client
	cfg    APIConfig
}

// NewAPIInvoker creates the direct-API invoker.
func NewAPIInvoker(cfg APIConfig) (*APIInvoker, error) {
	var opts []option.RequestOption

	if cfg.UseBedrock {
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &APIInvoker{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

// Compile-time verification that APIInvoker implements Invoker.
var _ Invoker = (*APIInvoker)(nil)

// Invoke makes one Messages call and normalizes its response.
func (a *APIInvoker) Invoke(ctx context.Context, opts CallOptions) (*Result, error) {
	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if opts.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	model := anthropic.Model(opts.Model)
	if model == "" {
		model = anthropic.Model(a.cfg.DefaultModel)
	}
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if a.cfg.UseBedrock {
		model = translateModelForBedrock(model)
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(opts.Prompt)),
		},
	}
	if opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: opts.SystemPrompt},
		}
	}

	start := time.Now()
	resp, err := a.client.Messages.New(callCtx, params)
	elapsed := time.Since(start).Milliseconds()

	if opts.OnActivity != nil {
		opts.OnActivity()
	}

	if err != nil {
		emitFailureRecord(opts, elapsed)
		if callCtx.Err() != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("assistant call cancelled: %w", ErrCancelled)
			}
			return nil, fmt.Errorf("assistant call timed out after %s: %w", opts.Timeout, ErrTimeout)
		}
		if isRateLimitText(err.Error()) {
			return nil, fmt.Errorf("assistant rate limited: %v: %w", err, ErrRateLimited)
		}
		return nil, fmt.Errorf("api call: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}
	if opts.OnOutput != nil {
		opts.OnOutput(text.String())
	}

	res := &Result{
		Text:          text.String(),
		DurationMs:    elapsed,
		DurationAPIMs: elapsed,
		NumTurns:      1,
		StopReason:    string(resp.StopReason),
		CostUSD:       estimateCost(string(model), resp.Usage),
		ModelUsage: map[string]models.ModelTokens{
			string(model): {
				InputTokens:              resp.Usage.InputTokens,
				OutputTokens:             resp.Usage.OutputTokens,
				CacheReadInputTokens:     resp.Usage.CacheReadInputTokens,
				CacheCreationInputTokens: resp.Usage.CacheCreationInputTokens,
			},
		},
	}

	emitRecord(opts, res)
	return res, nil
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock inference profile format.
// Bedrock uses cross-region inference profiles: us.anthropic.{model}-v1:0
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaudeOpus4_5_20251101:   "us.anthropic.claude-opus-4-5-20251101-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}

	// Might already be Bedrock format or a custom model.
	return model
}

// ModelPricing contains pricing per 1M tokens for a model family.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultModelPricing maps model-name fragments to pricing.
var DefaultModelPricing = map[string]ModelPricing{
	"opus":   {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"sonnet": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"haiku":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
}

// estimateCost approximates a call's cost from its token usage. The CLI
// reports an exact total; api mode has to compute one.
func estimateCost(model string, usage anthropic.Usage) float64 {
	pricing := DefaultModelPricing["sonnet"]
	lower := strings.ToLower(model)
	for fragment, p := range DefaultModelPricing {
		if strings.Contains(lower, fragment) {
			pricing = p
			break
		}
	}

	inputCost := float64(usage.InputTokens) / 1_000_000 * pricing.InputPerMillion
	outputCost := float64(usage.OutputTokens) / 1_000_000 * pricing.OutputPerMillion
	return inputCost + outputCost
}
