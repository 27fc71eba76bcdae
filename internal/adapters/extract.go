package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"unicode/utf8"

	"github.com/jonathan/gear-discovery/internal/llm"
	"github.com/jonathan/gear-discovery/internal/schemas"
)

// maxExtractionInput bounds the text sent per extraction call. Transcripts of
// long videos routinely exceed this; product mentions cluster early, so the
// head of the transcript carries most of the signal.
const maxExtractionInput = 12000

// minMentionConfidence drops obviously uncertain mentions at the adapter so
// downstream merging only sees plausible products.
const minMentionConfidence = 40

// GeminiExtractor implements MentionExtractor on a Gemini client.
type GeminiExtractor struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewGeminiExtractor creates a mention extractor. tier selects the model
// tier for extraction calls.
func NewGeminiExtractor(client llm.Client, tier llm.ModelTier) *GeminiExtractor {
	if tier == "" {
		tier = llm.TierStandard
	}
	return &GeminiExtractor{client: client, tier: tier}
}

type mentionsEnvelope struct {
	Mentions []Mention `json:"mentions"`
}

// ExtractMentions runs one extraction call and returns mentions at or above
// the confidence floor. The model response is schema-validated before decode.
func (e *GeminiExtractor) ExtractMentions(ctx context.Context, req ExtractionRequest) ([]Mention, error) {
	text := req.Text
	if len(text) > maxExtractionInput {
		// Back off to a rune boundary so the cut never leaves invalid UTF-8.
		cut := maxExtractionInput
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	if req.SourceTitle != "" {
		text = "Video/article title: " + req.SourceTitle + "\n\n" + text
	}

	schema := llm.ProductMentionsSchema(string(req.Vertical), req.ProductTypes, req.BrandHints, req.RecentProducts)
	prompt := llm.BuildExtractionPrompt(schema, text)

	raw, err := e.client.GenerateJSON(ctx, prompt, e.tier)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewError("extract", ErrTimeout, "extraction call timed out", err)
		}
		return nil, NewError("extract", ErrUnreachable, "extraction call failed", err)
	}

	if err := schemas.ValidateJSONString(schemas.ProductMentions, raw); err != nil {
		return nil, NewError("extract", ErrMalformed, "extraction output failed schema validation", err)
	}

	var envelope mentionsEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, NewError("extract", ErrMalformed, "failed to decode extraction output", err)
	}

	mentions := make([]Mention, 0, len(envelope.Mentions))
	for _, m := range envelope.Mentions {
		if m.Name == "" || m.Confidence < minMentionConfidence {
			continue
		}
		mentions = append(mentions, m)
		if req.MaxMentions > 0 && len(mentions) >= req.MaxMentions {
			break
		}
	}
	return mentions, nil
}
