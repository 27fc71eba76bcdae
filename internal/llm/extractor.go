// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "ProductMentions")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// --- Predefined Schemas ---

// ProductMentionsSchema returns the extraction schema for product mentions in
// gear videos and articles. productTypes, knownBrands, and recentProducts are
// woven into the task description so the model knows what gear to look for,
// recognizes brand names, and biases toward products not already discovered.
func ProductMentionsSchema(vertical string, productTypes, knownBrands, recentProducts []string) ExtractionSchema {
	desc := fmt.Sprintf(`You are an expert at identifying %s products mentioned in video transcripts and gear articles.
Your task is to list every distinct physical product the creator names, shows, or recommends.
Use the FULL product name including brand and model (e.g., "Titleist TSR3 Driver", not "the driver").
EXCLUDE: services, apps, software subscriptions, sponsor shout-outs with no product, and the creator's own merchandise.`, vertical)

	if len(productTypes) > 0 {
		desc += fmt.Sprintf("\nProduct types to expect: %s.", strings.Join(productTypes, ", "))
	}
	if len(knownBrands) > 0 {
		desc += fmt.Sprintf("\nBrands common in this category: %s.", strings.Join(knownBrands, ", "))
	}
	if len(recentProducts) > 0 {
		desc += fmt.Sprintf("\nAlready discovered recently (still extract them, but prefer surfacing products NOT on this list): %s.", strings.Join(recentProducts, ", "))
	}

	return ExtractionSchema{
		Name:        "ProductMentions",
		Description: desc,
		Fields: []SchemaField{
			{
				Name:        "mentions",
				Type:        `[{"name": "string", "brand": "string", "confidence": 0}]`,
				Description: "one entry per distinct product; confidence 0-100 that this is a real, correctly named product",
				Required:    true,
			},
		},
	}
}
