// Package schemas - extraction.go holds the schema for product mention
// extraction output.
package schemas

// ProductMentions is the JSON Schema for the mention extraction response.
// Confidence bounds are enforced here so out-of-range model output is
// rejected rather than clamped.
const ProductMentions = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["mentions"],
  "properties": {
    "mentions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "confidence"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "brand": {"type": "string"},
          "confidence": {"type": "integer", "minimum": 0, "maximum": 100}
        }
      }
    }
  }
}`
