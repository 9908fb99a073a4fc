package providers

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// serviceAccountSchemaJSON describes the subset of a Google service-account key
// file that Secret Manager authentication depends on.
const serviceAccountSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "project_id", "private_key", "client_email"],
  "properties": {
    "type":           { "const": "service_account" },
    "project_id":     { "type": "string", "minLength": 1 },
    "private_key_id": { "type": "string" },
    "private_key":    { "type": "string", "pattern": "-----BEGIN (RSA )?PRIVATE KEY-----" },
    "client_email":   { "type": "string", "format": "email" },
    "client_id":      { "type": "string" },
    "token_uri":      { "type": "string", "format": "uri" }
  }
}`

var serviceAccountSchema = mustCompileSchema(serviceAccountSchemaJSON)

func mustCompileSchema(doc string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return schema
}

// ValidateServiceAccountJSON checks that doc is a well-formed service-account
// key document. The returned error lists every schema violation.
func ValidateServiceAccountJSON(doc []byte) error {
	result, err := serviceAccountSchema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("service account document is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("service account document is invalid: %s", strings.Join(problems, "; "))
}
