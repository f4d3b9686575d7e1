package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/fastygo/todo/domain"
)

const idSchema = `{
	"oneOf": [
		{"type": "integer"},
		{"type": "string", "pattern": "^\\s*-?[0-9]+\\s*$"}
	]
}`

var (
	createSchema = mustCompile("create.json", `{
		"type": "object",
		"required": ["title"],
		"properties": {
			"title": {"type": "string", "minLength": 1, "pattern": "\\S"}
		}
	}`)
	updateSchema = mustCompile("update.json", `{
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": `+idSchema+`,
			"title": {"type": "string", "minLength": 1, "pattern": "\\S"},
			"completed": {"type": "boolean"}
		}
	}`)
	deleteSchema = mustCompile("delete.json", `{
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": `+idSchema+`
		}
	}`)
)

// fieldMessages replaces the validator's generic wording for known fields.
var fieldMessages = map[string]string{
	"title": "Title must not be empty",
	"id":    "id must be an integer",
}

func mustCompile(name, source string) *jsonschema.Schema {
	return jsonschema.MustCompileString(name, source)
}

// DecodeCreate validates and decodes a create body.
func DecodeCreate(body []byte) (CreateTodoRequest, error) {
	var req CreateTodoRequest
	err := decode(createSchema, body, &req)
	return req, err
}

// DecodeUpdate validates and decodes an update body, coercing id.
func DecodeUpdate(body []byte) (UpdateTodoRequest, error) {
	var req UpdateTodoRequest
	err := decode(updateSchema, body, &req)
	return req, err
}

// DecodeDelete validates and decodes a delete body, coercing id.
func DecodeDelete(body []byte) (DeleteTodoRequest, error) {
	var req DeleteTodoRequest
	err := decode(deleteSchema, body, &req)
	return req, err
}

func decode(schema *jsonschema.Schema, body []byte, out interface{}) error {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return domain.ErrInvalidPayload
	}
	if dec.More() {
		return domain.ErrInvalidPayload
	}
	if err := schema.Validate(doc); err != nil {
		return validationError(err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		if errors.Is(err, errInvalidID) {
			return domain.NewError(domain.ErrCodeInvalid, fieldMessages["id"])
		}
		return domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err)
	}
	return nil
}

// validationError folds every leaf schema failure into one invalid error
// whose message joins the per-field messages.
func validationError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err)
	}

	byField := map[string]string{}
	collectSchemaErrors(ve, byField)

	fields := make([]string, 0, len(byField))
	for field := range byField {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, byField[field])
	}
	if len(messages) == 0 {
		messages = append(messages, ve.Message)
	}
	return domain.NewError(domain.ErrCodeInvalid, strings.Join(messages, ", "))
}

func collectSchemaErrors(err *jsonschema.ValidationError, byField map[string]string) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		field := strings.TrimPrefix(err.InstanceLocation, "/")
		if field == "" && strings.HasSuffix(err.KeywordLocation, "/required") {
			field = missingProperty(err.Message)
		}
		if _, seen := byField[field]; seen {
			return
		}
		switch msg, ok := fieldMessages[field]; {
		case ok:
			byField[field] = msg
		case field == "":
			byField[field] = err.Message
		default:
			byField[field] = fmt.Sprintf("%s: %s", field, err.Message)
		}
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(cause, byField)
	}
}

// missingProperty extracts the property name from a root-level "required"
// failure such as `missing properties: 'title'`.
func missingProperty(message string) string {
	start := strings.Index(message, "'")
	if start < 0 {
		return message
	}
	end := strings.Index(message[start+1:], "'")
	if end < 0 {
		return message
	}
	return message[start+1 : start+1+end]
}
