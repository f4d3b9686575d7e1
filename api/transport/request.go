package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"strconv"
	"strings"
)

// CreateTodoRequest is the POST /todos body.
type CreateTodoRequest struct {
	Title string `json:"title"`
}

// UpdateTodoRequest is the PUT /todos body; absent fields stay nil.
type UpdateTodoRequest struct {
	ID        TodoID  `json:"id"`
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// DeleteTodoRequest is the DELETE /todos body.
type DeleteTodoRequest struct {
	ID TodoID `json:"id"`
}

var errInvalidID = errors.New("id must be an integer")

// TodoID accepts a JSON number or a numeric string. Integral numbers written
// with a fraction or exponent, such as 1.0 or 1e2, are accepted too.
type TodoID int64

func (id *TodoID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	parsed, err := parseIntegral(string(data))
	if err != nil {
		return err
	}
	*id = TodoID(parsed)
	return nil
}

func parseIntegral(s string) (int64, error) {
	if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
		return parsed, nil
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok || !r.IsInt() || !r.Num().IsInt64() {
		return 0, errInvalidID
	}
	return r.Num().Int64(), nil
}

func (id TodoID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(id), 10)), nil
}
