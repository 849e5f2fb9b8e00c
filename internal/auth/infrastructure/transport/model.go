package transport

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

type registerUserRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Occupation string `json:"occupation"`
	Age        scalar `json:"age"`
	Gender     scalar `json:"gender"`
	Phone      scalar `json:"phone"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type signInResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type userResponse struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Occupation string `json:"occupation"`
}

type errorResponse struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
}

// scalar accepts any JSON scalar and keeps its textual form.
// Browsers send e.g. gender as a boolean and age as a number.
type scalar string

func (s *scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = scalar(str)
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case bool:
		*s = scalar(strconv.FormatBool(val))
	case float64:
		*s = scalar(string(data))
	default:
		return errors.Errorf("expected a string, number or boolean, got %s", data)
	}
	return nil
}
