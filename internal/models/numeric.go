package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// NumericString decodes an integer that Alertmanager may render as a JSON string ("3")
// or, from other senders, as a JSON number (3). It always encodes as a string.
type NumericString int

// UnmarshalJSON implements json.Unmarshaler.
func (n *NumericString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("numeric value is null")
	}

	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}

	value, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("%q is not an integer", text)
	}
	*n = NumericString(value)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n NumericString) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(n)))
}

// Int returns the decoded value.
func (n NumericString) Int() int {
	return int(n)
}
