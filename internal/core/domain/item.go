package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ItemID is the JX3Box item identifier. The API returns it either as a
// string or as a number; both decode to the same textual form.
type ItemID string

// UnmarshalJSON accepts strings, numbers and null
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id must be a string or number: %w", err)
	}
	// a numeric zero means the item has no page; the string "0" is a real id
	if f, err := strconv.ParseFloat(n.String(), 64); err == nil && f == 0 {
		*id = ""
		return nil
	}
	*id = ItemID(n.String())
	return nil
}

// Valid reports whether the id can be used to build a detail link
func (id ItemID) Valid() bool {
	return id != ""
}

// Item represents a single item returned by the wiki search
type Item struct {
	ID          ItemID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"desc"`
}
