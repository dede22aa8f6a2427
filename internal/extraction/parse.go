package extraction

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// rawResult mirrors the JSON object the model is asked to return. Every
// field is optional and may arrive as the wrong type, so amounts are
// decoded loosely and validated afterwards.
type rawResult struct {
	Title   *string         `json:"title"`
	Date    *string         `json:"date"`
	Amount  json.RawMessage `json:"amount"`
}

// stripFences removes a surrounding markdown code fence from a model
// response, with or without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 && !strings.HasPrefix(s, "{") {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseResult decodes a model response into a Result. Fields that are
// missing or malformed degrade to nil instead of failing the whole
// extraction; only an undecodable response returns an error.
func parseResult(response string) (*Result, error) {
	cleaned := stripFences(response)

	var raw rawResult
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, err
	}

	result := &Result{}

	if raw.Title != nil {
		if title := strings.TrimSpace(*raw.Title); title != "" {
			result.Title = &title
		}
	}

	if raw.Date != nil {
		if due := strings.TrimSpace(*raw.Date); dateRe.MatchString(due) {
			if t, err := time.Parse("2006-01-02", due); err == nil {
				result.DueDate = &t
			}
		}
	}

	if amount := parseAmount(raw.Amount); amount != nil {
		result.Amount = amount
	}

	return result, nil
}

// parseAmount accepts a JSON number or a numeric string, including
// strings with a comma decimal separator.
func parseAmount(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return &num
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil
	}
	str = strings.ReplaceAll(strings.TrimSpace(str), ",", ".")
	num, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil
	}
	return &num
}
