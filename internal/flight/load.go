package flight

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/titanous/json5"
	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidItineraries = errors.New("invalid itineraries")

const itinerariesSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["origin", "destination", "departure_date"],
		"properties": {
			"origin": {"type": "string", "minLength": 1},
			"destination": {"type": "string", "minLength": 1},
			"departure_date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
			"return_date": {
				"anyOf": [
					{"type": "null"},
					{"type": "string", "pattern": "^([0-9]{4}-[0-9]{2}-[0-9]{2})?$"}
				]
			}
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(itinerariesSchema)

// LoadItineraries reads a JSON (or JSON5) array of itineraries from path.
func LoadItineraries(path string) ([]Itinerary, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseItineraries(contents)
}

func ParseItineraries(contents []byte) ([]Itinerary, error) {
	var raw any
	if err := json5.Unmarshal(contents, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItineraries, err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, err
	}
	if !result.Valid() {
		messages := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			messages[i] = e.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidItineraries, strings.Join(messages, "; "))
	}

	var itineraries []Itinerary
	if err := json5.Unmarshal(contents, &itineraries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItineraries, err)
	}
	return itineraries, nil
}
