package utils

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// Strategy names the parser that accepted a document.
type Strategy string

const (
	StrategyJSON   Strategy = "json"
	StrategyRepair Strategy = "repair"
	StrategyHJSON  Strategy = "hjson"
)

// RepairJSON fixes hand-edited JSON: missing quotes, single quotes, trailing
// commas, comments and unclosed brackets.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("repair json: %w", err)
	}
	return repaired, nil
}

// HJSONToJSON converts an Hjson document to standard JSON.
func HJSONToJSON(data []byte) ([]byte, error) {
	var v interface{}
	if err := hjson.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal hjson result: %w", err)
	}
	return out, nil
}

// DecodeLenient decodes data into v trying, in order, strict JSON, Hjson and
// repaired JSON. Hjson runs before the repair pass because it keeps float64
// precision; json-repair can rewrite 0.07 as 0.07000000029802322. Unknown
// fields are rejected by every strategy so a typo in an input file is
// reported instead of silently ignored.
func DecodeLenient(data []byte, v interface{}) (Strategy, error) {
	firstErr := decodeStrict(data, v)
	if firstErr == nil {
		return StrategyJSON, nil
	}

	if converted, err := HJSONToJSON(data); err == nil {
		if err := decodeStrict(converted, v); err == nil {
			return StrategyHJSON, nil
		}
	}

	if repaired, err := RepairJSON(string(data)); err == nil {
		if err := decodeStrict([]byte(repaired), v); err == nil {
			return StrategyRepair, nil
		}
	}

	return "", fmt.Errorf("decode input: %w", firstErr)
}

func decodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
