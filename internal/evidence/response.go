// Package evidence defines the response envelope shared by all data sources.
package evidence

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
)

// Source labels the known evidence datasets.
type Source string

const (
	SourceCancerHotspots Source = "Cancer Hotspots"
	SourceCBioPortal     Source = "cBioPortal"
	SourceGnomAD         Source = "gnomAD"
)

// SourceMeta identifies the dataset a response was drawn from.
type SourceMeta struct {
	Label   Source `json:"label"`
	Version string `json:"version,omitempty"`
}

// Response is the envelope returned for every query. ID is derived from the
// payload, never client-supplied; it stays nil whenever Data is empty.
type Response struct {
	ID         *string        `json:"_id"`
	Data       map[string]any `json:"data"`
	SourceMeta SourceMeta     `json:"source_meta_"`
}

// idPrefix namespaces the content-addressed response identifiers.
const idPrefix = "normalize.evidence:"

// BuildEnvelope wraps a result payload with source metadata. Non-empty data
// gets a content-addressed id: the md5 of the canonical JSON serialization of
// the envelope without its id. Identical payload and metadata always yield an
// identical id. Empty data is a valid state, not an error: data normalizes to
// an empty map and the id stays unset.
func BuildEnvelope(data map[string]any, meta SourceMeta) (Response, error) {
	if len(data) == 0 {
		return Response{Data: map[string]any{}, SourceMeta: meta}, nil
	}

	blob, err := canonicalJSON(struct {
		Data       map[string]any `json:"data"`
		SourceMeta SourceMeta     `json:"source_meta_"`
	}{Data: data, SourceMeta: meta})
	if err != nil {
		return Response{}, fmt.Errorf("canonicalize response: %w", err)
	}

	id := fmt.Sprintf("%s%x", idPrefix, md5.Sum(blob))
	return Response{ID: &id, Data: data, SourceMeta: meta}, nil
}

// AsData converts a typed payload into the generic mapping carried by the
// envelope, by round-tripping through JSON.
func AsData(v any) (map[string]any, error) {
	blob, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(blob, &data); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return data, nil
}

// canonicalJSON serializes v with object keys sorted lexicographically and no
// extraneous whitespace. Marshaling through a generic map gives encoding/json
// its sorted-key ordering for every nested object.
func canonicalJSON(v any) ([]byte, error) {
	blob, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(blob, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
