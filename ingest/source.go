package ingest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/justapithecus/shardkit/types"
)

// base64Field marks a JSON object carrying binary data:
//
//	{"jpg": {"$base64": "/9j/4AAQ..."}}
const base64Field = "$base64"

// Source yields samples until io.EOF.
type Source interface {
	Next() (types.Sample, error)
}

// JSONLSource decodes one JSON object per line.
//
// String fields stay strings, {"$base64": "..."} objects become []byte,
// numbers decode as json.Number, and everything else keeps its decoded
// JSON shape for the field encoder to handle.
type JSONLSource struct {
	dec  *json.Decoder
	line int
}

// NewJSONLSource reads samples from r.
func NewJSONLSource(r io.Reader) *JSONLSource {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &JSONLSource{dec: dec}
}

// Next implements Source.
func (s *JSONLSource) Next() (types.Sample, error) {
	var raw map[string]json.RawMessage
	if err := s.dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("sample %d: %w", s.line+1, err)
	}
	s.line++

	sample := make(types.Sample, len(raw))
	for name, msg := range raw {
		v, err := decodeField(msg)
		if err != nil {
			return nil, fmt.Errorf("sample %d field %q: %w", s.line, name, err)
		}
		sample[name] = v
	}
	if sample.Key() == "" {
		return nil, fmt.Errorf("sample %d: missing string %s", s.line, types.KeyField)
	}
	return sample, nil
}

func decodeField(msg json.RawMessage) (any, error) {
	var wrapped map[string]string
	if bytes.HasPrefix(bytes.TrimSpace(msg), []byte("{")) && json.Unmarshal(msg, &wrapped) == nil {
		if enc, ok := wrapped[base64Field]; ok && len(wrapped) == 1 {
			return base64.StdEncoding.DecodeString(enc)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// SliceSource yields samples from memory.
type SliceSource struct {
	samples []types.Sample
	pos     int
}

// NewSliceSource returns a Source over samples.
func NewSliceSource(samples []types.Sample) *SliceSource {
	return &SliceSource{samples: samples}
}

// Next implements Source.
func (s *SliceSource) Next() (types.Sample, error) {
	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}
	sample := s.samples[s.pos]
	s.pos++
	return sample, nil
}
