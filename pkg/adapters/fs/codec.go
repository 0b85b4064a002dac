package fs

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/strata/pkg/core"
)

// Codec defines how a group file is read and written.
//
// Every codec wraps the records in an outer container and stores each record as an
// independently encoded string inside it. Field payloads are therefore encoded twice.
type Codec interface {
	// Decode reads a group file.
	Decode(r io.Reader) ([]core.Record, error)
	// Encode converts records to the bytes of a group file.
	Encode(records []core.Record) ([]byte, error)
}

// DefaultCodecs returns the standard set of codecs keyed by file extension.
func DefaultCodecs() map[string]Codec {
	return map[string]Codec{
		".json": NewJSONCodec(),
		".yaml": NewYAMLCodec(),
		".yml":  NewYAMLCodec(),
	}
}

// container is the outer shape shared by all codecs.
type container struct {
	Records []string `json:"records" yaml:"records"`
}

// --- JSON Codec ---

// JSONCodec handles reading and writing JSON group files.
type JSONCodec struct {
	api sonic.API
}

// NewJSONCodec creates a new JSON codec with encoding/json compatible output.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{api: sonic.ConfigStd}
}

func (c *JSONCodec) Decode(r io.Reader) ([]core.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var box container
	if err := c.api.Unmarshal(data, &box); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	records := make([]core.Record, 0, len(box.Records))
	for i, raw := range box.Records {
		var rec core.Record
		if err := c.api.UnmarshalFromString(raw, &rec); err != nil {
			return nil, fmt.Errorf("invalid record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *JSONCodec) Encode(records []core.Record) ([]byte, error) {
	box := container{Records: make([]string, 0, len(records))}
	for _, rec := range records {
		raw, err := c.api.MarshalToString(rec)
		if err != nil {
			return nil, err
		}
		box.Records = append(box.Records, raw)
	}
	return c.api.MarshalIndent(box, "", "  ")
}

// --- YAML Codec ---

// YAMLCodec handles reading and writing YAML group files.
// Records inside the container are still JSON strings, so files can be converted
// between formats without touching payloads.
type YAMLCodec struct {
	api sonic.API
}

// NewYAMLCodec creates a new YAML codec.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{api: sonic.ConfigStd}
}

func (c *YAMLCodec) Decode(r io.Reader) ([]core.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var box container
	if err := yaml.Unmarshal(data, &box); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	records := make([]core.Record, 0, len(box.Records))
	for i, raw := range box.Records {
		var rec core.Record
		if err := c.api.UnmarshalFromString(raw, &rec); err != nil {
			return nil, fmt.Errorf("invalid record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *YAMLCodec) Encode(records []core.Record) ([]byte, error) {
	box := container{Records: make([]string, 0, len(records))}
	for _, rec := range records {
		raw, err := c.api.MarshalToString(rec)
		if err != nil {
			return nil, err
		}
		box.Records = append(box.Records, raw)
	}
	return yaml.Marshal(box)
}
