// Package synth holds the synthesis request parameters sent to the
// Chatterbox inference server.
package synth

import (
	"fmt"
	"net/url"
	"strconv"
)

// Params describes one synthesis request. Zero-valued optional fields are
// omitted from the query string.
type Params struct {
	Text         string  // Required
	VoiceID      string  // Saved voice reference on the server
	Exaggeration float64 // Emotion exaggeration, 0..1
	Temperature  float64 // Sampling temperature
	CFGWeight    float64 // Classifier-free guidance weight
	ChunkSize    int     // Tokens per streamed chunk
}

// Validate checks the request is well-formed before a connection is opened
func (p Params) Validate() error {
	if p.Text == "" {
		return fmt.Errorf("text is required")
	}
	if p.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative, got %d", p.ChunkSize)
	}
	return nil
}

// Values serializes the parameters as flat key=value query pairs, omitting
// unset optional fields.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("text", p.Text)
	if p.VoiceID != "" {
		v.Set("voice_id", p.VoiceID)
	}
	if p.Exaggeration != 0 {
		v.Set("exaggeration", formatFloat(p.Exaggeration))
	}
	if p.Temperature != 0 {
		v.Set("temperature", formatFloat(p.Temperature))
	}
	if p.CFGWeight != 0 {
		v.Set("cfg_weight", formatFloat(p.CFGWeight))
	}
	if p.ChunkSize != 0 {
		v.Set("chunk_size", strconv.Itoa(p.ChunkSize))
	}
	return v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
