// Package stdout renders prediction responses as a single JSON line.
package stdout

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/couchcryptid/air-quality-ml/internal/domain"
)

// Writer emits one response line per call. Keys appear in a fixed order and
// are separated by ", " and ": ".
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteResult writes a successful prediction.
func (w *Writer) WriteResult(res domain.PredictionResult) error {
	var b bytes.Buffer
	b.WriteString(`{"predicted_aqi": `)
	b.WriteString(strconv.FormatFloat(res.PredictedAQI, 'f', 1, 64))
	writeField(&b, "category", res.Name)
	writeField(&b, "emoji", res.Emoji)
	writeField(&b, "color", res.Color)
	b.WriteString("}\n")
	_, err := w.w.Write(b.Bytes())
	return err
}

// WriteError writes err as {"error": "<message>"}.
func (w *Writer) WriteError(err error) error {
	var b bytes.Buffer
	b.WriteString(`{"error": `)
	b.WriteString(quote(Message(err)))
	b.WriteString("}\n")
	_, werr := w.w.Write(b.Bytes())
	return werr
}

// Message is the text reported for err. Malformed JSON always maps to the
// fixed domain message regardless of wrapping.
func Message(err error) string {
	if errors.Is(err, domain.ErrInvalidJSON) {
		return domain.ErrInvalidJSON.Error()
	}
	return err.Error()
}

func writeField(b *bytes.Buffer, key, value string) {
	b.WriteString(", ")
	b.WriteString(quote(key))
	b.WriteString(": ")
	b.WriteString(quote(value))
}

func quote(s string) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return string(bytes.TrimSuffix(b.Bytes(), []byte("\n")))
}
