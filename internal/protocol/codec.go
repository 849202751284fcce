package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownKind = errors.New("unknown message kind")
	ErrPayload     = errors.New("invalid message payload")
)

// MaxMessageSize bounds a single inbound message.
const MaxMessageSize = 4096

// Encoder writes messages as a stream of JSON objects, one per line.
type Encoder struct {
	enc *json.Encoder
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// Encode writes m.
func (e *Encoder) Encode(m Message) error {
	return e.enc.Encode(m)
}

// Decoder reads a stream of JSON message objects.
type Decoder struct {
	lr  *limitedReader
	dec *json.Decoder
}

// NewDecoder returns a Decoder reading from r. Any single message larger
// than MaxMessageSize is treated as malformed.
func NewDecoder(r io.Reader) *Decoder {
	lr := &limitedReader{r: r, left: MaxMessageSize}
	return &Decoder{lr: lr, dec: json.NewDecoder(lr)}
}

// Decode reads the next message. io.EOF is returned unchanged at the end of
// the stream. ErrMalformed means the stream cannot be resynchronized and
// should be closed; ErrUnknownKind consumes the message and is recoverable.
func (d *Decoder) Decode() (Message, error) {
	d.lr.left = MaxMessageSize
	var m Message
	if err := d.dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, io.EOF
		}
		if errors.Is(err, errTooLarge) {
			return Message{}, fmt.Errorf("%w: exceeds %d bytes", ErrMalformed, MaxMessageSize)
		}
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, validate(m)
}

// Marshal encodes m as a single JSON object.
func Marshal(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Parse decodes one message from data.
func Parse(data []byte) (Message, error) {
	if len(data) > MaxMessageSize {
		return Message{}, fmt.Errorf("%w: exceeds %d bytes", ErrMalformed, MaxMessageSize)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, validate(m)
}

func validate(m Message) error {
	if m.Kind == "" {
		return fmt.Errorf("%w: missing kind", ErrMalformed)
	}
	if !m.Kind.Inbound() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	return nil
}

var errTooLarge = errors.New("message too large")

// limitedReader fails once more than left bytes have been read since the
// last reset. Decode resets it per message.
type limitedReader struct {
	r    io.Reader
	left int
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.left <= 0 {
		return 0, errTooLarge
	}
	if len(p) > l.left {
		p = p[:l.left]
	}
	n, err := l.r.Read(p)
	l.left -= n
	return n, err
}
