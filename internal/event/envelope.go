// Package event decodes the push envelopes that announce a raw video landing
// in the source bucket.
package event

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrInvalidPayload is returned for any envelope that cannot be turned into a
// usable source identifier.
var ErrInvalidPayload = errors.New("invalid payload")

// Envelope is the push request body: {"message": {"data": "<base64>"}}.
type Envelope struct {
	Message      Message `json:"message"`
	Subscription string  `json:"subscription,omitempty"`
}

// Message is the pushed message. Data holds base64-encoded JSON.
type Message struct {
	Data        string            `json:"data"`
	MessageID   string            `json:"messageId,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Notification is the decoded message payload. Only Name is required; Bucket
// is present on storage object notifications and is informational.
type Notification struct {
	// Name is the object name of the raw video (e.g. "clip1.mp4").
	Name   string `json:"name"`
	Bucket string `json:"bucket,omitempty"`
}

// ParseEnvelope decodes a JSON-encoded Envelope from r.
func ParseEnvelope(r io.Reader) (Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return Envelope{}, invalid("decode envelope: %v", err)
	}
	if env.Message.Data == "" {
		return Envelope{}, invalid("envelope missing message.data")
	}
	return env, nil
}

// Decode base64-decodes the message data, checks it is UTF-8, parses it as
// JSON and validates the name field.
func (e Envelope) Decode() (Notification, error) {
	raw, err := base64.StdEncoding.DecodeString(e.Message.Data)
	if err != nil {
		return Notification{}, invalid("base64 decode: %v", err)
	}
	if !utf8.Valid(raw) {
		return Notification{}, invalid("message data is not valid UTF-8")
	}

	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return Notification{}, invalid("decode message data: %v", err)
	}
	if strings.TrimSpace(n.Name) == "" {
		return Notification{}, invalid("message data missing name")
	}
	// The name becomes a file name under the staging directories.
	if !filepath.IsLocal(n.Name) {
		return Notification{}, invalid("name %q is not a relative local path", n.Name)
	}
	// It must also name an object, not a directory.
	if strings.HasSuffix(n.Name, "/") || path.Clean(n.Name) == "." {
		return Notification{}, invalid("name %q does not name an object", n.Name)
	}
	if base := path.Base(n.Name); base == "." || base == ".." {
		return Notification{}, invalid("name %q does not name an object", n.Name)
	}
	return n, nil
}

// Decode parses an envelope from r and decodes its notification.
func Decode(r io.Reader) (Notification, error) {
	env, err := ParseEnvelope(r)
	if err != nil {
		return Notification{}, err
	}
	return env.Decode()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, fmt.Sprintf(format, args...))
}
