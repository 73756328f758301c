package capture

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	JPEGMediaType     = "image/jpeg"
	JPEGDataURIPrefix = "data:" + JPEGMediaType + ";base64,"
)

// Artifact is an encoded still image.
type Artifact struct {
	MediaType string
	Data      []byte
}

// DataURI renders the artifact as a base64 data URI.
func (a Artifact) DataURI() string {
	mediaType := a.MediaType
	if mediaType == "" {
		mediaType = JPEGMediaType
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// ParseDataURI decodes a base64 data URI into an Artifact.
func ParseDataURI(uri string) (Artifact, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return Artifact{}, fmt.Errorf("not a data uri")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Artifact{}, fmt.Errorf("data uri has no payload separator")
	}
	mediaType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return Artifact{}, fmt.Errorf("data uri is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to decode data uri payload: %w", err)
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}
	return Artifact{MediaType: mediaType, Data: data}, nil
}
