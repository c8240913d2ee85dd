package session

import (
	"context"

	"github.com/jwulff/livenotes/internal/recognizer"
)

// Remote adapts a recognizer.Client to Recognizer.
type Remote struct {
	*recognizer.Client
}

// Open dials the transcription stream.
func (r Remote) Open(ctx context.Context) (Stream, error) {
	s, err := r.Client.Open(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}
