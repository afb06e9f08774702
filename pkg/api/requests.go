package api

import (
	"io"
	"net/http"
	"time"

	"github.com/lam-tt/neural-memory/pkg/encoder"
	"github.com/lam-tt/neural-memory/pkg/reflex"
	"github.com/lam-tt/neural-memory/pkg/sentiment"
)

// encoderRequest builds an encoder.Request from a decoded HTTP DTO.
func encoderRequest(dto encodeRequestDTO, now time.Time) encoder.Request {
	return encoder.Request{
		Content:    dto.Content,
		Tags:       dto.Tags,
		MemoryType: dto.MemoryType,
		Metadata:   dto.Metadata,
		Lang:       sentiment.English,
		Now:        now,
	}
}

// queryRequest builds a reflex.Request from a raw query string.
func queryRequest(query string, now time.Time) reflex.Request {
	return reflex.Request{Query: query, Now: now}
}

// readAll drains a request body already bounded by withMiddleware's
// MaxBytesReader.
func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
