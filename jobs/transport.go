package jobs

import (
	"context"

	"github.com/bio-mcp/bio-mcp-blast/blast"
)

// Transport talks to one remote job service.
//
// Status returns the service's own status word; DecodeStatus maps it to a
// Status and reports false for words it does not know. Keeping the two apart
// leaves all knowledge of the wire format in the transport.
type Transport interface {
	Name() string
	Submit(ctx context.Context, req JobRequest) (Submission, error)
	Status(ctx context.Context, id string) (string, error)
	DecodeStatus(raw string) (Status, bool)
	Result(ctx context.Context, id string) (*blast.Report, error)
}

// Canceller is implemented by transports that can abort a job
type Canceller interface {
	Cancel(ctx context.Context, id string) error
}
