package strictjson

import (
	"context"
	"io"

	"github.com/ai8future/strictjson-go/errors"
)

// ParseReader buffers a JSON payload from r and runs the standard pipeline
// on the result. With MaxBodyBytes configured, reading stops one byte past
// the limit and the size check rejects the payload without parsing it, so
// an oversized stream is never fully consumed. Read failures surface as
// invalid-JSON rejections wrapping the underlying error.
func (p *Parser) ParseReader(ctx context.Context, r io.Reader) (any, error) {
	src := r
	if p.opts.MaxBodyBytes > 0 {
		src = io.LimitReader(r, p.opts.MaxBodyBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.InvalidJSON("reading payload: " + err.Error()).WithCause(err)
	}
	return p.ParseCtx(ctx, data)
}
