// Package downloaders maps a URL to the engine source that can read it.
package downloaders

import (
	"context"
	"strings"

	rawsthttp "github.com/tanq16/rawst/internal/downloaders/http"
	"github.com/tanq16/rawst/internal/downloaders/s3"
	"github.com/tanq16/rawst/internal/engine"
	"github.com/tanq16/rawst/internal/utils"
)

// NewResolver returns a resolver that shares one HTTP client across every
// HTTP(S) job it resolves.
func NewResolver(ctx context.Context, httpCfg utils.HTTPClientConfig, s3Profile string) engine.SourceResolver {
	client := utils.NewRawstHTTPClient(httpCfg)
	return func(link string) (engine.Source, error) {
		if strings.HasPrefix(link, "s3://") {
			src, err := s3.NewSource(ctx, link, s3Profile)
			if err != nil {
				return nil, err
			}
			return src, nil
		}
		src, err := rawsthttp.NewSource(link, client)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}
