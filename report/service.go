package report

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/branding"
	"github.com/lvillar/psyreport/collect"
	"github.com/lvillar/psyreport/log"
	"github.com/lvillar/psyreport/pageops"
	"github.com/lvillar/psyreport/render"
	"github.com/lvillar/psyreport/schema"
)

// DefaultMaxConcurrent bounds concurrent renders when NewService is given
// a non-positive limit.
const DefaultMaxConcurrent = 4

// Request is one report to render.
type Request struct {
	Template *schema.Template
	Report   collect.RawReport
	Branding branding.Config
	Options  []psyreport.Option
}

// Service renders reports with a bounded number of renders in flight.
type Service struct {
	resolver render.AssetResolver
	sem      *semaphore.Weighted
	defaults []psyreport.Option
}

// NewService returns a Service resolving images through resolver. defaults
// apply to every request before the request's own options.
func NewService(resolver render.AssetResolver, maxConcurrent int, defaults ...psyreport.Option) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Service{
		resolver: resolver,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		defaults: defaults,
	}
}

// Render collects and renders a single report.
func (s *Service) Render(ctx context.Context, req Request) ([]byte, error) {
	if err := schema.Validate(req.Template); err != nil {
		return nil, err
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	rec := collect.Collect(req.Template, req.Report)
	opts := append(append([]psyreport.Option{}, s.defaults...), req.Options...)
	out, err := ComposeAndRender(ctx, req.Template, rec, req.Branding, s.resolver, opts...)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"template": req.Template.ID, "bytes": len(out)}).Debug("report: rendered")
	return out, nil
}

// RenderBatch renders reqs concurrently and merges the documents, in
// request order, into one PDF. The first failure cancels the batch.
func (s *Service) RenderBatch(ctx context.Context, reqs []Request) ([]byte, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("report: empty batch")
	}

	docs := make([][]byte, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			doc, err := s.Render(gctx, req)
			if err != nil {
				return fmt.Errorf("report %d: %w", i+1, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(docs) == 1 {
		return docs[0], nil
	}

	var buf bytes.Buffer
	if err := pageops.Merge(&buf, docs...); err != nil {
		return nil, psyreport.NewRenderError("RenderBatch", err)
	}
	return buf.Bytes(), nil
}
