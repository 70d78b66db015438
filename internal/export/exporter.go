package export

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"gsc-insights/internal/report"
)

// maxParallelUploads bounds concurrent uploads of one export.
const maxParallelUploads = 4

// Exporter routes destinations to the sink registered for their scheme.
// Local files are always supported.
type Exporter struct {
	sinks  map[string]Sink
	logger *slog.Logger
}

// NewExporter creates an exporter with the local sink registered.
func NewExporter(logger *slog.Logger) *Exporter {
	return &Exporter{
		sinks:  map[string]Sink{SchemeFile: LocalSink{}},
		logger: logger,
	}
}

// Register sets the sink for scheme, replacing any previous one.
func (e *Exporter) Register(scheme string, s Sink) {
	e.sinks[scheme] = s
}

// Supports reports whether a sink handles scheme.
func (e *Exporter) Supports(scheme string) bool {
	_, ok := e.sinks[scheme]
	return ok
}

// Export writes t to every destination in parallel. Destinations are all
// parsed before anything is written, so a bad URI uploads nothing.
func (e *Exporter) Export(ctx context.Context, t *report.Table, uris ...string) error {
	if len(uris) == 0 {
		return fmt.Errorf("no export destination")
	}
	locs := make([]Location, len(uris))
	for i, uri := range uris {
		loc, err := Parse(uri)
		if err != nil {
			return err
		}
		if !e.Supports(loc.Scheme) {
			return fmt.Errorf("no credentials configured for %s:// destinations", loc.Scheme)
		}
		locs[i] = loc
	}

	encoded := map[Format][]byte{}
	for _, loc := range locs {
		f := FormatFor(loc.Key)
		if _, ok := encoded[f]; ok {
			continue
		}
		body, err := encodeBytes(t, f)
		if err != nil {
			return err
		}
		encoded[f] = body
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for _, loc := range locs {
		f := FormatFor(loc.Key)
		g.Go(func() error {
			if err := e.sinks[loc.Scheme].Put(gctx, loc, encoded[f], f.ContentType()); err != nil {
				return err
			}
			e.logger.Info("exported", "destination", loc.String(), "rows", t.Len(), "format", f)
			return nil
		})
	}
	return g.Wait()
}
