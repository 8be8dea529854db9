package bundle

import (
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spbnick/hdag-sub001/nodesource"
)

// progressSource wraps a nodesource.Source, advancing a progress bar by
// one unit per node pulled. Total is unknown ahead of time for a single-
// pass pull source, so the bar runs in spinner mode (-1 total).
type progressSource struct {
	nodesource.Source
	bar *progressbar.ProgressBar
}

func (p *progressSource) NextNode() ([]byte, nodesource.TargetSource, error) {
	hash, targets, err := p.Source.NextNode()
	if err == nil {
		_ = p.bar.Add(1)
	}
	return hash, targets, err
}

// IngestWithProgress is IngestNodeSeq with a console progress spinner,
// supplementing the plain driver for callers loading large sources
// interactively. w is typically os.Stderr; pass io.Discard to silence it
// (equivalent to plain IngestNodeSeq plus the minor per-node Add
// overhead).
func (b *Bundle) IngestWithProgress(src nodesource.Source, opts IngestOptions, w io.Writer, description string) error {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Close()
	return b.IngestNodeSeq(&progressSource{Source: src, bar: bar}, opts)
}
