package refinement

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cs-au-dk/cegar/analysis/arg"
	"github.com/cs-au-dk/cegar/utils/dot"

	log "github.com/sirupsen/logrus"
)

// exporter dumps refinement artifacts for debugging. Failures are logged and
// otherwise ignored.
type exporter struct {
	dir string
}

func (ex exporter) enabled() bool {
	return ex.dir != ""
}

func (ex exporter) create(name string) (*os.File, bool) {
	if err := os.MkdirAll(ex.dir, 0755); err != nil {
		log.WithError(err).Warn("Could not create export directory")
		return nil, false
	}
	f, err := os.Create(filepath.Join(ex.dir, name))
	if err != nil {
		log.WithError(err).WithField("file", name).Warn("Could not create export file")
		return nil, false
	}
	return f, true
}

func (ex exporter) interpolants(round, idx int, path arg.Path, itps Interpolants) {
	if !ex.enabled() {
		return
	}
	f, ok := ex.create(fmt.Sprintf("round-%03d-path-%02d.itp", round, idx))
	if !ok {
		return
	}
	defer f.Close()

	for i, e := range path.Edges {
		itp := "-"
		if i < len(itps) {
			itp = itps[i].String()
		}
		if _, err := fmt.Fprintf(f, "%3d  %-40s  %s\n", i, e.Label(), itp); err != nil {
			log.WithError(err).Warn("Could not write interpolants")
			return
		}
	}
}

func (ex exporter) graph(name string, g *dot.DotGraph) {
	if !ex.enabled() || g == nil {
		return
	}
	f, ok := ex.create(name)
	if !ok {
		return
	}
	defer f.Close()

	if err := g.WriteDot(f); err != nil {
		log.WithError(err).WithField("file", name).Warn("Could not write graph")
	}
}
