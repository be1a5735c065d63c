package refinement

import (
	"context"

	"github.com/cs-au-dk/cegar/analysis/arg"

	log "github.com/sirupsen/logrus"
)

// Delegating tries its refiners in order until one of them makes progress
// or finds a counterexample.
type Delegating struct {
	delegates []Refiner
}

var _ Refiner = (*Delegating)(nil)

func NewDelegating(delegates ...Refiner) *Delegating {
	return &Delegating{delegates}
}

func (d *Delegating) Refine(ctx context.Context, reached *arg.ReachedSet) (res Result, err error) {
	res = Result{Outcome: NoProgress}
	for i, r := range d.delegates {
		if res, err = r.Refine(ctx, reached); err != nil || res.Outcome != NoProgress {
			return
		}
		log.WithField("delegate", i).Debug("Refiner made no progress, trying next")
	}
	return
}
