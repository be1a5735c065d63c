package main

import (
	"os"

	"github.com/cs-au-dk/cegar/analysis/cegar"
	"github.com/cs-au-dk/cegar/analysis/refinement"
	"github.com/cs-au-dk/cegar/utils"

	log "github.com/sirupsen/logrus"
)

var (
	opts = utils.Opts()
	task = opts.Task()
)

func main() {
	utils.ParseArgs()
	path := utils.MakePath()

	pl, err := load(path)
	if err != nil {
		log.Fatalln(err)
	}

	cfg, err := config()
	if err != nil {
		log.Fatalln(err)
	}

	if !task.IsVerify() {
		secondaryTasks(pl, cfg)
		return
	}

	res, err := pl.verify(cfg)
	if err != nil {
		if refinement.IsCancellation(err) {
			log.Warnf("Verification aborted after %v: %v", opts.Timeout(), err)
			res.Verdict, res.Reason = cegar.Unknown, "timeout"
		} else {
			log.Errorln(err)
		}
	}

	report(os.Stdout, pl.prog, res)

	switch {
	case err != nil && !refinement.IsCancellation(err):
		os.Exit(2)
	case res.Verdict == cegar.Unsafe:
		os.Exit(1)
	}
}
