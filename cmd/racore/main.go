// Package main runs the tracking/control core as a standalone process.
package main

import (
	"context"

	"github.com/edaniels/golog"
	goutils "go.viam.com/utils"

	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/control"
	"go.robocupssl.dev/racore/processor"
)

func main() {
	goutils.ContextualMain(mainWithArgs, golog.NewDevelopmentLogger("racore"))
}

// Arguments are the process's command-line flags.
type Arguments struct {
	// TickPeriodMS is parsed but not used: the processor always ticks at
	// processor.DefaultTickPeriod.
	TickPeriodMS int `flag:"tick-period-ms,default=10,usage=tick period in milliseconds (not used)"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := goutils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	clk := clock.New()
	cfg := defaultEvaluatorConfig()

	p := processor.New(logger, clk, cfg)
	p.Start()
	defer p.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case status := <-p.StatusOut():
			logger.Debugw("world status",
				"time", status.Time,
				"yellow", len(status.World.Yellow),
				"blue", len(status.World.Blue),
				"haveBall", status.World.HaveBall,
			)
		case batch := <-p.RadioOut():
			logger.Debugw("radio batch", "time", batch.Time, "commands", len(batch.Commands))
		}
	}
}

// defaultEvaluatorConfig returns conservative gains suitable for a first
// bring-up; tuned gains are expected to come from a deployment-specific
// configuration source once one exists.
func defaultEvaluatorConfig() control.EvaluatorConfig {
	gains := control.AxisGains{
		FeedforwardGain: 1,
		Kp:              4,
		IntegralMin:     -1,
		IntegralMax:     1,
		MaxAcc:          3,
		MaxVel:          3,
	}
	return control.EvaluatorConfig{Strafe: gains, Forward: gains, Angular: gains}
}
