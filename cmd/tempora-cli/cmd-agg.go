package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/tempora-db/tempora/pkg/pool"
	"github.com/tempora-db/tempora/pkg/tagg"
	"github.com/tempora-db/tempora/pkg/temporal"
)

type aggCmd struct {
	Reducer  string   `help:"reducer: tmin, tmax, tsum, tcount, tavg, tand, tor" default:"tsum"`
	Type     string   `help:"base type of the input literals" default:"f64"`
	Parallel bool     `help:"aggregate files concurrently and combine the partial states"`
	Files    []string `arg:"" help:"input files, one temporal literal per line"`
}

func (cmd *aggCmd) Run(ctx *appContext) error {
	reducer, err := tagg.ParseReducer(cmd.Reducer)
	if err != nil {
		return err
	}
	bt, err := baseTypeByName(cmd.Type)
	if err != nil {
		return err
	}
	loc, err := ctx.cfg.location()
	if err != nil {
		return err
	}

	aggFile := func(path string) (*tagg.State, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", path)
		}
		defer f.Close()

		state := tagg.NewState(reducer)
		scanner := bufio.NewScanner(f)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}
			tm, err := temporal.Parse(text, bt, loc)
			if err != nil {
				return nil, errors.Wrapf(err, "%s:%d", path, line)
			}
			if err := state.Transition(tm); err != nil {
				return nil, errors.Wrapf(err, "%s:%d", path, line)
			}
		}
		return state, scanner.Err()
	}

	var states []*tagg.State
	if cmd.Parallel && len(cmd.Files) > 1 {
		p := pool.NewPool(&ctx.cfg.Pool, ctx.logger)
		defer p.Shutdown()

		payloads := make([]interface{}, len(cmd.Files))
		for i, f := range cmd.Files {
			payloads[i] = f
		}
		results, err := p.RunJobs(payloads, func(payload interface{}) (interface{}, error) {
			return aggFile(payload.(string))
		})
		if err != nil {
			return err
		}
		for _, r := range results {
			states = append(states, r.(*tagg.State))
		}
	} else {
		for _, f := range cmd.Files {
			state, err := aggFile(f)
			if err != nil {
				return err
			}
			states = append(states, state)
		}
	}

	final := states[0]
	for _, s := range states[1:] {
		if err := final.Combine(s); err != nil {
			return err
		}
	}
	result, err := final.Final()
	if err != nil {
		return err
	}
	if result == nil {
		level.Warn(ctx.logger).Log("msg", "no input values")
		return nil
	}
	fmt.Println(result.String())
	return nil
}
