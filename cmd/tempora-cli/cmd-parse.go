package main

import (
	"fmt"

	"github.com/tempora-db/tempora/pkg/temporal"
)

type parseCmd struct {
	Type    string `help:"base type of the literal" default:"f64"`
	Literal string `arg:"" help:"temporal literal, e.g. '[1.5@2001-01-01, 2.5@2001-01-02]'"`
}

func (cmd *parseCmd) Run(ctx *appContext) error {
	bt, err := baseTypeByName(cmd.Type)
	if err != nil {
		return err
	}
	loc, err := ctx.cfg.location()
	if err != nil {
		return err
	}
	tm, err := temporal.Parse(cmd.Literal, bt, loc)
	if err != nil {
		return err
	}
	fmt.Println(tm.String())
	return nil
}
