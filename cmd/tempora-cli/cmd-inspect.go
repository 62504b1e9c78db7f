package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/tempora-db/tempora/pkg/temporal"
	"github.com/tempora-db/tempora/pkg/wkb"
)

type inspectCmd struct {
	Type    string `help:"base type of the literal" default:"f64"`
	Literal string `arg:"" help:"temporal literal"`
}

func (cmd *inspectCmd) Run(ctx *appContext) error {
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

	encoded, err := wkb.MarshalTemporal(tm, wkb.Options{Order: wkb.NDR})
	if err != nil {
		return err
	}

	rows := [][]string{
		{"subtype", tm.Subtype().String()},
		{"base type", tm.BaseType().String()},
		{"interpolation", tm.Interp().String()},
		{"instants", fmt.Sprintf("%d", tm.NumInstants())},
		{"period", tm.Period().String()},
		{"wkb size", humanize.Bytes(uint64(len(encoded)))},
		{"hash", fmt.Sprintf("%016x", temporal.Hash(tm))},
	}
	if ss, ok := tm.(temporal.SequenceSet); ok {
		rows = append(rows, []string{"sequences", fmt.Sprintf("%d", ss.NumSequences())})
	}
	if box, err := temporal.NewTBox(tm); err == nil {
		rows = append(rows, []string{"value span", box.ValueSpan.String()})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	for _, r := range rows {
		table.Append(r)
	}
	table.Render()
	return nil
}
