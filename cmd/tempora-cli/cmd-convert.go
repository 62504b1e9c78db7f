package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/tempora-db/tempora/pkg/mfjson"
	"github.com/tempora-db/tempora/pkg/temporal"
	"github.com/tempora-db/tempora/pkg/wkb"
)

type convertCmd struct {
	From     string `help:"input format: text, wkb, hexwkb, mfjson" default:"text"`
	To       string `help:"output format: text, wkb, hexwkb, mfjson" default:"hexwkb"`
	Type     string `help:"base type for text input" default:"f64"`
	Xdr      bool   `help:"emit big-endian wkb"`
	Extended bool   `help:"emit the extended (SRID-carrying) wkb variant"`
	Input    string `arg:"" optional:"" help:"input file; '-' or empty reads stdin"`
}

func (cmd *convertCmd) Run(ctx *appContext) error {
	data, err := cmd.read()
	if err != nil {
		return err
	}
	tm, err := cmd.decode(ctx, data)
	if err != nil {
		return err
	}
	return cmd.write(os.Stdout, tm)
}

func (cmd *convertCmd) read() ([]byte, error) {
	if cmd.Input == "" || cmd.Input == "-" {
		return io.ReadAll(os.Stdin)
	}
	b, err := os.ReadFile(cmd.Input)
	return b, errors.Wrap(err, "reading input")
}

func (cmd *convertCmd) decode(ctx *appContext, data []byte) (temporal.Temporal, error) {
	switch cmd.From {
	case "text":
		bt, err := baseTypeByName(cmd.Type)
		if err != nil {
			return nil, err
		}
		loc, err := ctx.cfg.location()
		if err != nil {
			return nil, err
		}
		return temporal.Parse(strings.TrimSpace(string(data)), bt, loc)
	case "wkb":
		return wkb.UnmarshalTemporal(data)
	case "hexwkb":
		return wkb.UnmarshalTemporalHex(strings.TrimSpace(string(data)))
	case "mfjson":
		return mfjson.Unmarshal(data)
	}
	return nil, errors.Errorf("unknown input format %q", cmd.From)
}

func (cmd *convertCmd) write(w io.Writer, tm temporal.Temporal) error {
	opts := wkb.Options{Order: wkb.NDR, Extended: cmd.Extended}
	if cmd.Xdr {
		opts.Order = wkb.XDR
	}
	switch cmd.To {
	case "text":
		_, err := fmt.Fprintln(w, tm.String())
		return err
	case "wkb":
		b, err := wkb.MarshalTemporal(tm, opts)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case "hexwkb":
		s, err := wkb.MarshalTemporalHex(tm, opts)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, s)
		return err
	case "mfjson":
		b, err := mfjson.Marshal(tm)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	return errors.Errorf("unknown output format %q", cmd.To)
}
