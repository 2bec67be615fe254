package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/noah-isme/unitprice/internal/common"
	"github.com/noah-isme/unitprice/internal/presets"
	"github.com/noah-isme/unitprice/internal/pricing"
	"github.com/noah-isme/unitprice/internal/render"
	"github.com/noah-isme/unitprice/internal/units"
)

const (
	exitOK    = 0
	exitCalc  = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("unitcalc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		baseQty   = fs.String("base-qty", "", "base quantity, e.g. 1")
		baseUnit  = fs.String("base-unit", "kg", "base unit: kg, g, piece or dozen")
		basePrice = fs.String("base-price", "", "price of the base quantity in rupees")
		value     = fs.String("value", "", "desired quantity, or rupee amount when -unit is currency")
		unit      = fs.String("unit", "g", "desired unit: kg, g, piece, dozen or currency")
		format    = fs.String("format", "text", "output format: text, html or json")
		preset    = fs.String("preset", "", "run a preset instead of the flags (example1, example2)")
		list      = fs.Bool("list-presets", false, "print the available presets and exit")
		file      = fs.String("presets-file", "", "YAML file with extra presets")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	catalog := presets.NewCatalog()
	if *file != "" {
		extra, err := presets.LoadFile(*file)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
		catalog.Replace(extra)
	}

	if *list {
		for _, p := range catalog.List() {
			fmt.Fprintf(stdout, "%s\t%s\n", p.ID, p.Title)
		}
		return exitOK
	}

	f, err := render.ParseFormat(*format, render.FormatText)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	var in pricing.Input
	if *preset != "" {
		p, err := catalog.Get(*preset)
		if err != nil {
			fmt.Fprintf(stderr, "unknown preset %q\n", *preset)
			return exitUsage
		}
		in = p.Input()
	} else {
		in = pricing.Input{
			BaseQuantity: common.ParseNumber(*baseQty),
			BaseUnit:     units.Resolve(*baseUnit),
			BasePrice:    common.ParseNumber(*basePrice),
			DesiredValue: common.ParseNumber(*value),
			DesiredUnit:  units.Resolve(*unit),
		}
	}

	res, err := pricing.Calculate(in)
	if err != nil {
		out, rerr := render.Error(err, in.DesiredUnit, f)
		if rerr != nil {
			fmt.Fprintln(stderr, rerr)
			return exitCalc
		}
		fmt.Fprintln(stdout, out.Body)
		return exitCalc
	}
	out, err := render.Result(res, f)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitCalc
	}
	fmt.Fprintln(stdout, out.Body)
	return exitOK
}
