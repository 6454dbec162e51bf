// Command quote computes a discounted cart offline from a YAML or JSON file.
//
//	quote -file cart.yaml [-rate 1] [-cap 0.2]
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/noah-isme/toko-discount/internal/common"
	"github.com/noah-isme/toko-discount/internal/discount"
	"github.com/noah-isme/toko-discount/internal/obs"
	"github.com/noah-isme/toko-discount/internal/pricing"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := obs.NewLoggerTo(stderr, "console", "info")

	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "cart file (.yaml, .yml or .json)")
	rate := fs.Float64("rate", discount.DefaultPointConversionRate, "money value of one loyalty point")
	capRatio := fs.Float64("cap", discount.DefaultPointCapRatio, "share of the cart total points may cover")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(stderr, "quote: -file is required")
		fs.Usage()
		return 2
	}

	policy := discount.PointPolicy{ConversionRate: *rate, CapRatio: *capRatio}
	if err := policy.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid point policy")
		return 1
	}
	items, discounts, err := loadCart(*file, pricing.NewBinder(nil))
	if err != nil {
		evt := logger.Error().Err(err).Str("file", *file)
		var invalid *invalidCartError
		if errors.As(err, &invalid) {
			evt = evt.Str("code", common.CodeValidationFailed)
		}
		evt.Msg("load cart")
		return 1
	}

	res, err := pricing.NewEngine(policy).Compute(items, discounts)
	if err != nil {
		logger.Error().Err(err).Str("code", pricing.ErrorCode(err)).Msg("compute discounts")
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error().Err(err).Msg("write result")
		return 1
	}
	return 0
}
