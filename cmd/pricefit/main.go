// Command pricefit trains a linear model of house price from living area,
// serves it over HTTP and answers one-off predictions from a saved model.
//
// Usage:
//
//	pricefit serve   [-config config.yaml]
//	pricefit train   [-config config.yaml] [-csv kc_house_data.csv] [-out models]
//	pricefit predict [-config config.yaml] [-store models] -x 2000
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/YuminosukeSato/pricefit/config"
	"github.com/YuminosukeSato/pricefit/pkg/errors"
	"github.com/YuminosukeSato/pricefit/server"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "pricefit:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: pricefit <serve|train|predict> [flags]")
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return errors.New("missing command")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "serve":
		return runServe(ctx, args[1:])
	case "train":
		return runTrain(ctx, args[1:], stdout)
	case "predict":
		return runPredict(ctx, args[1:], stdout)
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return nil
	default:
		usage(os.Stderr)
		return errors.Newf("unknown command %q", args[0])
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	addr := fs.String("addr", "", "listen address (overrides http.addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// pick up a model saved by an earlier run
	if _, err := a.session.Load(ctx); err != nil && !errors.Is(err, errors.ErrNotFound) {
		a.logger.Warn("Loading saved model failed", err)
	}
	a.watch(ctx)

	srv, err := server.New(a.session, cfg.HTTP, a.logger)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

func runTrain(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	csvPath := fs.String("csv", "", "CSV file with sqft_living and price columns (overrides data.csv)")
	out := fs.String("out", "", "directory to save the model in (file backend)")
	noSave := fs.Bool("no-save", false, "train and report without saving")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if *csvPath != "" {
		cfg.Data.CSV = *csvPath
	}
	if *out != "" {
		cfg.Store.Backend = config.BackendFile
		cfg.Store.Path = *out
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.session.Train(ctx)
	if err != nil {
		return err
	}
	p := message.NewPrinter(language.AmericanEnglish)
	p.Fprintf(stdout, "Training set loss:   %.6f\n", rep.FinalTrainLoss)
	p.Fprintf(stdout, "Validation set loss: %.6f\n", rep.FinalValLoss)
	p.Fprintf(stdout, "Testing set loss:    %.6f\n", rep.TestLoss)
	p.Fprintf(stdout, "R²:                  %.4f\n", rep.R2)
	p.Fprintf(stdout, "price = %.2f * sqft_living + %.2f\n", rep.Slope, rep.Intercept)

	if *noSave {
		return nil
	}
	savedAt, err := a.session.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Saved %q at %s\n", a.session.Key(), savedAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}

func runPredict(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	dir := fs.String("store", "", "model directory (file backend)")
	x := fs.Float64("x", 0, "living area in square feet")
	if err := fs.Parse(args); err != nil {
		return err
	}
	seen := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "x" {
			seen = true
		}
	})
	if !seen {
		return errors.New("-x is required")
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if *dir != "" {
		cfg.Store.Backend = config.BackendFile
		cfg.Store.Path = *dir
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.Load(ctx); err != nil {
		return err
	}
	y, err := a.session.Predict(*x)
	if err != nil {
		return err
	}
	p := message.NewPrinter(language.AmericanEnglish)
	p.Fprintf(stdout, "The predicted house price is $%.2f\n", y)
	return nil
}
