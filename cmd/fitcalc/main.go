// Command fitcalc evaluates fit files against a catalog and prints the
// resulting ship attributes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"fitcore/internal/catalog"
	"fitcore/internal/config"
	"fitcore/internal/core"
	"fitcore/internal/fitfile"
	"fitcore/internal/restriction"
	"fitcore/pkg/domain"
)

var exitFunc = os.Exit

// errBlocked is returned when at least one fit fails validation.
var errBlocked = errors.New("one or more fits are blocked by restrictions")

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	fits     []string
	attrs    string
	json     bool
	validate bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr, config.Load)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer, load func() (config.Config, error)) int {
	fs := flag.NewFlagSet("fitcalc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var fits stringList
	var opts options
	fs.Var(&fits, "fit", "fit file to evaluate (repeatable)")
	fs.StringVar(&opts.attrs, "attrs", "", "comma separated attribute ids or names to print")
	fs.BoolVar(&opts.json, "json", false, "print JSON instead of a table")
	fs.BoolVar(&opts.validate, "validate", false, "check resource and slot restrictions")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	opts.fits = append(fits, fs.Args()...)
	if len(opts.fits) == 0 {
		_, _ = fmt.Fprintln(stderr, "fitcalc: at least one -fit is required")
		return 2
	}
	cfg, err := load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "fitcalc: %v\n", err)
		return 2
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	if err := run(ctx, cfg, opts, stdout, logger); err != nil {
		logger.Error("fitcalc failed", "err", err)
		return 1
	}
	return 0
}

// report is the printed outcome of one fit.
type report struct {
	Name       string             `json:"name"`
	Ship       int32              `json:"ship"`
	Attributes map[string]float64 `json:"attributes"`
	Errors     map[string]string  `json:"errors,omitempty"`
	Violations []domain.Violation `json:"violations,omitempty"`
	Valid      *bool              `json:"valid,omitempty"`
	order      []string
}

func run(ctx context.Context, cfg config.Config, opts options, stdout io.Writer, logger *slog.Logger) error {
	cat, err := catalog.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	metrics, err := core.NewPrometheusRecorder(reg)
	if err != nil {
		return err
	}
	attrs, err := resolveAttrs(cat, opts.attrs)
	if err != nil {
		return err
	}

	reports := make([]report, len(opts.fits))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range opts.fits {
		g.Go(func() error {
			r, err := evaluate(gctx, cat, cfg, metrics, logger, path, attrs, opts.validate)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else if err := printTable(stdout, reports); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		if err := serveMetrics(ctx, cfg.MetricsAddr, reg, logger); err != nil {
			return err
		}
	}
	for _, r := range reports {
		if r.Valid != nil && !*r.Valid {
			return errBlocked
		}
	}
	return nil
}

func evaluate(ctx context.Context, cat *catalog.Catalog, cfg config.Config, metrics core.MetricsRecorder, logger *slog.Logger, path string, attrs []domain.AttrID, validate bool) (report, error) {
	doc, err := fitfile.LoadFile(path)
	if err != nil {
		return report{}, err
	}
	fitLogger := logger.With("fit", doc.Name)
	fit, err := doc.Build(cat,
		core.WithLogger(fitLogger),
		core.WithMetrics(metrics),
		core.WithMaxDepth(cfg.MaxCalcDepth),
	)
	if err != nil {
		return report{}, err
	}
	r := report{Name: doc.Name, Ship: doc.Ship, Attributes: make(map[string]float64)}
	ship := fit.Ship()
	if len(attrs) == 0 && ship.Type() != nil {
		for id := range ship.Type().Attributes {
			attrs = append(attrs, id)
		}
		slices.Sort(attrs)
	}
	for _, id := range attrs {
		label := attrLabel(cat, id)
		r.order = append(r.order, label)
		v, err := ship.Attributes().Get(id)
		if err != nil {
			if r.Errors == nil {
				r.Errors = make(map[string]string)
			}
			r.Errors[label] = err.Error()
			continue
		}
		r.Attributes[label] = v
	}
	if validate {
		tracker := restriction.NewTracker(fit)
		defer tracker.Close()
		res, err := restriction.NewDefaultEngine().Validate(ctx, tracker)
		var rv domain.RuleViolationError
		if err != nil && !errors.As(err, &rv) {
			return report{}, err
		}
		valid := err == nil
		r.Valid = &valid
		r.Violations = res.Violations
		if !valid {
			fitLogger.Warn("fit blocked", "err", err)
		}
	}
	fitLogger.Debug("fit evaluated", "holders", len(fit.Holders()))
	return r, nil
}

func resolveAttrs(cat *catalog.Catalog, list string) ([]domain.AttrID, error) {
	var out []domain.AttrID
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.ParseInt(part, 10, 32); err == nil {
			out = append(out, domain.AttrID(n))
			continue
		}
		def, ok := cat.AttributeByName(part)
		if !ok {
			return nil, fmt.Errorf("unknown attribute %q", part)
		}
		out = append(out, def.ID)
	}
	return out, nil
}

func attrLabel(cat *catalog.Catalog, id domain.AttrID) string {
	if def, err := cat.Attribute(id); err == nil && def.Name != "" {
		return def.Name
	}
	return strconv.Itoa(int(id))
}

func printTable(w io.Writer, reports []report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range reports {
		_, _ = fmt.Fprintf(tw, "fit %s (ship %d)\n", r.Name, r.Ship)
		for _, label := range r.order {
			if msg, ok := r.Errors[label]; ok {
				_, _ = fmt.Fprintf(tw, "  %s\terror: %s\n", label, msg)
				continue
			}
			_, _ = fmt.Fprintf(tw, "  %s\t%.2f\n", label, r.Attributes[label])
		}
		if r.Valid != nil {
			status := "valid"
			if !*r.Valid {
				status = "blocked"
			}
			_, _ = fmt.Fprintf(tw, "  restrictions\t%s\n", status)
			for _, v := range r.Violations {
				_, _ = fmt.Fprintf(tw, "  - %s\t%s\n", v.Rule, v.Message)
			}
		}
	}
	return tw.Flush()
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// serveMetrics exposes reg on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: metricsHandler(reg), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("serving metrics", "addr", addr)
	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
