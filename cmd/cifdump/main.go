// Command cifdump prints categories and rows out of an mmCIF or
// BinaryCIF file, without interpreting any domain semantics: it only
// ever prints what the dispatcher delivers.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ciflib/cif/cif"
	"github.com/ciflib/cif/metrics"
	"github.com/ciflib/cif/source"
)

var log *zap.Logger

func main() {
	root := &cobra.Command{
		Use:   "cifdump",
		Short: "Dump categories and rows from an mmCIF or BinaryCIF file",
	}

	root.PersistentFlags().String("format", "text", "input format: text|binary")
	root.PersistentFlags().String("source", "file", "source kind: file|s3")
	root.PersistentFlags().String("bucket", "", "s3 bucket (source=s3)")
	root.PersistentFlags().Bool("gzip", false, "treat input as gzip-compressed regardless of name")
	root.PersistentFlags().String("metrics-addr", "", "if set, serve Prometheus metrics on this address while running")
	root.PersistentFlags().Bool("verbose", false, "log unknown-category/keyword notifications at warn level")

	_ = viper.BindPFlags(root.PersistentFlags())
	viper.SetEnvPrefix("CIFDUMP")
	viper.AutomaticEnv()

	root.AddCommand(newCategoriesCmd(), newDumpCmd())

	cobra.OnInitialize(func() {
		level := zapcore.InfoLevel
		if viper.GetBool("verbose") {
			level = zapcore.DebugLevel
		}
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		l, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		log = l
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openArg resolves the single positional argument (a path, or an S3 key
// when --source=s3) into a stream, applying gzip handling either way.
func openArg(arg string) (io.ReadCloser, error) {
	switch viper.GetString("source") {
	case "s3":
		bucket := viper.GetString("bucket")
		if bucket == "" {
			return nil, fmt.Errorf("--bucket is required when --source=s3")
		}
		return source.FromS3(context.Background(), bucket, arg)
	case "file":
		if viper.GetBool("gzip") {
			return source.OpenGzip(arg)
		}
		return source.Open(arg)
	default:
		return nil, fmt.Errorf("unknown --source %q", viper.GetString("source"))
	}
}

// newReader builds a cif.Reader over rc per --format, optionally wiring
// Prometheus instrumentation when --metrics-addr is set.
func newReader(rc io.Reader) (*cif.Reader, *metrics.Collector) {
	var r *cif.Reader
	switch viper.GetString("format") {
	case "binary":
		r = cif.NewBinaryReader(rc)
	default:
		r = cif.NewTextReader(rc)
	}

	var collector *metrics.Collector
	if addr := viper.GetString("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		collector = metrics.NewCollector(reg)
		metrics.Instrument(r, collector)
		go serveMetrics(addr, reg)
	}

	r.SetUnknownCategoryCallback(func(category string, line int) {
		if viper.GetBool("verbose") {
			log.Warn("unknown category", zap.String("category", category), zap.Int("line", line))
		}
	})
	r.SetUnknownKeywordCallback(func(category, keyword string, line int) {
		if viper.GetBool("verbose") {
			log.Warn("unknown keyword", zap.String("category", category), zap.String("keyword", keyword), zap.Int("line", line))
		}
	})
	return r, collector
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", zap.Error(err))
	}
}

// newCategoriesCmd lists every category name referenced in the file.
// Nothing is registered, so every reference is, by construction, an
// unknown category; the dispatcher never checks keywords inside a
// category it doesn't recognize, so keyword names aren't observable
// this way — only "dump" (which registers the keywords it wants) sees
// those.
func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories <path>",
		Short: "List every category name referenced in the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := openArg(args[0])
			if err != nil {
				return err
			}
			defer rc.Close()

			r, _ := newReader(rc)
			var order []string
			seen := map[string]bool{}
			r.SetUnknownCategoryCallback(func(category string, line int) {
				if !seen[category] {
					seen[category] = true
					order = append(order, category)
				}
			})

			for {
				more, err := r.ReadBlock()
				if err != nil {
					return err
				}
				if !more {
					break
				}
			}
			for _, cat := range order {
				fmt.Println(cat)
			}
			return nil
		},
	}
}

func newDumpCmd() *cobra.Command {
	var categoryFlag, keywordsFlag string
	cmd := &cobra.Command{
		Use:   "dump <path>",
		Short: "Print every row of one registered category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if categoryFlag == "" {
				return fmt.Errorf("--category is required")
			}
			keywords := strings.Split(keywordsFlag, ",")
			if keywordsFlag == "" {
				return fmt.Errorf("--keywords is required")
			}

			rc, err := openArg(args[0])
			if err != nil {
				return err
			}
			defer rc.Close()

			r, collector := newReader(rc)
			cat := r.RegisterCategory(categoryFlag, func(c *cif.Category) error {
				fields := make([]string, 0, len(keywords))
				for _, k := range keywords {
					s := c.Keyword(k)
					if s == nil {
						fields = append(fields, "<unregistered>")
						continue
					}
					switch {
					case s.Omitted:
						fields = append(fields, ".")
					case s.Unknown:
						fields = append(fields, "?")
					case !s.InFile:
						fields = append(fields, "<absent>")
					default:
						fields = append(fields, s.String())
					}
				}
				if collector != nil {
					collector.ObserveRow(categoryFlag)
				}
				fmt.Println(strings.Join(fields, "\t"))
				return nil
			}, nil, nil, nil, nil)
			for _, k := range keywords {
				r.RegisterKeyword(cat, k, cif.CellString)
			}

			for {
				more, err := r.ReadBlock()
				if err != nil {
					return err
				}
				if !more {
					break
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&categoryFlag, "category", "", "category name, e.g. _entry")
	cmd.Flags().StringVar(&keywordsFlag, "keywords", "", "comma-separated keyword names")
	return cmd
}
