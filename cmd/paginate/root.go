package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/asaidimu/go-paginate/core/columns"
	"github.com/asaidimu/go-paginate/core/pagination"
	"github.com/asaidimu/go-paginate/core/query"
	"github.com/asaidimu/go-paginate/gormdb"
	"github.com/asaidimu/go-paginate/sqldb"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	backendSQL  = "sql"
	backendGorm = "gorm"

	formatJSON = "json"
	formatYAML = "yaml"
)

type options struct {
	database    string
	from        string
	columnsFile string
	selects     []string
	filters     []string
	sorts       []string
	page        int
	perPage     int
	backend     string
	format      string
	verbose     bool
}

// newRootCmd builds the paginate command.
func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "paginate",
		Short: "Print one page of a SQLite query as a pagination envelope",
		Long: `Runs a filtered, ordered, paginated SELECT against a SQLite database and
prints the rows together with the total count and page metadata.

Filter and sort columns are logical keys. When a column whitelist is given
with --columns, only keys declared filterable or sortable there are accepted.`,
		Example: `  # Second page of users, 25 per page
  paginate --db app.db --from users --page 2 --per-page 25

  # Filter and sort against a whitelist
  paginate --db app.db --from "users u" --columns columns.yaml \
    --filter "email:LIKE:%@example.com" --filter "age:>=:18:AND" --sort created_at:desc`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(opts.verbose)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			return run(cmd.Context(), cmd.OutOrStdout(), opts, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.database, "db", "", "path to the SQLite database")
	flags.StringVar(&opts.from, "from", "", "table or FROM clause to select from")
	flags.StringVar(&opts.columnsFile, "columns", "", "YAML column whitelist")
	flags.StringSliceVar(&opts.selects, "select", nil, "result columns as raw SQL expressions (default *)")
	flags.StringArrayVar(&opts.filters, "filter", nil, "filter as column:condition:value[:AND|OR], repeatable")
	flags.StringArrayVar(&opts.sorts, "sort", nil, "sort as column[:asc|desc], repeatable")
	flags.IntVar(&opts.page, "page", pagination.DefaultPage, "page number, 1-based")
	flags.IntVar(&opts.perPage, "per-page", pagination.DefaultResultsPerPage, "results per page")
	flags.StringVar(&opts.backend, "backend", backendSQL, "query backend: sql or gorm")
	flags.StringVarP(&opts.format, "output", "o", formatJSON, "output format: json or yaml")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log rendered queries")

	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.TimeKey = "timestamp"

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func run(ctx context.Context, out io.Writer, opts *options, logger *zap.Logger) error {
	if opts.format != formatJSON && opts.format != formatYAML {
		return fmt.Errorf("unknown output format %q", opts.format)
	}

	var cols *columns.PaginationColumns
	if opts.columnsFile != "" {
		var err error
		if cols, err = columns.LoadFile(opts.columnsFile); err != nil {
			return err
		}
	}

	builder, closeDB, err := openBuilder(opts, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	params := pagination.ParametersFromValues(url.Values{
		pagination.QueryParamPage:    {strconv.Itoa(opts.page)},
		pagination.QueryParamPerPage: {strconv.Itoa(opts.perPage)},
		pagination.QueryParamSort:    opts.sorts,
		pagination.QueryParamFilter:  opts.filters,
	})
	if len(params.Filters()) != len(opts.filters) || len(params.Sorts()) != len(opts.sorts) {
		return fmt.Errorf("%w: malformed --filter or --sort", query.ErrValidation)
	}

	pagingOpts := []pagination.Option{
		pagination.WithParameters(params),
		pagination.WithLogger(logger),
	}
	if cols != nil {
		pagingOpts = append(pagingOpts, pagination.WithColumns(cols))
	}
	p := pagination.New(builder, pagingOpts...)
	if err := p.Apply(); err != nil {
		return err
	}

	envelope, err := p.Paginate(ctx)
	if err != nil {
		return err
	}
	return write(out, opts.format, envelope)
}

func openBuilder(opts *options, logger *zap.Logger) (query.QueryBuilder, func(), error) {
	switch opts.backend {
	case backendSQL:
		db, err := sql.Open("sqlite3", opts.database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		b := sqldb.New(db, opts.from, sqldb.WithColumns(opts.selects...), sqldb.WithLogger(logger))
		return b, func() { db.Close() }, nil

	case backendGorm:
		db, err := gorm.Open(sqlite.Open(opts.database), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to access database handle: %w", err)
		}
		b := gormdb.New(db.Table(opts.from), gormdb.WithColumns(opts.selects...), gormdb.WithLogger(logger))
		return b, func() { sqlDB.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", opts.backend)
	}
}

func write(out io.Writer, format string, envelope *pagination.Envelope) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(envelope); err != nil {
			return fmt.Errorf("failed to encode envelope: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(envelope); err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	return nil
}

// exitCode maps validation failures to 2 and everything else to 1.
func exitCode(err error) int {
	if errors.Is(err, query.ErrValidation) {
		return 2
	}
	return 1
}
