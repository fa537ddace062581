package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/evantbyrne/tideline"
	"github.com/evantbyrne/tideline/sqlitedialect"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func addCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Resolve one page of a table and print it as JSON",
		Args:  cobra.NoArgs,
		RunE:  page}
	addSourceFlags(cmd)
	cmd.Flags().Int("limit", 20, "page size")
	cmd.Flags().Int("offset", 0, "offset relative to the anchor, negative for newer rows")
	cmd.Flags().String("anchor", "", "JSON encoded anchor from a previous page (default: page load)")
	cmd.Flags().Int("count-loaded", 0, "rows the client holds relative to the anchor")
	cmd.Flags().Int("count-new-limit", 0, "lookahead for newer rows (default: limit)")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve pages of a table as JSON over HTTP",
		Args:  cobra.NoArgs,
		RunE:  serve}
	addSourceFlags(cmd)
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Int("limit", 20, "default page size")
	root.AddCommand(cmd)
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("db", "", "SQLite database file")
	cmd.Flags().StringP("table", "t", "", "table name")
	cmd.Flags().StringP("sort", "s", "", "ordering chain, e.g. -date_created,-id")
	cmd.Flags().StringArrayP("filter", "f", nil, "base filter as column=value, repeatable")
	cmd.Flags().Bool("naive", false, "select the whole table and window rows in memory")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("table")
}

func flagString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}

func flagInt(cmd *cobra.Command, name string) int {
	value, _ := cmd.Flags().GetInt(name)
	return value
}

func flagBool(cmd *cobra.Command, name string) bool {
	value, _ := cmd.Flags().GetBool(name)
	return value
}

func loadConfig(cmd *cobra.Command) (tideline.Config, error) {
	config := tideline.Config{}
	if path := flagString(cmd, "config"); path != "" {
		var err error
		if config, err = tideline.LoadConfig(path); err != nil {
			return config, err
		}
	}
	config.Logger = newLogger(cmd)
	return config, nil
}

// openPaginator opens the database and builds a paginator over the table.
// The caller closes the returned database.
func openPaginator(cmd *cobra.Command) (*sql.DB, *tideline.Paginator[map[string]any], error) {
	config, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open("sqlite", flagString(cmd, "db"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "open database")
	}

	source := tideline.Source[map[string]any](db, flagString(cmd, "table"))
	source.Dialect = sqlitedialect.SqliteDialect{}
	source.Naive = flagBool(cmd, "naive")

	filters, _ := cmd.Flags().GetStringArray("filter")
	for _, filter := range filters {
		column, value, ok := cutFilter(filter)
		if !ok {
			db.Close()
			return nil, nil, errors.Errorf("invalid filter '%s', expected column=value", filter)
		}
		source.Filter(column, "=", value)
	}

	return db, tideline.PaginateWith[map[string]any](source, config), nil
}

// cutFilter splits column=value. Values that parse as a JSON scalar are bound
// as that scalar, anything else as a string.
func cutFilter(filter string) (string, any, bool) {
	column, raw, ok := strings.Cut(filter, "=")
	if !ok || column == "" {
		return "", nil, false
	}
	if value, err := tideline.ParseAnchor(raw); err == nil && !value.IsNull() {
		return column, value.Value(), true
	}
	return column, raw, true
}

func page(cmd *cobra.Command, args []string) error {
	db, paginator, err := openPaginator(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	anchor, err := tideline.ParseAnchor(flagString(cmd, "anchor"))
	if err != nil {
		return err
	}
	request := tideline.PageRequest{
		Anchor:        anchor,
		CountLoaded:   flagInt(cmd, "count-loaded"),
		CountNewLimit: flagInt(cmd, "count-new-limit"),
		Limit:         flagInt(cmd, "limit"),
		Offset:        flagInt(cmd, "offset"),
		Orderings:     tideline.ParseOrderings(strings.Split(flagString(cmd, "sort"), ",")...),
	}

	result, err := paginator.Resolve(cmd.Context(), request).Collect()
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return errors.Wrap(encoder.Encode(result), "write page")
}

func serve(cmd *cobra.Command, args []string) error {
	db, paginator, err := openPaginator(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/", tideline.ListJson(paginator, flagInt(cmd, "limit")))
	server := &http.Server{
		Addr:              flagString(cmd, "addr"),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdown)
	}()

	paginator.Config.Logger.Info().Str("addr", server.Addr).Str("table", flagString(cmd, "table")).Msg("serving pages")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}
