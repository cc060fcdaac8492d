package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"request-tracker/internal/cancel"
	"request-tracker/internal/config"
	"request-tracker/internal/handler"
	"request-tracker/internal/logging"
	"request-tracker/internal/model"
	"request-tracker/internal/sources"
	"request-tracker/internal/tracker"
)

var (
	verbose bool
	cfg     config.Config
	logger  *zap.Logger

	listTab     string
	listStatus  string
	listPayment string
	listSearch  string
	listMore    int

	cancelYes bool
)

var rootCmd = &cobra.Command{
	Use:           "request-tracker",
	Short:         "Track a resident's certificate, business permit and service charge requests",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the request-tracking HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var listCmd = &cobra.Command{
	Use:   "list [resident-id]",
	Short: "List a resident's requests",
	Long: `Fetches all three request kinds for the resident and prints the
requested tab, filtered, sorted and windowed the way the mobile app shows it.

Example:
  request-tracker list R-0001 --tab business --status in_progress --more 2`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [resident-id] [kind] [id]",
	Short: "Cancel one of a resident's requests",
	Long: `Cancels a pending request. kind is personal, business or service_charge.
Without --yes nothing is sent.`,
	Args: cobra.ExactArgs(3),
	RunE: runCancel,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	listCmd.Flags().StringVar(&listTab, "tab", string(model.KindPersonal), "personal, business or service_charge")
	listCmd.Flags().StringVar(&listStatus, "status", model.FilterAll, "status filter")
	listCmd.Flags().StringVar(&listPayment, "payment", model.FilterAll, "payment filter")
	listCmd.Flags().StringVarP(&listSearch, "search", "q", "", "purpose search")
	listCmd.Flags().IntVar(&listMore, "more", 0, "load-more steps after the first window")

	cancelCmd.Flags().BoolVarP(&cancelYes, "yes", "y", false, "confirm the cancellation")

	rootCmd.AddCommand(serveCmd, listCmd, cancelCmd)
}

// wire builds the upstream fetcher and cancel dispatcher from cfg.
var wire = func() (tracker.AggregateFetcher, cancel.Dispatcher) {
	if cfg.UpstreamURL == "" {
		logger.Warn("TRACKER_UPSTREAM_URL is not set; upstream calls will fail")
	}
	client := sources.NewClient(sources.Options{
		BaseURL: cfg.UpstreamURL,
		Timeout: cfg.UpstreamTimeout,
		RPS:     cfg.UpstreamRPS,
		Logger:  logger,
	})
	registry := sources.NewRegistryFromConfig(client, cfg.Endpoints)
	return sources.NewFetcher(registry, cfg.TrustServiceChargeScope, logger), registry
}

func paging() tracker.Paging {
	return tracker.Paging{Initial: cfg.InitialPageSize, Increment: cfg.PageIncrement}
}

func runServe(cmd *cobra.Command, args []string) error {
	fetcher, dispatcher := wire()
	h := handler.New(fetcher, dispatcher, paging(), 3*cfg.UpstreamTimeout, logger)

	server := &fasthttp.Server{
		Name:         "request-tracker",
		Handler:      h.Handle,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3*cfg.UpstreamTimeout + 5*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("request tracker starting", zap.String("port", cfg.Port), zap.String("upstream", cfg.UpstreamURL))
		errCh <- server.ListenAndServe(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	tab, ok := model.ParseKind(listTab)
	if !ok {
		return fmt.Errorf("unknown tab %q", listTab)
	}
	fetcher, _ := wire()
	session := tracker.NewSession(args[0], fetcher, nil, paging(), logger)
	if err := session.Refresh(cmd.Context()); err != nil {
		return err
	}
	session.SetTab(tab)
	session.SetStatusFilter(listStatus)
	session.SetPaymentFilter(listPayment)
	session.SetSearch(listSearch)
	for i := 0; i < listMore; i++ {
		if !session.LoadMore() {
			break
		}
	}

	view, err := session.View()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPURPOSE\tSTATUS\tPAYMENT\tREQUESTED\tCANCELLABLE")
	for _, row := range session.Rows(view) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n", row.ID, row.Purpose, row.Status, row.Payment, row.RequestedAt, row.CanCancel)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "showing %d of %d (personal %d, business %d, service charge %d)\n",
		len(view.Result.Windowed), len(view.Result.Filtered),
		view.Counts[model.KindPersonal], view.Counts[model.KindBusiness], view.Counts[model.KindServiceCharge])
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	kind, ok := model.ParseKind(args[1])
	if !ok {
		return fmt.Errorf("unknown kind %q", args[1])
	}
	fetcher, dispatcher := wire()
	session := tracker.NewSession(args[0], fetcher, cancel.New(dispatcher, nil, logger), paging(), logger)
	if err := session.Refresh(cmd.Context()); err != nil {
		return err
	}
	out, err := session.Cancel(cmd.Context(), kind, args[2], cancelYes)
	if err != nil {
		return err
	}
	if !cancelYes {
		fmt.Fprintln(cmd.OutOrStdout(), "not confirmed; pass --yes to cancel")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", out.Kind, out.ID, out.Notification.Message)
	return nil
}
