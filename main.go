package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tournevent/sendcloud-bridge/internal/server"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "sendcloud-bridge",
	Short:   "Sendcloud fulfillment bridge - parcel API client and status webhook service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test the connection to every enabled provider and the status store",
	RunE:  runCheck,
}

var shippingMethodsCmd = &cobra.Command{
	Use:   "shipping-methods",
	Short: "List shipping methods of every enabled provider",
	RunE:  runShippingMethods,
}

func init() {
	shippingMethodsCmd.Flags().String("to", "", "destination country (ISO 3166-1 alpha-2)")
	shippingMethodsCmd.Flags().String("from", "", "origin country (ISO 3166-1 alpha-2)")

	rootCmd.AddCommand(serveCmd, checkCmd, shippingMethodsCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	app.logger.Info("Starting Sendcloud bridge",
		zap.Int("port", app.cfg.Port),
		zap.String("version", app.cfg.Version),
		zap.Strings("providers", app.registry.Names()),
	)

	// Start HTTP server
	srv := server.New(server.Config{
		Port:               app.cfg.Port,
		CORSAllowedOrigins: app.cfg.CORSAllowedOrigins,
	}, server.Deps{
		Registry: app.registry,
		Service:  app.service,
		Store:    app.store,
		Webhook:  app.reconciler,
		Logger:   app.logger,
	})
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	healthy := true
	for name, ok := range app.registry.PingAll(ctx) {
		fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", name, okLabel(ok))
		healthy = healthy && ok
	}
	storeErr := app.store.Ping(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", "store", okLabel(storeErr == nil))

	if !healthy || storeErr != nil {
		return fmt.Errorf("connection check failed")
	}
	return nil
}

func runShippingMethods(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	to, _ := cmd.Flags().GetString("to")
	from, _ := cmd.Flags().GetString("from")

	methods, err := app.service.ShippingOptions(ctx, &shipper.ShippingMethodsRequest{
		ToCountry:   to,
		FromCountry: from,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(methods)
}

func okLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAILED"
}
