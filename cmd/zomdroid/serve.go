package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/host"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/server"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
)

const shutdownTimeout = 10 * time.Second

var launchCmd = &cobra.Command{
	Use:   "launch <instance>",
	Short: "Provision, preflight and run an instance until it exits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serve, _ := cmd.Flags().GetBool("serve")
		return run(cmd, args[0], serve)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control API",
	Long: `Run the diagnostic control API. With --instance the instance is
launched as well.`,
	Example: `
  # API only
  zomdroid serve

  # API and a running game
  zomdroid serve --instance survival
  `,
	RunE: func(cmd *cobra.Command, args []string) error {
		instance, _ := cmd.Flags().GetString("instance")
		return run(cmd, instance, true)
	},
}

// run launches instance when set and serves the control API when serve is
// true. It returns once the game exits, or on SIGINT/SIGTERM.
func run(cmd *cobra.Command, instance string, serve bool) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	h, err := e.host()
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	var srv *server.Server
	if serve {
		srv = server.NewServer(e.cfg, h, e.registry)
		go func() {
			if err := srv.Run(); err != nil {
				errChan <- err
			}
		}()
	}

	var done <-chan struct{}
	if instance != "" {
		sess, err := h.Start(cmd.Context(), instance)
		if err != nil {
			closeAll(h, srv, e)
			return err
		}
		done = sess.Done()
	}

	var runErr error
	select {
	case sig := <-sigChan:
		e.logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))
	case err := <-errChan:
		runErr = fmt.Errorf("control API: %w", err)
	case <-done:
		runErr = sessionOutcome(h)
	}

	if err := closeAll(h, srv, e); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

// sessionOutcome turns a crashed session into an error
func sessionOutcome(h *host.Host) error {
	sess := h.Session()
	if sess == nil {
		return nil
	}
	st := sess.Status()
	if st.State == runtime.StateCrashed {
		return fmt.Errorf("game %s", st)
	}
	if st.Code != 0 {
		return fmt.Errorf("game %s", st)
	}
	return nil
}

func closeAll(h *host.Host, srv *server.Server, e *env) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errList []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errList = append(errList, err)
		}
	}
	if err := h.Close(ctx); err != nil {
		e.logger.Error("Shutdown incomplete", zap.Error(err))
		errList = append(errList, err)
	}
	return errors.Join(errList...)
}

func init() {
	launchCmd.Flags().Bool("serve", false, "Also run the control API")
	serveCmd.Flags().String("instance", "", "Instance to launch")
	rootCmd.AddCommand(launchCmd, serveCmd)
}
