package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/jessevdk/go-flags"
	"github.com/viant/cid"
	"github.com/viant/cid/mock"
)

// Output is a resolution printed as a JSON line.
type Output struct {
	Scope    string `json:"scope"`
	ClientID string `json:"clientId,omitempty"`
	OptOut   bool   `json:"optOut,omitempty"`
	Error    string `json:"error,omitempty"`
}

func Run(args []string) error {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return err
	}
	level := slog.LevelInfo
	if options.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	serviceOptions, err := options.serviceOptions(ctx)
	if err != nil {
		return err
	}
	serviceOptions.Logger = logger
	if options.MockAddr != "" {
		shutdown, err := serveMock(options.MockAddr, serviceOptions, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}
	apiKey, err := serviceOptions.LoadAPIKey(ctx)
	if err != nil {
		return err
	}
	if apiKey == "" {
		return fmt.Errorf("API key was empty")
	}
	service, err := cid.New(ctx, serviceOptions)
	if err != nil {
		return err
	}
	defer service.Close()

	outputs := make([]Output, len(options.Scopes))
	var wg sync.WaitGroup
	for i, scope := range options.Scopes {
		wg.Add(1)
		go func(i int, scope string) {
			defer wg.Done()
			result, err := service.ResolveContext(ctx, scope, apiKey)
			outputs[i] = Output{Scope: scope, ClientID: result.ClientID, OptOut: result.OptOut}
			if err != nil {
				outputs[i].Error = err.Error()
			}
		}(i, scope)
	}
	wg.Wait()

	var failed int
	encoder := json.NewEncoder(stdout)
	for _, output := range outputs {
		if output.Error != "" {
			failed++
		}
		if err = encoder.Encode(output); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d resolutions failed", failed, len(outputs))
	}
	return nil
}

// serveMock starts the mock identity service on addr and points options at it.
func serveMock(addr string, options *cid.Options, logger *slog.Logger) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %v: %w", addr, err)
	}
	service := mock.NewIdentityService()
	service.URL = "http://" + listener.Addr().String()
	server := &http.Server{Handler: &mock.Handler{Service: service}}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("mock identity service stopped", "error", err)
		}
	}()
	options.URL = service.URL + mock.Path
	if options.APIKey == "" && options.APIKeySecret == "" {
		options.APIKey = "mock"
	}
	logger.Info("serving mock identity service", "url", options.URL)
	return func() { _ = server.Close() }, nil
}
