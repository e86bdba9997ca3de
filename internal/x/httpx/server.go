package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Serve runs s until ctx is canceled or an error occurs.
//
// When ctx is canceled the server is shut down gracefully, allowing in-flight
// requests to complete. The caller must never call s.Shutdown() or s.Close().
func Serve(
	ctx context.Context,
	lis net.Listener,
	s *http.Server,
) error {
	// Create a context that is guaranteed to be cancelled when this function
	// exits. This prevents a leak in the goroutine below when the server exits
	// prematurely.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)

	// Stop the server when the ctx is canceled from the outside.
	go func() {
		<-ctx.Done()
		done <- s.Shutdown(context.WithoutCancel(ctx))
	}()

	err := s.Serve(lis)

	// If the server exits with ErrServerClosed, it is because Shutdown() is
	// called, which only happens when the context is canceled.
	if errors.Is(err, http.ErrServerClosed) {
		if shutdownErr := <-done; shutdownErr != nil {
			return shutdownErr
		}

		return ctx.Err()
	}

	return err
}
