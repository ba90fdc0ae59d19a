package cmd

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServeHTTPDrainsInFlightRequestOnCancel(t *testing.T) {
	c, cancel := context.WithCancel(zerolog.Nop().WithContext(context.Background()))
	defer cancel()

	started := make(chan struct{})
	release := make(chan struct{})
	requestErr := make(chan error, 1)
	addr := freeAddr(t)
	server := &http.Server{
		Addr:        addr,
		BaseContext: detachedBaseContext(c),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-release
			requestErr <- r.Context().Err()
			w.WriteHeader(http.StatusOK)
		}),
	}

	serveDone := make(chan error, 1)
	go func() { serveDone <- serveHTTP(c, server, 5*time.Second) }()

	status := make(chan int, 1)
	go func() {
		for range 100 {
			resp, err := http.Get("http://" + addr + "/")
			if err != nil {
				time.Sleep(20 * time.Millisecond)
				continue
			}
			resp.Body.Close()
			status <- resp.StatusCode
			return
		}
		status <- 0
	}()

	<-started
	cancel()
	close(release)

	assert.Equal(t, http.StatusOK, <-status)
	assert.NoError(t, <-requestErr)
	select {
	case err := <-serveDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveHTTP did not return after shutdown")
	}
}

func TestServeHTTPReturnsWhenListenerFails(t *testing.T) {
	c := zerolog.Nop().WithContext(context.Background())

	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	server := &http.Server{
		Addr:        occupied.Addr().String(),
		BaseContext: detachedBaseContext(c),
		Handler:     http.NotFoundHandler(),
	}

	serveDone := make(chan error, 1)
	go func() { serveDone <- serveHTTP(c, server, time.Second) }()

	select {
	case err := <-serveDone:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "occured while server is running")
	case <-time.After(5 * time.Second):
		t.Fatal("serveHTTP blocked after the listener failed")
	}
}
