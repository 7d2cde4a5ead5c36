// Command phishguard-host is the Chrome native messaging host behind the
// PhishGuard extension. The extension suspends a recognized credential
// submission, ships a page snapshot here, and acts on the returned
// decision; MEDIUM-risk warnings stay parked until the user's choice
// arrives as a second message.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/Hussein-Mazeh/PhishGuard/intercept"
	"github.com/Hussein-Mazeh/PhishGuard/internal/config"
	"github.com/Hussein-Mazeh/PhishGuard/internal/history"
	"github.com/Hussein-Mazeh/PhishGuard/policy"
)

const version = "0.1.0"

func main() {
	dir := defaultDataDir()
	if len(os.Args) > 2 && os.Args[1] == "-dir" {
		dir = os.Args[2]
	}

	h, err := newHost(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "phishguard-host: %v\n", err)
		os.Exit(1)
	}
	defer h.close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		h.close()
		os.Exit(0)
	}()

	reader := bufio.NewReaderSize(os.Stdin, bufferSize)
	writer := bufio.NewWriterSize(os.Stdout, bufferSize)

	for {
		payload, err := readFrame(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			fmt.Fprintf(os.Stderr, "phishguard-host: read error: %v\n", err)
			return
		}

		resp := h.handleRequest(payload)

		if err := writeFrame(writer, resp); err != nil {
			fmt.Fprintf(os.Stderr, "phishguard-host: write error: %v\n", err)
			return
		}
	}
}

func defaultDataDir() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "phishguard")
	}
	return "./phishguard-data"
}

// host holds the engine wiring plus the warnings awaiting a user choice.
type host struct {
	paths config.Paths
	store *history.Store

	mu          sync.Mutex
	settings    config.Settings
	interceptor *intercept.Interceptor
	pending     map[string]*policy.Decision
}

func newHost(dir string) (*host, error) {
	paths := config.Paths{Dir: dir}
	settings, err := config.Load(paths)
	if err != nil {
		// Corrupt settings degrade to defaults instead of refusing to start.
		fmt.Fprintf(os.Stderr, "phishguard-host: settings unreadable, using defaults: %v\n", err)
		settings = config.Default()
	}

	store, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	h := &host{
		paths:    paths,
		store:    store,
		settings: settings,
		pending:  make(map[string]*policy.Decision),
	}
	if err := h.rebuild(); err != nil {
		store.Close()
		return nil, err
	}
	return h, nil
}

// rebuild rewires the interceptor after a settings change. Pending
// warnings survive; they belong to decisions already made.
func (h *host) rebuild() error {
	it, err := intercept.New(h.settings, h.store, intercept.WithNotifier(stderrNotifier{}))
	if err != nil {
		return fmt.Errorf("build interceptor: %w", err)
	}
	h.interceptor = it
	return nil
}

func (h *host) close() {
	if h.store != nil {
		_ = h.store.Close()
	}
}

// stderrNotifier is the host-side stand-in for the toast UI: native
// messaging is request/response, so failure notices land on stderr where
// the browser collects host logs.
type stderrNotifier struct{}

func (stderrNotifier) ResumeFailed(url string, err error) {
	fmt.Fprintf(os.Stderr, "phishguard-host: resume failed for %s: %v\n", url, err)
}
