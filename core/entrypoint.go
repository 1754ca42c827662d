package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path"
	"reflect"
	"runtime"
	"syscall"
	"time"

	"github.com/encodeous/strand/perf"
	"github.com/encodeous/strand/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

var ErrShutdown = errors.New("received shutdown signal")

func setupDebugging(addr string) {
	if addr == "" {
		return
	}
	go func() {
		log.Println(http.ListenAndServe(addr, nil))
	}()
}

func NewLogger(cfg state.LocalCfg, logLevel slog.Level) (*slog.Logger, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			TimeFormat:   "15:04:05",
			CustomPrefix: "strand",
		}))

	if cfg.LogPath != "" {
		err := os.MkdirAll(path.Dir(cfg.LogPath), 0700)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// Start runs the daemon until it is interrupted or a channel it dialled goes away.
func Start(cfg state.LocalCfg, logLevel slog.Level) error {
	logger, err := NewLogger(cfg, logLevel)
	if err != nil {
		return err
	}
	setupDebugging(cfg.DebugAddr)

	s, err := New(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	s.Log.Info("Strand has been initialized. To gracefully exit, send SIGINT or Ctrl+C.")

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case <-c:
			s.Cancel(ErrShutdown)
		case <-s.Context.Done():
			return
		}
	}()

	err = MainLoop(s)
	if err != nil {
		return err
	}
	cause := context.Cause(s.Context)
	if errors.Is(cause, ErrShutdown) || errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}

// New sets up the state and both channels. Any failure here is fatal, nothing is left running.
func New(ctx context.Context, cfg state.LocalCfg, logger *slog.Logger) (*state.State, error) {
	ctx, cancel := context.WithCancelCause(ctx)

	s := &state.State{
		Modules: make(map[string]state.NyModule),
		Env: &state.Env{
			DispatchChannel: make(chan func(s *state.State) error, state.DispatchQueueSize),
			LocalCfg:        cfg,
			Context:         ctx,
			Cancel:          cancel,
			Log:             logger,
		},
	}

	s.Log.Info("init modules")
	err := initModules(s)
	if err != nil {
		cancel(err)
		Stop(s)
		return nil, err
	}
	s.Log.Info("init modules complete")
	return s, nil
}

func initModules(s *state.State) error {
	modules := []state.NyModule{
		&StrandRouter{},
		&Forwarder{},
	}

	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return fmt.Errorf("init %s: %w", reflect.TypeOf(module).String(), err)
		}
	}
	return nil
}

// MainLoop is the only goroutine that touches the route table. It wakes for dispatched events or after
// WaitTimeout, whichever comes first, and checks the pulse after every wake.
func MainLoop(s *state.State) error {
	s.Log.Info("ready to serve")
	s.Started.Store(true)
	r := Get[*StrandRouter](s)
	wait := time.NewTimer(s.WaitTimeout)
	defer wait.Stop()
	for {
		select {
		case fun := <-s.DispatchChannel:
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.SlowDispatch {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(s.DispatchChannel))
			}
		case <-wait.C:
		case <-s.Context.Done():
			goto endLoop
		}
		if s.Context.Err() != nil {
			goto endLoop
		}
		r.Pulse(s, time.Now())
		wait.Reset(s.WaitTimeout)
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
	Stop(s)
	return nil
}

func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	s.Log.Info("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", moduleName, "error", err)
		}
	}
	s.Log.Info("stopped")
}
