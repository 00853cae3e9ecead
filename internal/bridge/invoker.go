package bridge

import (
	"context"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/packstream/internal/engine"
	"github.com/Iron-Ham/packstream/internal/errors"
)

// install points every compiler at fs and taps the bridge's after-emit
// handler. Tapping by name replaces the handler of an earlier run, so a
// cached runner never forwards into a finished stage.
func install(runner engine.Runner, fs afero.Fs, afterEmit func(*engine.Compilation)) {
	for _, c := range runner.Compilers() {
		c.SetOutputFileSystem(fs)
		c.Hooks().TapAfterEmit(PluginName, afterEmit)
	}
}

// invoke runs one build of every target.
func invoke(ctx context.Context, runner engine.Runner) (*engine.Result, error) {
	res, err := runner.Run(ctx)
	if err != nil {
		return nil, invocationError("run", err)
	}
	if res == nil {
		return nil, errors.NewEngineInvocationError("run", errors.New("engine returned no result"))
	}
	return res, nil
}

// watchRunner starts a watch. Callback errors are wrapped the same way as
// invoke's.
func watchRunner(ctx context.Context, runner engine.Runner, opts engine.WatchOptions, cb engine.Callback) (engine.Watching, error) {
	w, err := runner.Watch(ctx, opts, func(res *engine.Result, err error) {
		if err == nil && res == nil {
			err = errors.New("engine returned no result")
		}
		if err != nil {
			cb(nil, invocationError("watch", err))
			return
		}
		cb(res, nil)
	})
	if err != nil {
		return nil, invocationError("start watch", err)
	}
	return w, nil
}

func invocationError(op string, err error) error {
	if errors.IsPluginError(err) {
		return err
	}
	return errors.NewEngineInvocationError(op, err)
}
