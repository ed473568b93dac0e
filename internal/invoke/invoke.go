package invoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/bartekus/cadence/internal/execx"
	"github.com/bartekus/cadence/internal/logging"
)

// ErrReportMissing is returned when the procedure exits cleanly without
// leaving the report behind.
var ErrReportMissing = errors.New("analysis finished without producing the report")

// Invoker runs the external analysis procedure once.
type Invoker struct {
	Command []string
	Dir     string
	// DotEnv entries are added to the child environment when the file exists.
	DotEnv  string
	Report  string
	Timeout time.Duration
	Out     io.Writer
	Log     *log.Logger
}

// Invoke runs the procedure synchronously. A non-zero exit is returned as an
// *execx.ExitError carrying the exit code.
func (i *Invoker) Invoke(ctx context.Context) (execx.Result, error) {
	logger := logging.OrDiscard(i.Log)

	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	env, err := i.environ()
	if err != nil {
		return execx.Result{}, err
	}

	logger.Info("running analysis", "command", i.Command, "dir", i.Dir)
	start := time.Now()
	res, err := execx.Run(ctx, execx.Cmd{Dir: i.Dir, Args: i.Command, Env: env, Stream: i.Out})
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("analysis interrupted: %w", errors.Join(ctx.Err(), err))
		}
		return res, err
	}
	logger.Info("analysis finished", "elapsed", time.Since(start).Round(time.Millisecond))

	if i.Report != "" {
		if _, err := os.Stat(i.resolve(i.Report)); err != nil {
			return res, fmt.Errorf("%w: %s", ErrReportMissing, i.Report)
		}
	}
	return res, nil
}

func (i *Invoker) environ() ([]string, error) {
	env := os.Environ()
	if i.DotEnv == "" {
		return env, nil
	}

	path := i.resolve(i.DotEnv)
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return env, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	for k, v := range values {
		env = append(env, k+"="+v)
	}
	return env, nil
}

func (i *Invoker) resolve(p string) string {
	if filepath.IsAbs(p) || i.Dir == "" {
		return p
	}
	return filepath.Join(i.Dir, p)
}
