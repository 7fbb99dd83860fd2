package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"shotnamer/internal/services"
	"shotnamer/internal/services/ollama"
)

const serviceCheckTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckService lists the models served at baseURL. The returned models are
// nil when the check fails.
func CheckService(ctx context.Context, lister ModelLister, baseURL string) ([]ollama.Model, Result) {
	const name = "Captioning service"
	if lister == nil {
		return nil, Result{Name: name, Detail: "not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	models, err := lister.ListModels(checkCtx)
	if err != nil {
		return nil, Result{Name: name, Detail: fmt.Sprintf("%s (%s)", baseURL, summarizeServiceError(err))}
	}
	return models, Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d models)", baseURL, len(models))}
}

// CheckModel reports whether model is pulled. A missing model is advisory:
// the service may pull it on first use.
func CheckModel(models []ollama.Model, model string) Result {
	const name = "Caption model"
	if ollama.HasModel(models, model) {
		return Result{Name: name, Passed: true, Detail: model}
	}
	return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("%s not found (run 'ollama pull %s')", model, model)}
}

// EnsureReady is the startup connectivity check. An unreachable service is
// returned as services.ErrServiceUnavailable; a missing model is reported
// through the returned Result only.
func EnsureReady(ctx context.Context, lister ModelLister, baseURL, model string) (Result, error) {
	models, service := CheckService(ctx, lister, baseURL)
	if !service.Passed {
		return service, services.Wrap(services.ErrServiceUnavailable, "preflight", "list models", service.Detail, nil)
	}
	return CheckModel(models, model), nil
}

func summarizeServiceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (service unreachable)"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "unreachable (is 'ollama serve' running?)"
	}
	return err.Error()
}
