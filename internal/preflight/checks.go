package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"folio/internal/config"
)

const ntfyCheckTimeout = 5 * time.Second

// CheckIdentity verifies that bearer tokens can be issued and verified.
func CheckIdentity(cfg config.Identity) Result {
	const name = "Token secret"
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return Result{Name: name, Detail: "missing (set FOLIO_JWT_SECRET)"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("issuer %s, audience %s", cfg.Issuer, cfg.Audience)}
}

// CheckS3 verifies that the S3 artifact backend is fully configured. It does
// not contact the bucket.
func CheckS3(cfg config.Storage) Result {
	const name = "S3 storage"
	if strings.TrimSpace(cfg.S3Bucket) == "" {
		return Result{Name: name, Detail: "missing bucket"}
	}
	detail := fmt.Sprintf("s3://%s/%s (%s)", cfg.S3Bucket, strings.Trim(cfg.S3Prefix, "/"), cfg.S3Region)
	if cfg.S3Endpoint != "" {
		detail += " via " + cfg.S3Endpoint
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckNtfy verifies that the ntfy server hosting topic reports healthy.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	u, err := url.Parse(strings.TrimSpace(topic))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Result{Name: name, Detail: "topic must be a full URL"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, ntfyCheckTimeout)
	defer cancel()

	health := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/v1/health"}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, health.String(), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	client := &http.Client{Timeout: ntfyCheckTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "access denied"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
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

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (server unreachable)"
	}
	return err.Error()
}
