// Package fetch implements the URI resource fetcher collaborator contract
// (spec §6 "URI resource fetcher"): resolving a URI to a stable local path,
// downloading when necessary and verifying an expected digest.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/digest"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
	"github.com/sirupsen/logrus"
)

// Fetcher resolves a URI to a local path, as required by C7.
type Fetcher interface {
	Fetch(ctx context.Context, uri, extensionHint string, expectedDigest *digest.Digest) (string, bool, error)
}

// HTTPFetcher fetches file: URIs as direct path references and http(s):
// URIs by downloading into a scratch directory, naming the destination
// <scratchRoot>/url/<scheme>/<urlFileName>-<sha1OfUri>.<extensionHint>
// (spec §6).
type HTTPFetcher struct {
	Client      *http.Client
	ScratchRoot string
	Log         *logrus.Logger
}

// NewHTTPFetcher constructs a fetcher rooted at scratchRoot, using client
// for non-file schemes. A nil client defaults to http.DefaultClient.
func NewHTTPFetcher(client *http.Client, scratchRoot string, log *logrus.Logger) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{Client: client, ScratchRoot: scratchRoot, Log: log}
}

// Fetch resolves uri. The returned bool reports whether the resource was
// found; a false with a nil error means the remote resource does not exist
// (spec §6: "non-existent remote resource yields empty").
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURI, extensionHint string, expectedDigest *digest.Digest) (string, bool, error) {
	parsed, err := url.Parse(rawURI)
	if err != nil {
		return "", false, &errs.ResolutionError{What: rawURI, Cause: err}
	}

	if parsed.Scheme == "" || parsed.Scheme == "file" {
		path := parsed.Path
		if path == "" {
			path = rawURI
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return "", false, nil
			}
			return "", false, &errs.IoError{Path: path, Op: "stat", Cause: err}
		}
		if expectedDigest != nil {
			if err := verifyDigest(path, *expectedDigest); err != nil {
				return "", false, err
			}
		}
		return path, true, nil
	}

	destPath, err := f.destinationFor(parsed, rawURI, extensionHint)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(destPath); err == nil {
		return destPath, true, nil
	}

	found, err := f.download(ctx, rawURI, destPath)
	if err != nil || !found {
		return "", found, err
	}

	if expectedDigest != nil {
		if err := verifyDigest(destPath, *expectedDigest); err != nil {
			return "", false, err
		}
	}
	return destPath, true, nil
}

func (f *HTTPFetcher) destinationFor(parsed *url.URL, rawURI, extensionHint string) (string, error) {
	uriDigest := digest.OfBytes([]byte(rawURI))
	baseName := filepath.Base(parsed.Path)
	if baseName == "" || baseName == "." || baseName == "/" {
		baseName = "resource"
	}
	name := baseName + "-" + uriDigest.Hex()
	if extensionHint != "" {
		name += "." + strings.TrimPrefix(extensionHint, ".")
	}
	return filepath.Join(f.ScratchRoot, "url", parsed.Scheme, name), nil
}

func (f *HTTPFetcher) download(ctx context.Context, rawURI, destPath string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURI, nil)
	if err != nil {
		return false, &errs.ResolutionError{What: rawURI, Cause: err}
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return false, &errs.ResolutionError{What: rawURI, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 300 {
		return false, &errs.ResolutionError{What: rawURI, Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return false, &errs.IoError{Path: destPath, Op: "mkdir", Cause: err}
	}

	tmp := destPath + ".download"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return false, &errs.IoError{Path: tmp, Op: "write", Cause: err}
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return false, &errs.IoError{Path: tmp, Op: "write", Cause: err}
	}
	out.Close()

	if err := os.Rename(tmp, destPath); err != nil {
		return false, &errs.IoError{Path: destPath, Op: "rename", Cause: err}
	}
	return true, nil
}

func verifyDigest(path string, expected digest.Digest) error {
	f, err := os.Open(path)
	if err != nil {
		return &errs.IoError{Path: path, Op: "read", Cause: err}
	}
	defer f.Close()

	actual, err := digest.OfReader(f)
	if err != nil {
		return &errs.IoError{Path: path, Op: "read", Cause: err}
	}
	if !actual.Equal(expected) {
		return &errs.ResolutionError{What: path, Cause: fmt.Errorf("digest mismatch: expected %s, got %s", expected, actual)}
	}
	return nil
}
