package fetch

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/digest"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/fsutil"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client is the subset of *s3.Client an S3Fetcher needs.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher decorates a Fetcher with support for s3:// scheme URIs
// (spec §6 "URI resource fetcher"), downloading objects into the same
// scratch/url/<scheme>/... layout as the HTTP path and delegating every
// other scheme to Next.
type S3Fetcher struct {
	Client      S3Client
	ScratchRoot string
	Next        Fetcher
}

// NewS3Fetcher wires an S3 client in front of next for any non-s3 scheme.
func NewS3Fetcher(client S3Client, scratchRoot string, next Fetcher) *S3Fetcher {
	return &S3Fetcher{Client: client, ScratchRoot: scratchRoot, Next: next}
}

func (f *S3Fetcher) Fetch(ctx context.Context, rawURI, extensionHint string, expectedDigest *digest.Digest) (string, bool, error) {
	if !strings.HasPrefix(rawURI, "s3://") {
		return f.Next.Fetch(ctx, rawURI, extensionHint, expectedDigest)
	}

	rest := strings.TrimPrefix(rawURI, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", false, &errs.ConfigurationError{Reason: "malformed s3 uri: " + rawURI}
	}
	bucket, key := parts[0], parts[1]

	uriDigest := digest.OfBytes([]byte(rawURI))
	name := filepath.Base(key) + "-" + uriDigest.Hex()
	if extensionHint != "" {
		name += "." + strings.TrimPrefix(extensionHint, ".")
	}
	destPath := filepath.Join(f.ScratchRoot, "url", "s3", name)

	if ok, err := fsutil.IsRegularFile(destPath); err != nil {
		return "", false, err
	} else if ok {
		return destPath, true, nil
	}

	out, err := f.Client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return "", false, nil
		}
		return "", false, &errs.ResolutionError{What: rawURI, Cause: err}
	}
	defer out.Body.Close()

	if err := fsutil.EnsureDir(filepath.Dir(destPath)); err != nil {
		return "", false, err
	}
	if err := fsutil.WriteReaderToFile(destPath, out.Body); err != nil {
		return "", false, err
	}

	if expectedDigest != nil {
		if err := verifyDigest(destPath, *expectedDigest); err != nil {
			return "", false, err
		}
	}
	return destPath, true, nil
}
