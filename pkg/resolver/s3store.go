package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/request"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store implements RemoteStore against a bucket laid out as
// <prefix>/<groupId>/<artifactId>/<version>/<fileName>, the same object-key
// convention the teacher's artifact manager uses for compiled language
// output bundles, here repurposed for source artifacts.
type S3Store struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

// NewS3Store wires an S3 client into a RemoteStore.
func NewS3Store(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{Client: client, Bucket: bucket, Prefix: prefix}
}

func (s *S3Store) key(c request.ArtifactCoordinate) string {
	artifactType := c.Type
	if artifactType == "" {
		artifactType = "jar"
	}
	fileName := c.ArtifactID + "-" + c.Version
	if c.Classifier != "" {
		fileName += "-" + c.Classifier
	}
	fileName += "." + artifactType
	return filepath.ToSlash(filepath.Join(s.Prefix, c.GroupID, c.ArtifactID, c.Version, fileName))
}

// Materialize downloads the object naming coordinate into destPath.
func (s *S3Store) Materialize(ctx context.Context, coordinate request.ArtifactCoordinate, destPath string) error {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(coordinate)),
	})
	if err != nil {
		return fmt.Errorf("fetch %s: %w", s.key(coordinate), err)
	}
	defer out.Body.Close()

	f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.ReadFrom(out.Body)
	return err
}
