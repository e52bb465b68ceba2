package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Bucket layout for prepared evidence artifacts.
const (
	DefaultBucket = "vicc-normalizers"
	DefaultRegion = "us-east-2"

	CancerHotspotsPrefix   = "evidence_normalization/cancer_hotspots/mutation_hotspots_"
	CBioPortalMutationsKey = "evidence_normalization/cbioportal/msk_impact_2017_mutations.csv.zip"
	CBioPortalCaseListsKey = "evidence_normalization/cbioportal/msk_impact_2017_case_lists.csv.zip"
)

// S3 retrieves prepared artifacts from the evidence bucket.
type S3 struct {
	bucket     string
	client     *s3.Client
	downloader *manager.Downloader
}

// NewS3 builds a client against bucket in the default region. Credentials
// come from the ambient AWS configuration.
func NewS3(ctx context.Context, bucket string) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(DefaultRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3{
		bucket:     bucket,
		client:     client,
		downloader: manager.NewDownloader(client),
	}, nil
}

// LatestKey returns the lexicographically greatest key under prefix. Artifact
// names embed a YYYYMMDD date, so sort order is date order.
func (c *S3) LatestKey(ctx context.Context, prefix string) (string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: &c.bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("list s3://%s/%s: %w", c.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("no objects under s3://%s/%s", c.bucket, prefix)
	}
	sort.Strings(keys)
	return keys[len(keys)-1], nil
}

// Download fetches key into destDir, keeping the object's base name. Zip
// archives are unpacked in place.
func (c *S3) Download(ctx context.Context, key, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", destDir, err)
	}
	dest := filepath.Join(destDir, filepath.Base(key))
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	_, err = c.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("download s3://%s/%s: %w", c.bucket, key, err)
	}
	if strings.HasSuffix(dest, ".zip") {
		if err := Unzip(dest, destDir); err != nil {
			return "", err
		}
		dest = strings.TrimSuffix(dest, ".zip")
	}
	return dest, nil
}
