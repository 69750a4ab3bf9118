// Package archive exports audit groups as JSON Lines objects to an
// S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/trainerauth/internal/common"
	"github.com/dmitrijs2005/trainerauth/internal/server/audit"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
)

const contentType = "application/x-ndjson"

// ObjectPutter is the slice of the S3 client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Settings describe the target bucket and credentials.
// An empty Endpoint uses the AWS default resolver.
type Settings struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Archiver struct {
	bucket string
	client ObjectPutter
	now    func() time.Time
}

// New builds an Archiver. With an empty bucket the archiver stays disabled
// and no AWS configuration is loaded.
func New(ctx context.Context, s Settings) (*Archiver, error) {
	if s.Bucket == "" {
		return &Archiver{now: time.Now}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(s.Region)}
	if s.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(s.Bucket, client), nil
}

func NewWithClient(bucket string, client ObjectPutter) *Archiver {
	return &Archiver{bucket: bucket, client: client, now: time.Now}
}

func (a *Archiver) Enabled() bool {
	return a.bucket != "" && a.client != nil
}

// Archive uploads every entry of g, one JSON object per line, and returns
// the object key.
func (a *Archiver) Archive(ctx context.Context, g *audit.Groups) (string, error) {
	if !a.Enabled() {
		return "", common.ErrArchiveDisabled
	}

	body, err := encode(g)
	if err != nil {
		return "", err
	}

	key := ObjectKey(a.now(), uuid.NewString())
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	return key, nil
}

// ObjectKey lays objects out as audit/YYYY/MM/DD/<id>.jsonl in UTC.
func ObjectKey(t time.Time, id string) string {
	return fmt.Sprintf("audit/%s/%s.jsonl", t.UTC().Format("2006/01/02"), id)
}

type line struct {
	Group string `json:"group"`
	*models.AuditEntry
}

func encode(g *audit.Groups) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	groups := []struct {
		name    string
		entries []*models.AuditEntry
	}{
		{"recentLogins", g.RecentLogins},
		{"failedAttempts", g.FailedAttempts},
		{"accountLockouts", g.AccountLockouts},
		{"passwordChanges", g.PasswordChanges},
	}

	for _, grp := range groups {
		for _, e := range grp.entries {
			if err := enc.Encode(line{Group: grp.name, AuditEntry: e}); err != nil {
				return nil, err
			}
		}
	}

	return buf.Bytes(), nil
}
