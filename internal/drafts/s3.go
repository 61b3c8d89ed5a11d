package drafts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/example/maskedit/internal/logger"
)

// s3API is the subset of the S3 client used by S3Store.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps one JSON object per draft under a key prefix. A PutObject
// replaces the whole object, so readers see either the old draft or the new
// one. Writers in this process are serialized; writers in other processes are
// last-write-wins.
type S3Store struct {
	api    s3API
	bucket string
	prefix string
	log    *zap.Logger
	mu     sync.Mutex
}

// NewS3 loads the default AWS configuration (environment, shared config,
// instance role) and returns a store writing to bucket/prefix.
func NewS3(ctx context.Context, bucket, prefix string, log *zap.Logger) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3Store(s3.NewFromConfig(cfg), bucket, prefix, log)
}

func newS3Store(api s3API, bucket, prefix string, log *zap.Logger) (*S3Store, error) {
	if bucket == "" {
		return nil, errors.New("s3 store needs a bucket")
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{api: api, bucket: bucket, prefix: prefix, log: logger.Named(log, "drafts.s3")}, nil
}

func (s *S3Store) key(id string) string { return s.prefix + id + ".json" }

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (s *S3Store) read(ctx context.Context, id string) (Draft, error) {
	if err := checkID(id); err != nil {
		return Draft{}, ErrNotFound
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if isNotFound(err) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("get draft %s: %w", id, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Draft{}, fmt.Errorf("read draft %s: %w", id, err)
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft %s: %w", id, err)
	}
	if d.Masks == nil {
		d.Masks = map[Category]string{}
	}
	return d, nil
}

func (s *S3Store) write(ctx context.Context, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", d.ID, err)
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(d.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put draft %s: %w", d.ID, err)
	}
	return nil
}

func (s *S3Store) exists(ctx context.Context, id string) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if isNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *S3Store) Add(ctx context.Context, d Draft) (Draft, error) {
	out, err := s.AddMany(ctx, []Draft{d})
	if err != nil {
		return Draft{}, err
	}
	return out[0], nil
}

func (s *S3Store) AddMany(ctx context.Context, ds []Draft) ([]Draft, error) {
	if err := ValidateBatch(ds); err != nil {
		return nil, err
	}
	ts := now()
	out := make([]Draft, 0, len(ds))
	for _, d := range ds {
		p, err := prepare(d, ts)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range out {
		if err := s.write(ctx, d); err != nil {
			for _, done := range out[:i] {
				_ = s.delete(ctx, done.ID)
			}
			s.log.Error("add drafts", zap.Error(err))
			return nil, err
		}
	}
	return out, nil
}

func (s *S3Store) Get(ctx context.Context, id string) (Draft, error) {
	return s.read(ctx, id)
}

func (s *S3Store) ids(ctx context.Context) ([]string, error) {
	var ids []string
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket), Prefix: aws.String(s.prefix)}
	for {
		out, err := s.api.ListObjectsV2(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("list drafts: %w", err)
		}
		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			id, ok := strings.CutSuffix(name, ".json")
			if !ok || strings.Contains(id, "/") {
				continue
			}
			ids = append(ids, id)
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		in.ContinuationToken = out.NextContinuationToken
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *S3Store) List(ctx context.Context) ([]Draft, error) {
	ids, err := s.ids(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Draft, 0, len(ids))
	for _, id := range ids {
		d, err := s.read(ctx, id)
		if err != nil {
			s.log.Warn("skipping unreadable draft", zap.String("id", id), zap.Error(err))
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *S3Store) Update(ctx context.Context, d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, err := s.read(ctx, d.ID)
	if err != nil {
		return err
	}
	d.CreatedAt = old.CreatedAt
	p, err := prepare(d, now())
	if err != nil {
		return err
	}
	return s.write(ctx, p)
}

func (s *S3Store) delete(ctx context.Context, id string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	return err
}

func (s *S3Store) Remove(ctx context.Context, id string) error {
	if checkID(id) != nil {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return s.delete(ctx, id)
}

func (s *S3Store) Clear(ctx context.Context) error {
	ids, err := s.ids(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if err := s.delete(ctx, id); err != nil {
			return fmt.Errorf("delete draft %s: %w", id, err)
		}
	}
	return nil
}

func (s *S3Store) GetMask(ctx context.Context, id string, c Category) (string, bool, error) {
	if err := checkCategory(c); err != nil {
		return "", false, err
	}
	d, err := s.read(ctx, id)
	if err != nil {
		return "", false, err
	}
	v, ok := d.Mask(c)
	return v, ok, nil
}

func (s *S3Store) SetMask(ctx context.Context, id string, c Category, encoded string) error {
	if err := checkCategory(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.read(ctx, id)
	if err != nil {
		return err
	}
	if encoded == "" {
		delete(d.Masks, c)
	} else {
		d.Masks[c] = encoded
	}
	d.UpdatedAt = now()
	return s.write(ctx, d)
}

func (s *S3Store) Close() error { return nil }
