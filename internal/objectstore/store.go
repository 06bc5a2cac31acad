// Package objectstore writes and deletes media objects in the S3-like
// canonical and public buckets. It never reads; every path lookup the
// rest of the system needs comes from the database, not from listing the
// bucket.
package objectstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store wraps an S3 client bound to the two buckets the ingest engine
// writes to: a private canonical bucket for originals, and a public
// bucket for image derivatives.
type Store struct {
	client        *s3.Client
	privateBucket string
	publicBucket  string
}

// New builds a Store from an already-configured S3 client.
func New(client *s3.Client, privateBucket, publicBucket string) *Store {
	return &Store{client: client, privateBucket: privateBucket, publicBucket: publicBucket}
}

// PutPrivate uploads data to the private bucket under key, returning its
// s3:// URL.
func (s *Store) PutPrivate(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return s.put(ctx, s.privateBucket, key, data, contentType)
}

// PutPublic uploads data to the public bucket under key, returning its
// public HTTPS URL.
func (s *Store) PutPublic(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if _, err := s.put(ctx, s.publicBucket, key, data, contentType); err != nil {
		return "", err
	}
	return PublicURL(s.publicBucket, key), nil
}

func (s *Store) put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return PrivateURL(bucket, key), nil
}

// Copy copies an object within or across the store's buckets. Used by the
// move-on-rename path when a media item's canonical key shifts but its
// source link hasn't changed.
func (s *Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey, contentType string) error {
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(srcBucket + "/" + srcKey),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
		input.MetadataDirective = "REPLACE"
	}
	if _, err := s.client.CopyObject(ctx, input); err != nil {
		return fmt.Errorf("copy s3://%s/%s -> s3://%s/%s: %w", srcBucket, srcKey, dstBucket, dstKey, err)
	}
	return nil
}

// Delete removes an object. This is the only deletion path in the system;
// nothing else is permitted to remove a canonical media object.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// PrivateBucket returns the configured private bucket name.
func (s *Store) PrivateBucket() string { return s.privateBucket }

// PublicBucket returns the configured public bucket name.
func (s *Store) PublicBucket() string { return s.publicBucket }

// PrivateURL formats the canonical private s3:// URL for a bucket/key.
func PrivateURL(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// PublicURL formats the public HTTPS URL for a bucket/key.
func PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}

// ParsePrivateURL splits an "s3://bucket/key" URL into its parts. Used
// when the database hands back a previously-stored location that needs
// to be copied or deleted.
func ParsePrivateURL(url string) (bucket, key string, ok bool) {
	const prefix = "s3://"
	if len(url) <= len(prefix) || url[:len(prefix)] != prefix {
		return "", "", false
	}
	rest := url[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:], true
		}
	}
	return "", "", false
}

// OriginalKey computes the canonical key for a media original:
// media/{president}/{source}/{voyage}/{ext}/{slug}.{ext}
func OriginalKey(presidentSlug, sourceSlug, voyageSlug, ext, mediaSlug string) string {
	return fmt.Sprintf("media/%s/%s/%s/%s/%s.%s", presidentSlug, sourceSlug, voyageSlug, ext, mediaSlug, ext)
}

// DerivativeKey computes the canonical key for a generated image
// derivative (preview or thumb), always stored as JPEG. It lives under the
// same {ext}/ prefix as the original it derives from, not a "jpg" prefix
// of its own, so a renamed original and its derivatives stay grouped
// together.
func DerivativeKey(presidentSlug, sourceSlug, voyageSlug, originalExt, mediaSlug, kind string) string {
	return fmt.Sprintf("media/%s/%s/%s/%s/%s_%s.jpg", presidentSlug, sourceSlug, voyageSlug, originalExt, mediaSlug, kind)
}
