package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/kobject/pkg/store/content"
)

// ReadAt reads len(buf) bytes starting at offset using a ranged GET.
//
// Reads at or past the end of the object return 0 bytes and no error.
func (s *S3ContentStore) ReadAt(ctx context.Context, id content.ContentID, buf []byte, offset int64) (n int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := content.ValidateOffset(offset, len(buf)); err != nil {
		return 0, err
	}

	start := time.Now()
	defer func() {
		s.observe("ReadAt", start, err)
		s.metrics.RecordBytes("read", int64(n))
	}()

	size, err := s.size(ctx, id)
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 || uint64(offset) >= size {
		return 0, nil
	}

	end := offset + int64(len(buf)) - 1
	if uint64(end) >= size {
		end = int64(size) - 1
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, end)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to read object from S3: %w", err)
	}
	defer func() { _ = result.Body.Close() }()

	n, err = io.ReadFull(result.Body, buf[:end-offset+1])
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		err = nil
	}
	if err != nil {
		return n, fmt.Errorf("failed to read object body: %w", err)
	}
	return n, nil
}

// Size returns the object length from HeadObject.
func (s *S3ContentStore) Size(ctx context.Context, id content.ContentID) (size uint64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	defer func() { s.observe("Size", start, err) }()

	return s.size(ctx, id)
}

func (s *S3ContentStore) size(ctx context.Context, id content.ContentID) (uint64, error) {
	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to head object: %w", err)
	}

	if result.ContentLength == nil {
		return 0, nil
	}
	return uint64(*result.ContentLength), nil
}

// download fetches the whole object. Missing objects yield (nil, false, nil).
func (s *S3ContentStore) download(ctx context.Context, id content.ContentID) ([]byte, bool, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read object from S3: %w", err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, true, nil
}
