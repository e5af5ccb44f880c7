package minio

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/minio/minio-go/v7"

	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// OutputStore keeps run output as objects keyed
// "<job>/seed-<seed>/<receptor>__<ligand>_out.<fmt>".  References are
// object keys within the client's bucket.
type OutputStore struct {
	client *MinIOClient
	logger logging.Logger
	read   func(ctx context.Context, bucket, key string) ([]byte, error)
}

// NewOutputStore returns a store on client's bucket.
func NewOutputStore(client *MinIOClient, log logging.Logger) *OutputStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &OutputStore{client: client, logger: log.Named("minio-store")}
	s.read = s.readObject
	return s
}

// Save uploads the output and the engine log.  A retry of the same seed
// overwrites both objects.
func (s *OutputStore) Save(ctx context.Context, key domain.OutputKey, out *domain.Output) (domain.StoredOutput, error) {
	if err := s.client.checkOpen(); err != nil {
		return domain.StoredOutput{}, err
	}
	prefix := key.Prefix()
	stored := domain.StoredOutput{
		OutputRef: prefix + "/" + key.OutputName(out.Format),
		LogRef:    prefix + "/" + key.LogName(),
	}
	tags := map[string]string{"job_id": key.JobID, "seed": strconv.FormatInt(key.Seed, 10)}

	if err := s.put(ctx, stored.OutputRef, out.Data, "chemical/x-"+out.Format, tags); err != nil {
		return domain.StoredOutput{}, err
	}
	if err := s.put(ctx, stored.LogRef, out.Log, "text/plain", tags); err != nil {
		return domain.StoredOutput{}, err
	}
	s.logger.Debug("run output uploaded", logging.String("bucket", s.client.Bucket()), logging.String("key", stored.OutputRef))
	return stored, nil
}

func (s *OutputStore) put(ctx context.Context, key string, data []byte, contentType string, tags map[string]string) error {
	_, err := s.client.api.PutObject(ctx, s.client.Bucket(), key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
		UserTags:    tags,
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeStorage, "upload failed").WithDetail(key)
	}
	return nil
}

// Load downloads the object at ref.
func (s *OutputStore) Load(ctx context.Context, ref string) ([]byte, error) {
	if err := s.client.checkOpen(); err != nil {
		return nil, err
	}
	if ref == "" {
		return nil, errors.InvalidParam("empty output reference")
	}
	data, err := s.read(ctx, s.client.Bucket(), ref)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, errors.NotFound("object not found").WithDetail(ref)
		}
		return nil, errors.Wrap(err, errors.CodeStorage, "download failed").WithDetail(ref)
	}
	return data, nil
}

func (s *OutputStore) readObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.api.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

// DeleteJob removes every object of jobID.
func (s *OutputStore) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.client.checkOpen(); err != nil {
		return err
	}
	prefix := domain.JobPrefix(jobID)
	removed := 0
	for obj := range s.client.api.ListObjects(ctx, s.client.Bucket(), minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return errors.Wrap(obj.Err, errors.CodeStorage, "listing failed").WithDetail(prefix)
		}
		if err := s.client.api.RemoveObject(ctx, s.client.Bucket(), obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return errors.Wrap(err, errors.CodeStorage, "delete failed").WithDetail(obj.Key)
		}
		removed++
	}
	s.logger.Debug("job objects removed", logging.JobID(jobID), logging.Int("objects", removed))
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

//Personal.AI order the ending
