package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/BlindDock/internal/config"
	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/BlindDock/pkg/errors"
)

func newTestStore(t *testing.T) (*OutputStore, *MockMinIOAPI) {
	t.Helper()
	api := new(MockMinIOAPI)
	api.On("BucketExists", mock.Anything, "runs").Return(true, nil).Once()
	client, err := NewMinIOClientWithAPI(context.Background(), api, config.MinIOConfig{Bucket: "runs"}, logging.NewNopLogger())
	require.NoError(t, err)
	return NewOutputStore(client, nil), api
}

func TestOutputStore_Save(t *testing.T) {
	store, api := newTestStore(t)
	key := domain.OutputKey{JobID: "job-1", Seed: 3, Receptor: "rec", Ligand: "lig"}
	tags := map[string]string{"job_id": "job-1", "seed": "3"}

	api.On("PutObject", mock.Anything, "runs", "job-1/seed-3/rec__lig_out.pdbqt", "MODEL 1", int64(7),
		minio.PutObjectOptions{ContentType: "chemical/x-pdbqt", UserTags: tags}).Return(nil).Once()
	api.On("PutObject", mock.Anything, "runs", "job-1/seed-3/rec__lig.log", "ok", int64(2),
		minio.PutObjectOptions{ContentType: "text/plain", UserTags: tags}).Return(nil).Once()

	stored, err := store.Save(context.Background(), key, &domain.Output{Format: "pdbqt", Data: []byte("MODEL 1"), Log: []byte("ok")})
	require.NoError(t, err)
	assert.Equal(t, "job-1/seed-3/rec__lig_out.pdbqt", stored.OutputRef)
	assert.Equal(t, "job-1/seed-3/rec__lig.log", stored.LogRef)
	api.AssertExpectations(t)
}

func TestOutputStore_SaveUploadFails(t *testing.T) {
	store, api := newTestStore(t)
	api.On("PutObject", mock.Anything, "runs", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("quota exceeded")).Once()

	_, err := store.Save(context.Background(), domain.OutputKey{JobID: "j", Seed: 1}, &domain.Output{Format: "pdbqt"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStorage))
}

func TestOutputStore_Load(t *testing.T) {
	store, _ := newTestStore(t)
	store.read = func(_ context.Context, bucket, key string) ([]byte, error) {
		switch key {
		case "job-1/seed-1/a__b_out.pdbqt":
			return []byte("data"), nil
		case "missing":
			return nil, minio.ErrorResponse{Code: "NoSuchKey", BucketName: bucket, Key: key}
		}
		return nil, errors.New("boom")
	}

	data, err := store.Load(context.Background(), "job-1/seed-1/a__b_out.pdbqt")
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	_, err = store.Load(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = store.Load(context.Background(), "other")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStorage))

	_, err = store.Load(context.Background(), "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
}

func TestOutputStore_DeleteJob(t *testing.T) {
	store, api := newTestStore(t)
	api.On("ListObjects", mock.Anything, "runs", minio.ListObjectsOptions{Prefix: "job_1/", Recursive: true}).
		Return([]minio.ObjectInfo{{Key: "job_1/seed-1/a"}, {Key: "job_1/seed-2/a"}}).Once()
	api.On("RemoveObject", mock.Anything, "runs", mock.Anything, minio.RemoveObjectOptions{}).Return(nil).Twice()

	require.NoError(t, store.DeleteJob(context.Background(), "job 1"))
	api.AssertExpectations(t)
}

func TestOutputStore_Closed(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.client.Close())

	_, err := store.Load(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMinIOClientClosed)
}

//Personal.AI order the ending
