package minio

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/BlindDock/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockMinIOAPI) SetBucketLifecycle(ctx context.Context, bucketName string, cfg *lifecycle.Configuration) error {
	return m.Called(ctx, bucketName, cfg).Error(0)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, _ := io.ReadAll(reader)
	args := m.Called(ctx, bucketName, objectName, string(data), objectSize, opts)
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, args.Error(0)
}

func (m *MockMinIOAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return nil, args.Error(1)
}

func (m *MockMinIOAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockMinIOAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	infos := args.Get(0).([]minio.ObjectInfo)
	ch := make(chan minio.ObjectInfo, len(infos))
	for _, info := range infos {
		ch <- info
	}
	close(ch)
	return ch
}

func (m *MockMinIOAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}

type ClientTestSuite struct {
	suite.Suite
	api *MockMinIOAPI
	ctx context.Context
	log logging.Logger
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.ctx = context.Background()
	s.log = logging.NewNopLogger()
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := config.MinIOConfig{}
	applyDefaults(&cfg)
	s.Equal("us-east-1", cfg.Region)
	s.Equal(config.DefaultMinIOBucket, cfg.Bucket)
}

func (s *ClientTestSuite) TestNewClient_CreatesMissingBucket() {
	s.api.On("BucketExists", s.ctx, "runs").Return(false, nil).Once()
	s.api.On("MakeBucket", s.ctx, "runs", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil).Once()

	c, err := NewMinIOClientWithAPI(s.ctx, s.api, config.MinIOConfig{Bucket: "runs"}, s.log)
	s.Require().NoError(err)
	s.Equal("runs", c.Bucket())
	s.api.AssertExpectations(s.T())
	s.api.AssertNotCalled(s.T(), "SetBucketLifecycle", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestNewClient_AppliesRetention() {
	s.api.On("BucketExists", s.ctx, "runs").Return(true, nil).Once()
	s.api.On("SetBucketLifecycle", s.ctx, "runs", mock.MatchedBy(func(lc *lifecycle.Configuration) bool {
		return len(lc.Rules) == 1 && lc.Rules[0].Expiration.Days == 30 && lc.Rules[0].Status == "Enabled"
	})).Return(nil).Once()

	_, err := NewMinIOClientWithAPI(s.ctx, s.api, config.MinIOConfig{Bucket: "runs", RetentionDays: 30}, s.log)
	s.Require().NoError(err)
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestNewClient_RetentionFailureIsNotFatal() {
	s.api.On("BucketExists", s.ctx, "runs").Return(true, nil).Once()
	s.api.On("SetBucketLifecycle", s.ctx, "runs", mock.Anything).Return(errors.New("not implemented")).Once()

	_, err := NewMinIOClientWithAPI(s.ctx, s.api, config.MinIOConfig{Bucket: "runs", RetentionDays: 7}, s.log)
	s.NoError(err)
}

func (s *ClientTestSuite) TestNewClient_BucketCheckFails() {
	s.api.On("BucketExists", s.ctx, "runs").Return(false, errors.New("connection refused")).Once()

	_, err := NewMinIOClientWithAPI(s.ctx, s.api, config.MinIOConfig{Bucket: "runs"}, s.log)
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, apperrors.CodeStorage))
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("BucketExists", s.ctx, "runs").Return(true, nil).Once()
	c, err := NewMinIOClientWithAPI(s.ctx, s.api, config.MinIOConfig{Bucket: "runs"}, s.log)
	s.Require().NoError(err)

	s.api.On("BucketExists", s.ctx, "runs").Return(true, nil).Once()
	status, err := c.HealthCheck(s.ctx)
	s.NoError(err)
	s.True(status.Healthy)

	s.api.On("BucketExists", s.ctx, "runs").Return(false, nil).Once()
	status, err = c.HealthCheck(s.ctx)
	s.True(apperrors.IsNotFound(err))
	s.False(status.Healthy)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

//Personal.AI order the ending
