package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"testing"

	"github.com/glebkin/imgpipe/internal/model"
	"github.com/glebkin/imgpipe/internal/pipeline"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"
)

// TRANSFORM (sync) - SUCCESS
func TestJobService_Transform_OK(t *testing.T) {
	svc := JobService{}

	params := &model.TransformParams{
		Format: "png",
		Crop:   &model.CropParams{X: ptr(2), Y: ptr(2), Width: ptr(10), Height: ptr(10)},
	}

	out, format, err := svc.Transform(context.Background(), validPNG(20, 20), nil, params)
	require.NoError(t, err)
	require.Equal(t, pipeline.FormatPNG, format)

	img, err := pipeline.Decode(out, pipeline.FormatPNG)
	require.NoError(t, err)
	require.Equal(t, 10, img.Bounds().Dx())
}

// TRANSFORM - BAD CONFIG FAILS BEFORE PIPELINE
func TestJobService_Transform_BadConfig(t *testing.T) {
	svc := JobService{}

	_, _, err := svc.Transform(context.Background(), validPNG(20, 20), nil, &model.TransformParams{})
	require.ErrorIs(t, err, model.ErrBadConfig)
}

// TRANSFORM - PIPELINE ERROR PASSES THROUGH
func TestJobService_Transform_OutOfBounds(t *testing.T) {
	svc := JobService{}

	params := &model.TransformParams{
		Format: "png",
		Crop:   &model.CropParams{X: ptr(15), Y: ptr(15), Width: ptr(10), Height: ptr(10)},
	}

	_, _, err := svc.Transform(context.Background(), validPNG(20, 20), nil, params)
	require.ErrorIs(t, err, pipeline.ErrOutOfBounds)
}

// TRANSFORM - WATERMARK PATH
func TestJobService_Transform_Watermark(t *testing.T) {
	svc := JobService{}

	params := &model.TransformParams{
		Format: "png",
		Watermark: &model.WatermarkParams{
			Position: []int{0, 0, 5, 5},
			Opacity:  ptr(100.0),
		},
	}

	out, format, err := svc.Transform(context.Background(), validPNG(20, 20), validPNG(5, 5), params)
	require.NoError(t, err)
	require.Equal(t, pipeline.FormatPNG, format)
	require.NotEmpty(t, out)
}

// CREATEJOB - SUCCESS
func TestJobService_CreateJob_OK(t *testing.T) {
	ctx := context.Background()

	repo := &mockRepo{
		createFn: func(ctx context.Context, job *model.Job) error {
			require.NotEmpty(t, job.UID)
			require.Equal(t, model.StatusCreated, job.Status)
			return nil
		},
	}

	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			return nil
		},
	}

	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			require.NotEmpty(t, key)
			return nil
		},
	}

	svc := JobService{
		repo:         repo,
		storage:      storage,
		publisher:    pub,
		srcKeyPrefix: "src/",
		wmKeyPrefix:  "wm/",
	}

	job, err := svc.CreateJob(ctx, validCreateData())
	require.NoError(t, err)
	require.NotNil(t, job)
}

// CREATEJOB - VALIDATION FAIL
func TestJobService_CreateJob_InvalidConfig(t *testing.T) {
	svc := JobService{}

	_, err := svc.CreateJob(context.Background(), &model.JobCreateData{})
	require.ErrorIs(t, err, model.ErrBadConfig)
}

// CREATEJOB - WATERMARK CONFIG WITHOUT FILE
func TestJobService_CreateJob_MissingWatermarkFile(t *testing.T) {
	svc := JobService{}

	data := validCreateData()
	data.Params.Watermark = &model.WatermarkParams{Position: []int{0, 0, 1, 1}}

	_, err := svc.CreateJob(context.Background(), data)
	require.ErrorIs(t, err, model.ErrEmptyWMark)
}

// CREATEJOB - STORAGE PUT FAIL
func TestJobService_CreateJob_StorageError(t *testing.T) {
	repo := &mockRepo{}
	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			return errors.New("storage is down")
		},
	}

	svc := JobService{
		repo:         repo,
		storage:      storage,
		srcKeyPrefix: "src/",
	}

	_, err := svc.CreateJob(context.Background(), validCreateData())
	require.ErrorIs(t, err, model.ErrCommon500)
}

// GETLIST - SUCCESS
func TestJobService_GetList_OK(t *testing.T) {
	repo := &mockRepo{
		getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
			require.Equal(t, 1, req.Page)
			return []model.Job{{UID: uuid.New()}}, nil
		},
	}

	svc := JobService{repo: repo}

	res, err := svc.GetList(context.Background(), &model.ListRequest{})
	require.NoError(t, err)
	require.Len(t, res, 1)
}

// GET - SUCCESS
func TestJobService_Get_OK(t *testing.T) {
	id := uuid.New().String()

	repo := &mockRepo{
		getFn: func(ctx context.Context, uid string) (*model.Job, error) {
			return &model.Job{UID: uuid.MustParse(uid)}, nil
		},
	}

	svc := JobService{repo: repo}

	job, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, job.UID.String())
}

// GET - FAIL
func TestJobService_Get_InvalidID(t *testing.T) {
	svc := JobService{}
	_, err := svc.Get(context.Background(), "bad-id")
	require.ErrorIs(t, err, model.ErrIncorrectID)
}

// LOADRESULT - FAIL - NOT READY
func TestJobService_LoadResult_NotReady(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Job, error) {
			return &model.Job{Status: model.StatusCreated}, nil
		},
	}

	svc := JobService{repo: repo}

	_, _, err := svc.LoadResult(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrResultNotReady)
}

// LOADRESULT - FAIL - JOB FAILED
func TestJobService_LoadResult_Failed(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Job, error) {
			return &model.Job{Status: model.StatusFailed}, nil
		},
	}

	svc := JobService{repo: repo}

	_, _, err := svc.LoadResult(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrJobFailed)
}

// DELETE - FAIL - NOT FOUND
func TestJobService_Delete_NotFound(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Job, error) {
			return nil, sql.ErrNoRows
		},
	}

	svc := JobService{repo: repo}
	err := svc.Delete(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrJobNotFound)
}

// UPDATESTATUS - SUCCESS
func TestJobService_UpdateStatus_OK(t *testing.T) {
	repo := &mockRepo{
		updateStatusFn: func(ctx context.Context, id string, st model.Status) error {
			require.Equal(t, model.StatusDone, st)
			return nil
		},
	}

	svc := JobService{repo: repo}
	err := svc.UpdateStatus(context.Background(), uuid.New().String(), model.StatusDone)
	require.NoError(t, err)
}

// SAVERESULT - SUCCESS
func TestJobService_SaveResult_OK(t *testing.T) {
	repo := &mockRepo{
		saveResultFn: func(ctx context.Context, job *model.Job) error {
			require.NotNil(t, job.UpdatedAt)
			return nil
		},
	}

	svc := JobService{repo: repo}
	err := svc.SaveResult(context.Background(), &model.Job{})
	require.NoError(t, err)
}

// REVIVEORPHANS - SUCCESS
func TestJobService_ReviveOrphans(t *testing.T) {
	called := 0

	repo := &mockRepo{
		fetchOrphansFn: func(ctx context.Context, limit int) ([]string, error) {
			return []string{"id1", "id2"}, nil
		},
	}

	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			called++
			return nil
		},
	}

	svc := JobService{repo: repo, publisher: pub}
	svc.ReviveOrphans(context.Background(), 10)

	require.Equal(t, 2, called)
}

// helper: in-memory file
func newFakeFile(content []byte) multipart.File {
	return &fakeMultipartFile{
		Reader: bytes.NewReader(content),
	}
}

// helper: minimal valid JobCreateData
func validCreateData() *model.JobCreateData {
	src := validPNG(20, 20)

	return &model.JobCreateData{
		Params: &model.TransformParams{
			Format: "png",
			Size:   &model.SizeParams{Width: ptr(10), Height: ptr(10)},
		},
		SrcImg:  newFakeFile(src),
		SrcSize: int64(len(src)),
	}
}

// helper: real encoded PNG
func validPNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 100, G: 100, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
