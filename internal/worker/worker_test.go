package worker

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/glebkin/imgpipe/internal/model"
	"github.com/glebkin/imgpipe/internal/pipeline"
	"github.com/glebkin/imgpipe/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestWorker_initProcessor(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()

	tests := []struct {
		name      string
		job       *model.Job
		getErr    error
		updateErr error
		wantErr   bool
	}{
		{
			name:    "already done",
			job:     &model.Job{Status: model.StatusDone},
			wantErr: false,
		},
		{
			name:    "in progress",
			job:     &model.Job{Status: model.StatusInProgress},
			wantErr: true,
		},
		{
			name:    "job not found",
			getErr:  model.ErrJobNotFound,
			wantErr: true,
		},
		{
			name:      "update status error",
			job:       &model.Job{Status: model.StatusCreated},
			updateErr: errors.New("db down"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWorkerService{
				getFn: func(ctx context.Context, _ string) (*model.Job, error) {
					return tt.job, tt.getErr
				},
				updateFn: func(ctx context.Context, _ string, _ model.Status) error {
					return tt.updateErr
				},
				saveResultFn: func(ctx context.Context, _ *model.Job) error {
					return nil
				},
			}

			w := &Worker{
				service:      svc,
				storage:      &mockStorage{},
				resultPrefix: "result/",
			}

			err := w.initProcessor(ctx, id)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// A requeued job that already carries a result only gets its status fixed.
func TestWorker_initProcessor_RequeuedJob(t *testing.T) {
	updated := false

	svc := &mockWorkerService{
		getFn: func(ctx context.Context, _ string) (*model.Job, error) {
			return &model.Job{Status: model.StatusCreated, ResultKey: "result/abc.png"}, nil
		},
		updateFn: func(ctx context.Context, _ string, st model.Status) error {
			require.Equal(t, model.StatusDone, st)
			updated = true
			return nil
		},
	}

	w := &Worker{service: svc, resultPrefix: "result/"}

	require.NoError(t, w.initProcessor(context.Background(), uuid.New().String()))
	require.True(t, updated)
}

// A processing failure marks the job failed and records the reason.
func TestWorker_initProcessor_ProcessingFailure(t *testing.T) {
	var saved *model.Job

	svc := &mockWorkerService{
		getFn: func(ctx context.Context, _ string) (*model.Job, error) {
			return &model.Job{UID: uuid.New(), Status: model.StatusCreated, SourceKey: "src/abc.png"}, nil
		},
		updateFn: func(ctx context.Context, _ string, _ model.Status) error {
			return nil
		},
		saveResultFn: func(ctx context.Context, job *model.Job) error {
			saved = job
			return nil
		},
	}

	storage := &mockStorage{
		getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			return nil, "", errors.New("storage down")
		},
	}

	w := &Worker{service: svc, storage: storage, resultPrefix: "result/"}

	err := w.initProcessor(context.Background(), uuid.New().String())
	require.Error(t, err)
	require.NotNil(t, saved)
	require.Equal(t, model.StatusFailed, saved.Status)
	require.NotEmpty(t, saved.ErrMsg)
}

func TestWorker_processJob_OK(t *testing.T) {
	ctx := context.Background()
	pipelineSvc := service.JobService{}

	job := &model.Job{
		UID:       uuid.New(),
		Status:    model.StatusInProgress,
		SourceKey: "src/abc.png",
		Params: model.TransformParams{
			Format: "png",
			Size:   &model.SizeParams{Width: ptr(10), Height: ptr(10)},
		},
	}

	storage := &mockStorage{
		getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			return io.NopCloser(bytes.NewReader(validPNG())), model.PNG, nil
		},
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			require.Contains(t, key, "result/")
			require.Equal(t, model.PNG, ct)
			return nil
		},
	}

	svc := &mockWorkerService{
		transformFn: pipelineSvc.Transform,
		saveResultFn: func(ctx context.Context, job *model.Job) error {
			require.Equal(t, model.StatusDone, job.Status)
			require.NotEmpty(t, job.ResultKey)
			return nil
		},
		updateFn: func(ctx context.Context, _ string, _ model.Status) error {
			return nil
		},
		getFn: func(ctx context.Context, _ string) (*model.Job, error) {
			return job, nil
		},
	}

	w := &Worker{
		storage:      storage,
		service:      svc,
		resultPrefix: "result/",
	}

	require.NoError(t, w.processJob(ctx, job))
}

// The watermark blob is fetched only when the job has one.
func TestWorker_processJob_WatermarkFetched(t *testing.T) {
	fetched := map[string]bool{}

	job := &model.Job{
		UID:          uuid.New(),
		Status:       model.StatusInProgress,
		SourceKey:    "src/abc.png",
		WatermarkKey: "wm/abc",
		Params: model.TransformParams{
			Format: "png",
			Watermark: &model.WatermarkParams{
				Position: []int{0, 0, 5, 5},
				Opacity:  ptr(50.0),
			},
		},
	}

	storage := &mockStorage{
		getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			fetched[key] = true
			return io.NopCloser(bytes.NewReader(validPNG())), model.PNG, nil
		},
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			return nil
		},
	}

	pipelineSvc := service.JobService{}
	svc := &mockWorkerService{
		transformFn: pipelineSvc.Transform,
		saveResultFn: func(ctx context.Context, _ *model.Job) error {
			return nil
		},
	}

	w := &Worker{storage: storage, service: svc, resultPrefix: "result/"}

	require.NoError(t, w.processJob(context.Background(), job))
	require.True(t, fetched["src/abc.png"])
	require.True(t, fetched["wm/abc"])
}

func TestWorker_processJob_BaseImageError(t *testing.T) {
	w := &Worker{
		storage: &mockStorage{
			getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
				return nil, "", errors.New("storage down")
			},
		},
	}

	err := w.processJob(context.Background(), &model.Job{SourceKey: "src/abc.png"})
	require.Error(t, err)
}

func TestWorker_processJob_TransformError(t *testing.T) {
	storage := &mockStorage{
		getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			return io.NopCloser(bytes.NewReader([]byte("not-an-image"))), "", nil
		},
	}

	pipelineSvc := service.JobService{}
	svc := &mockWorkerService{transformFn: pipelineSvc.Transform}

	w := &Worker{storage: storage, service: svc, resultPrefix: "result/"}

	err := w.processJob(context.Background(), &model.Job{
		SourceKey: "src/abc.png",
		Params:    model.TransformParams{Format: "png"},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, pipeline.ErrDecode)
}

func ptr[T any](v T) *T { return &v }

func validPNG() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.NRGBA{R: 100, G: 100, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
