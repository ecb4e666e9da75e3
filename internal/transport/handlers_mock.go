package transport

import (
	"context"
	"io"

	"github.com/glebkin/imgpipe/internal/model"
	"github.com/glebkin/imgpipe/internal/pipeline"
)

// MOCK SERVICE for handler-tests

type mockJobService struct {
	transformFn  func(ctx context.Context, src, wm []byte, params *model.TransformParams) ([]byte, pipeline.Format, error)
	createFn     func(ctx context.Context, data *model.JobCreateData) (*model.Job, error)
	getFn        func(ctx context.Context, id string) (*model.Job, error)
	deleteFn     func(ctx context.Context, id string) error
	loadResultFn func(ctx context.Context, id string) (io.ReadCloser, string, error)
	getListFn    func(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
}

func (m *mockJobService) Transform(ctx context.Context, src, wm []byte, params *model.TransformParams) ([]byte, pipeline.Format, error) {
	return m.transformFn(ctx, src, wm, params)
}

func (m *mockJobService) CreateJob(ctx context.Context, data *model.JobCreateData) (*model.Job, error) {
	return m.createFn(ctx, data)
}

func (m *mockJobService) Get(ctx context.Context, id string) (*model.Job, error) {
	return m.getFn(ctx, id)
}

func (m *mockJobService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockJobService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return m.loadResultFn(ctx, id)
}

func (m *mockJobService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	return m.getListFn(ctx, req)
}
