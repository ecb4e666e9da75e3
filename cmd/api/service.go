package main

import (
	"context"
	"io"

	"github.com/glebkin/imgpipe/internal/model"
	"github.com/glebkin/imgpipe/internal/pipeline"
)

type JobAPIService interface {
	Transform(ctx context.Context, src, wm []byte, params *model.TransformParams) ([]byte, pipeline.Format, error)
	CreateJob(ctx context.Context, data *model.JobCreateData) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
	Delete(ctx context.Context, id string) error
	ReviveOrphans(ctx context.Context, limit int)
}
