// Package service provides business-logic for the app
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/glebkin/imgpipe/internal/model"
	"github.com/glebkin/imgpipe/internal/mwlogger"
	"github.com/glebkin/imgpipe/internal/pipeline"
	"github.com/glebkin/imgpipe/internal/repository"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
)

type JobService struct {
	repo            repository.JobRepo
	publisher       TaskPublisher
	storage         ImageStorage
	srcKeyPrefix    string
	wmKeyPrefix     string
	resultKeyPrefix string
}

func NewJobService(repo repository.JobRepo, pub TaskPublisher, strg ImageStorage) *JobService {
	return &JobService{
		repo:            repo,
		publisher:       pub,
		storage:         strg,
		srcKeyPrefix:    "src/",
		wmKeyPrefix:     "wm/",
		resultKeyPrefix: "result/",
	}
}

// TaskPublisher - queue contract
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// ImageStorage - blob storage contract
type ImageStorage interface {
	Delete(ctx context.Context, uid string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// Queue publish retry strategy - could move values to config/env later
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

// Transform runs the whole pipeline synchronously: the loose params are turned
// into a typed request up front (all validation happens there and inside the
// pipeline), then src is transformed. Returns the encoded result and the
// resolved output format. Shared by the sync endpoint and the queue worker.
func (c JobService) Transform(ctx context.Context, src, wm []byte, params *model.TransformParams) ([]byte, pipeline.Format, error) {
	req, err := buildRequest(params, wm)
	if err != nil {
		return nil, "", err
	}

	out := req.OutputFormat
	if out == "" {
		out = req.InputFormat
	}

	res, err := pipeline.Transform(src, req)
	if err != nil {
		return nil, "", err
	}

	return res, out, nil
}

// CreateJob validates the transform config, stores the uploaded blobs and
// queues the job for the worker.
func (c JobService) CreateJob(ctx context.Context, data *model.JobCreateData) (*model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	newJob := &model.Job{}

	if err := validateJobData(data, newJob); err != nil {
		return nil, err
	}

	newJob.UID = uuid.New()
	inFormat := pipeline.Format(data.Params.Format)

	// store source image
	srcKey := c.srcKeyPrefix + newJob.UID.String() + model.GetImageFileExt[inFormat]
	if err := c.storage.Put(ctx, srcKey, data.SrcSize, model.GetCType[inFormat], data.SrcImg); err != nil {
		logger.Error().Err(err).Msg("Failed to save src-image in Storage")
		return nil, model.ErrCommon500
	}
	newJob.SourceKey = srcKey

	// store watermark image - only when the config asks for one
	if data.Params.Watermark != nil {
		wmKey := c.wmKeyPrefix + newJob.UID.String()
		if err := c.storage.Put(ctx, wmKey, data.WMSize, "application/octet-stream", data.WMImg); err != nil {
			logger.Error().Err(err).Msg("Failed to save watermark in Storage")
			return nil, model.ErrCommon500
		}
		newJob.WatermarkKey = wmKey
	}

	newJob.Status = model.StatusCreated
	now := time.Now().UTC()
	newJob.CreatedAt = &now

	if err := c.repo.Create(ctx, newJob); err != nil {
		logger.Error().Err(err).Msg("Failed to create job in DB")
		return nil, model.ErrCommon500
	}

	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(newJob.UID.String()), nil); err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish job %q to task-queue", newJob.UID))
		return nil, model.ErrCommon500
	}
	return newJob, nil
}

func (c JobService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch jobs list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return nil, model.ErrJobNotFound
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch job %q from DB", id))
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c JobService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, "", model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch job %q from DB", id))
		return nil, "", model.ErrCommon500
	}
	switch res.Status {
	case model.StatusDone:
	case model.StatusFailed:
		return nil, "", model.ErrJobFailed
	default:
		return nil, "", model.ErrResultNotReady
	}

	data, cType, err := c.storage.Get(ctx, res.ResultKey)
	if err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch result-image %q from Storage", id))
		return nil, "", model.ErrCommon500
	}
	return data, cType, nil
}

func (c JobService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows), errors.Is(err, model.ErrJobNotFound):
			return model.ErrJobNotFound // 404
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch job %q from DB", id))
			return model.ErrCommon500
		}
	}

	if err := c.repo.Delete(ctx, id); err != nil {
		logger.Error().Err(err).Msg("Failed to delete job from DB")
		return model.ErrCommon500
	}

	// remove source, result and watermark blobs - whichever exist
	if err := c.storage.Delete(ctx, res.SourceKey); err != nil {
		logger.Error().Err(err).Msg("Failed to delete src-image from Storage")
		return model.ErrCommon500
	}
	if res.Status == model.StatusDone {
		if err := c.storage.Delete(ctx, res.ResultKey); err != nil {
			logger.Error().Err(err).Msg("Failed to delete result-image from Storage")
			return model.ErrCommon500
		}
	}
	if res.WatermarkKey != "" {
		if err := c.storage.Delete(ctx, res.WatermarkKey); err != nil {
			logger.Error().Err(err).Msg("Failed to delete watermark from Storage")
			return model.ErrCommon500
		}
	}

	return nil
}

func (c JobService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return model.ErrJobNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to update job status in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c JobService) SaveResult(ctx context.Context, input *model.Job) error {
	logger := mwlogger.LoggerFromContext(ctx)
	t := time.Now().UTC()
	input.UpdatedAt = &t
	if err := c.repo.SaveResult(ctx, input); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return model.ErrJobNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to save job result in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c JobService) ReviveOrphans(ctx context.Context, limit int) {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return
	}

	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Msg("Failed to publish orphan to queue")
		}
	}
}
