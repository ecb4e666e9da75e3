// Package worker contains methods for worker to init at start, and to process queued transform jobs
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/glebkin/imgpipe/internal/model"
	"github.com/glebkin/imgpipe/internal/pipeline"
	"github.com/glebkin/imgpipe/internal/service"
	kafkago "github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
)

type JobWorkerService interface {
	Transform(ctx context.Context, src, wm []byte, params *model.TransformParams) ([]byte, pipeline.Format, error)
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
}

type Worker struct {
	storage      service.ImageStorage
	service      JobWorkerService
	queue        <-chan kafkago.Message
	consumer     *wbfkafka.Consumer
	resultPrefix string
}

func NewWorkerInstance(strg service.ImageStorage, svc JobWorkerService, q <-chan kafkago.Message, cons *wbfkafka.Consumer, resPr string) *Worker {
	return &Worker{storage: strg, service: svc, queue: q, consumer: cons, resultPrefix: resPr}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				log.Println("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			if err := w.initProcessor(ctx, id); err != nil && !errors.Is(err, model.ErrJobNotFound) {
				log.Printf("Job %s failed: %v", id, err)
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				log.Printf("Failed to commit queue-message: %v", err)
			}
		}
	}
}

func (w *Worker) initProcessor(ctx context.Context, id string) error {
	job, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("Worker failed to fetch job info %q from DB: %w", id, err)
	}

	switch job.Status {
	case model.StatusDone:
		return nil
	case model.StatusInProgress:
		return fmt.Errorf("already in progress")
	}

	// a requeued job may already carry a result
	if strings.Contains(job.ResultKey, w.resultPrefix) {
		if err := w.service.UpdateStatus(ctx, id, model.StatusDone); err != nil {
			return fmt.Errorf("failed to update status of already-done job in DB: %w", err)
		}
		return nil
	}

	if err := w.service.UpdateStatus(ctx, id, model.StatusInProgress); err != nil {
		return fmt.Errorf("failed to update status of job %q to `in_progress` in DB: %w", id, err)
	}

	if pErr := w.processJob(ctx, job); pErr != nil {
		job.Status = model.StatusFailed
		job.ErrMsg = append(job.ErrMsg, pErr.Error())
		if uErr := w.service.SaveResult(ctx, job); uErr != nil {
			return fmt.Errorf("failed to set status of job %q to `failed` in DB: %w \nAFTER\n error while processing job: %w", id, uErr, pErr)
		}
		return fmt.Errorf("failed to process job %q: %w", id, pErr)
	}

	return nil
}

func (w *Worker) processJob(ctx context.Context, job *model.Job) error {
	src, err := w.fetchBlob(ctx, job.SourceKey)
	if err != nil {
		return fmt.Errorf("worker failed to fetch base-image from storage: %w", err)
	}

	var wm []byte
	if job.WatermarkKey != "" {
		wm, err = w.fetchBlob(ctx, job.WatermarkKey)
		if err != nil {
			return fmt.Errorf("worker failed to fetch wm-image from storage: %w", err)
		}
	}

	// the pipeline itself: decode, crop, resize, watermark, encode
	result, outFormat, err := w.service.Transform(ctx, src, wm, &job.Params)
	if err != nil {
		return fmt.Errorf("worker failed to transform image: %w", err)
	}

	resKey := w.resultPrefix + job.UID.String() + model.GetImageFileExt[outFormat]
	if err := w.storage.Put(ctx, resKey, int64(len(result)), model.GetCType[outFormat], bytes.NewReader(result)); err != nil {
		return fmt.Errorf("worker failed to put result image to storage: %w", err)
	}

	job.Status = model.StatusDone
	job.ResultKey = resKey

	if err := w.service.SaveResult(ctx, job); err != nil {
		return fmt.Errorf("worker failed to save result to DB: %w", err)
	}
	return nil
}

func (w *Worker) fetchBlob(ctx context.Context, key string) ([]byte, error) {
	r, _, err := w.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer closeFileFlow(r)

	return io.ReadAll(r)
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}

	if err := res.Close(); err != nil {
		log.Println("Worker failed to close fileflow:", err)
	}
}
