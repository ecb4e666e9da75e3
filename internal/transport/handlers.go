// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"encoding/json"
	"io"
	"log"

	"github.com/glebkin/imgpipe/internal/model"
	"github.com/glebkin/imgpipe/internal/pipeline"
	"github.com/wb-go/wbf/ginext"
)

type JobHandler struct {
	service JobService
}

type JobService interface {
	Transform(ctx context.Context, src, wm []byte, params *model.TransformParams) ([]byte, pipeline.Format, error)
	CreateJob(ctx context.Context, data *model.JobCreateData) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	Delete(ctx context.Context, id string) error                              // remove from DB and storage
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) // download the result
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
}

func NewJobHandler(svc JobService) *JobHandler {
	return &JobHandler{
		service: svc,
	}
}

func (h JobHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// Transform runs the pipeline synchronously and streams the encoded result
// back in the response body.
func (h JobHandler) Transform(ctx *ginext.Context) {
	params, ok := parseConfigField(ctx)
	if !ok {
		return
	}

	src, ok := readFormFile(ctx, "image", true)
	if !ok {
		return
	}
	wm, ok := readFormFile(ctx, "watermark", false)
	if !ok {
		return
	}

	res, format, err := h.service.Transform(ctx.Request.Context(), src, wm, params)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Data(200, model.GetCType[format], res)
}

// CreateJob queues an asynchronous transform.
func (h JobHandler) CreateJob(ctx *ginext.Context) {
	params, ok := parseConfigField(ctx)
	if !ok {
		return
	}

	var newJobRaw model.JobCreateData
	newJobRaw.Params = params

	imageFile, imageHeader, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.JSON(400, map[string]string{"error": "image is required"})
		return
	}
	defer closeFileFlow(imageFile)
	newJobRaw.SrcImg = imageFile
	newJobRaw.SrcSize = imageHeader.Size

	// watermark file is required only when the config asks for one
	wmFile, wmHeader, err := ctx.Request.FormFile("watermark")
	if err == nil {
		defer closeFileFlow(wmFile)
		newJobRaw.WMImg = wmFile
		newJobRaw.WMSize = wmHeader.Size
	}

	res, err := h.service.CreateJob(ctx.Request.Context(), &newJobRaw)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h JobHandler) Get(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, err := h.service.Get(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h JobHandler) GetAllJobs(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h JobHandler) LoadResult(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, cType, err := h.service.LoadResult(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	defer closeFileFlow(res)

	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		log.Printf("Failed to write response at byte %d for job id %q: %v", n, id, err)
	}
}

func (h JobHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}

// parseConfigField reads and unmarshals the "config" form field. Presence and
// JSON shape are checked here; semantic validation is the service's job.
func parseConfigField(ctx *ginext.Context) (*model.TransformParams, bool) {
	raw := ctx.PostForm("config")
	if raw == "" {
		ctx.JSON(400, map[string]string{"error": "config is required"})
		return nil, false
	}

	var params model.TransformParams
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		ctx.JSON(400, map[string]string{"error": "config is not valid JSON: " + err.Error()})
		return nil, false
	}

	return &params, true
}

func readFormFile(ctx *ginext.Context, name string, required bool) ([]byte, bool) {
	file, _, err := ctx.Request.FormFile(name)
	if err != nil {
		if required {
			ctx.JSON(400, map[string]string{"error": name + " is required"})
			return nil, false
		}
		return nil, true
	}
	defer closeFileFlow(file)

	data, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to read " + name})
		return nil, false
	}
	return data, true
}
