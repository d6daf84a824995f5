package handlers

import (
	"errors"
	"net/http"

	"github.com/laxjovial/assistant-core/internal/adapter"
	"github.com/laxjovial/assistant-core/internal/adapter/utils"
	"github.com/laxjovial/assistant-core/internal/api"
	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/domain/jobmodel"
	"github.com/laxjovial/assistant-core/internal/export"
	"github.com/laxjovial/assistant-core/internal/rag"
	"github.com/laxjovial/assistant-core/internal/rbac"
)

const summarizationDenied = "Access Denied: Document summarization capabilities are not enabled for your current tier. Please upgrade your plan."

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// PostIngestHandler godoc
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data, stores it under the caller's section, and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        section   formData  string  true  "Target section (e.g. sports, finance)"
// @Param        document  formData  file    true  "The document to upload"
// @Success      202  {object}  api.InitJobResponse "Job successfully created"
// @Failure      400  {object}  api.JobResponse "Bad Request - Missing fields, unsupported type or file too large"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - Storage or Write Error"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	section := r.FormValue("section")
	if section == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "section is required")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	doc, err := handlerInstance.ragService.SaveUpload(userToken(r.Context()), section, fileMetadata.Filename, fileReader)
	if err != nil {
		if errors.Is(err, rag.ErrUnsupportedFileType) {
			WriteErrorResponse(w, http.StatusBadRequest, "", "Unsupported file type")
			return
		}
		logRH.Error("Couldn't store upload", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}

	newJob := jobmodel.Job{
		Id:          utils.GetNewUUID(),
		TraceId:     traceID(r.Context()),
		JobType:     jobmodel.JobTypeIngest,
		CurrentStep: jobmodel.IngestInit,
		JobPayload: jobmodel.JobPayload{
			UserID:         userToken(r.Context()),
			Section:        section,
			IngestFileName: doc.SourceName,
			IngestPath:     doc.Path,
		},
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.Id))
}

// PostQueryHandler godoc
// @Summary      Query indexed documents
// @Description  Accepts a question for a section, queues a retrieval job, and returns a job ID to track status.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        request  body      api.QueryRequest     true  "Section and question, optional k and export flag"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data"
// @Router       /query [post]
func PostQueryHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	var requestData api.QueryRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	newJob := jobmodel.Job{
		Id:          utils.GetNewUUID(),
		TraceId:     traceID(r.Context()),
		JobType:     jobmodel.JobTypeQuery,
		CurrentStep: jobmodel.QueryInit,
		JobPayload: jobmodel.JobPayload{
			UserID:   userToken(r.Context()),
			Section:  requestData.Section,
			Question: requestData.Question,
			K:        requestData.K,
			Export:   requestData.Export,
		},
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.Id))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse   "The current status of the job"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(idString, traceID(r.Context()))

	logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostClearHandler godoc
// @Summary      Clear a section's indexed data
// @Description  Removes the caller's uploaded documents and vector index for a section. Idempotent.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        request  body      api.ClearRequest  true  "Section to clear"
// @Success      200      {object}  api.TextResponse
// @Failure      400      {object}  api.JobResponse
// @Router       /clear [post]
func PostClearHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	var requestData api.ClearRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	message, err := handlerInstance.ragService.Clear(r.Context(), userToken(r.Context()), requestData.Section)
	if err != nil {
		logRH.Error("Clear failed", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not clear section data")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.TextResponse{Result: message})
}

// PostSummarizeHandler godoc
// @Summary      Summarize an uploaded document
// @Description  Loads a stored upload and asks the configured LLM for a summary. Tier gated.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        request  body      api.SummarizeRequest  true  "Section and stored document name"
// @Success      200      {object}  api.TextResponse
// @Failure      400      {object}  api.JobResponse
// @Router       /summarize [post]
func PostSummarizeHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	var requestData api.SummarizeRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	token := userToken(r.Context())
	if !handlerInstance.gate.Bool(token, rbac.CapSummarization, false) {
		writeJsonResponse(w, http.StatusOK, api.TextResponse{Result: summarizationDenied})
		return
	}

	summary, err := handlerInstance.ragService.SummarizeDocument(r.Context(), token, requestData.Section, requestData.Document)
	if err != nil {
		logRH.Error("Summarization failed", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not summarize document")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.TextResponse{Result: summary})
}

// PostExportHandler godoc
// @Summary      Export response text to a file
// @Description  Writes caller-supplied content to the per-user export directory in txt, json or md format.
// @Tags         Export
// @Accept       json
// @Produce      json
// @Param        request  body      api.ExportRequest  true  "Content, section, format and optional filename"
// @Success      200      {object}  api.ExportResponse
// @Failure      400      {object}  api.JobResponse
// @Router       /export [post]
func PostExportHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	var requestData api.ExportRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	path, err := handlerInstance.exporter.Response(requestData.Content, userToken(r.Context()), requestData.Section, requestData.Format, requestData.Filename)
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			WriteErrorResponse(w, http.StatusBadRequest, "", "Unsupported export format")
			return
		}
		logRH.Error("Export failed", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not export content")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.ExportResponse{Path: path})
}
