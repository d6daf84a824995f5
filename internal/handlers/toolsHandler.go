package handlers

import (
	"errors"
	"net/http"

	"github.com/laxjovial/assistant-core/internal/api"
	"github.com/laxjovial/assistant-core/internal/tools/datafetch"
)

// PostSearchHandler godoc
// @Summary      Web search fallback
// @Description  Runs the search cascade (configured APIs, then Wikipedia, then scraping) and returns the first hit.
// @Tags         Tools
// @Accept       json
// @Produce      json
// @Param        request  body      api.SearchRequest  true  "Query and optional max_chars"
// @Success      200      {object}  api.TextResponse
// @Failure      400      {object}  api.JobResponse
// @Router       /tools/search [post]
func PostSearchHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	var requestData api.SearchRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	result := handlerInstance.searcher.Search(r.Context(), requestData.Query, requestData.MaxChars)
	writeJsonResponse(w, http.StatusOK, api.TextResponse{Result: result})
}

// PostFetchHandler godoc
// @Summary      Fetch domain data from a configured API
// @Description  Calls a registry-configured upstream API for a domain and returns the JSON response, optionally truncated.
// @Tags         Tools
// @Accept       json
// @Produce      json
// @Param        request  body      api.FetchRequest  true  "Domain, API name, data type and parameters"
// @Success      200      {object}  api.TextResponse
// @Failure      400      {object}  api.JobResponse
// @Router       /tools/fetch [post]
func PostFetchHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	var requestData api.FetchRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	result, err := handlerInstance.fetcher.Fetch(r.Context(), datafetch.Request{
		Domain:   requestData.Domain,
		APIName:  requestData.APIName,
		DataType: requestData.DataType,
		Params:   requestData.Params,
		Limit:    requestData.Limit,
	})
	if err != nil {
		switch {
		case errors.Is(err, datafetch.ErrUnknownDomain),
			errors.Is(err, datafetch.ErrUnknownAPI),
			errors.Is(err, datafetch.ErrUnsupportedDataType),
			errors.Is(err, datafetch.ErrMissingParameter):
			WriteErrorResponse(w, http.StatusBadRequest, "", err.Error())
		default:
			logRH.Error("Fetch failed", "err", err)
			WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not fetch data")
		}
		return
	}
	writeJsonResponse(w, http.StatusOK, api.TextResponse{Result: result})
}

// PostExecHandler godoc
// @Summary      Run code in the sandboxed interpreter
// @Description  Proxies code to the sandbox service. Access is tier gated; denials come back as the result text.
// @Tags         Tools
// @Accept       json
// @Produce      json
// @Param        request  body      api.ExecRequest  true  "Code to execute"
// @Success      200      {object}  api.TextResponse
// @Failure      400      {object}  api.JobResponse
// @Router       /tools/exec [post]
func PostExecHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	var requestData api.ExecRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	result := handlerInstance.interpreter.Run(r.Context(), userToken(r.Context()), requestData.Code)
	writeJsonResponse(w, http.StatusOK, api.TextResponse{Result: result})
}
