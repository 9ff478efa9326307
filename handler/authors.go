package handler

import (
	"fmt"
	"net/http"

	"github.com/emzola/circulation/data"
	"github.com/emzola/circulation/data/dto"
	"github.com/emzola/circulation/internal/validator"
)

var authorSortSafeList = data.SortSafeList("last_name", "first_name", "birth_year")

func (h *Handler) createAuthorHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody dto.CreateAuthorRequestBody
	err := h.decodeJSON(w, r, &requestBody)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	author, err := h.service.CreateAuthor(r.Context(), h.contextGetUser(r), requestBody)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/authors/%d", author.ID))
	err = h.encodeJSON(w, http.StatusCreated, envelope{"author": author}, headers)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *Handler) showAuthorHandler(w http.ResponseWriter, r *http.Request) {
	authorID, err := h.readIDParam(r, "id")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	author, err := h.service.GetAuthor(r.Context(), h.contextGetUser(r), authorID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"author": author}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *Handler) listAuthorsHandler(w http.ResponseWriter, r *http.Request) {
	var qsInput dto.QsListAuthors
	v := validator.New()
	qs := r.URL.Query()
	qsInput.Search = h.readString(qs, "search", "")
	qsInput.Filters.Page = h.readInt(qs, "page", 1, v)
	qsInput.Filters.PageSize = h.readInt(qs, "page_size", data.DefaultPageSize, v)
	qsInput.Filters.Sort = h.readString(qs, "sort", "last_name")
	qsInput.Filters.SortSafeList = authorSortSafeList
	if !v.Valid() {
		h.failedValidationResponse(w, r, v.Errors)
		return
	}
	authors, metadata, err := h.service.ListAuthors(r.Context(), h.contextGetUser(r), qsInput)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"authors": authors, "metadata": metadata}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *Handler) updateAuthorHandler(w http.ResponseWriter, r *http.Request) {
	authorID, err := h.readIDParam(r, "id")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	var requestBody dto.UpdateAuthorRequestBody
	err = h.decodeJSON(w, r, &requestBody)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	author, err := h.service.UpdateAuthor(r.Context(), h.contextGetUser(r), authorID, requestBody)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"author": author}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *Handler) deleteAuthorHandler(w http.ResponseWriter, r *http.Request) {
	authorID, err := h.readIDParam(r, "id")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	err = h.service.DeleteAuthor(r.Context(), h.contextGetUser(r), authorID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
