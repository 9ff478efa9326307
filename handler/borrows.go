package handler

import (
	"fmt"
	"net/http"

	"github.com/emzola/circulation/data"
	"github.com/emzola/circulation/data/dto"
	"github.com/emzola/circulation/internal/validator"
)

var borrowSortSafeList = data.SortSafeList("borrowed_at", "due_at", "returned_at")

func (h *Handler) createBorrowHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	qsInput := dto.QsCreateBorrow{
		TargetUser: h.readOptionalInt64(r.URL.Query(), "target_user", v),
	}
	if !v.Valid() {
		h.failedValidationResponse(w, r, v.Errors)
		return
	}
	var requestBody dto.CreateBorrowRequestBody
	err := h.decodeJSON(w, r, &requestBody)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	borrow, err := h.service.CreateBorrow(r.Context(), h.contextGetUser(r), requestBody, qsInput)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/borrows/%d", borrow.ID))
	err = h.encodeJSON(w, http.StatusCreated, envelope{"borrow": borrow}, headers)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *Handler) showBorrowHandler(w http.ResponseWriter, r *http.Request) {
	borrowID, err := h.readIDParam(r, "id")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	borrow, err := h.service.GetBorrow(r.Context(), h.contextGetUser(r), borrowID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"borrow": borrow}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *Handler) listBorrowsHandler(w http.ResponseWriter, r *http.Request) {
	var qsInput dto.QsListBorrows
	v := validator.New()
	qs := r.URL.Query()
	qsInput.Active = h.readOptionalBool(qs, "active", v)
	qsInput.Book = h.readInt64(qs, "book", v)
	qsInput.User = h.readInt64(qs, "user", v)
	qsInput.Filters.Page = h.readInt(qs, "page", 1, v)
	qsInput.Filters.PageSize = h.readInt(qs, "page_size", data.DefaultPageSize, v)
	qsInput.Filters.Sort = h.readString(qs, "sort", "-borrowed_at")
	qsInput.Filters.SortSafeList = borrowSortSafeList
	if !v.Valid() {
		h.failedValidationResponse(w, r, v.Errors)
		return
	}
	borrows, metadata, err := h.service.ListBorrows(r.Context(), h.contextGetUser(r), qsInput)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"borrows": borrows, "metadata": metadata}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *Handler) returnBorrowHandler(w http.ResponseWriter, r *http.Request) {
	borrowID, err := h.readIDParam(r, "id")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	borrow, err := h.service.ReturnBorrow(r.Context(), h.contextGetUser(r), borrowID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"borrow": borrow}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
