package handler

import (
	"expvar"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Routes returns the application router wrapped in its middleware chain.
func (h *Handler) Routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(h.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(h.methodNotAllowed)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", h.healthcheckHandler)

	router.HandlerFunc(http.MethodGet, "/v1/authors", h.listAuthorsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/authors", h.createAuthorHandler)
	router.HandlerFunc(http.MethodGet, "/v1/authors/:id", h.showAuthorHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/authors/:id", h.updateAuthorHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/authors/:id", h.deleteAuthorHandler)

	router.HandlerFunc(http.MethodGet, "/v1/books", h.listBooksHandler)
	router.HandlerFunc(http.MethodPost, "/v1/books", h.createBookHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:id", h.showBookHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/books/:id", h.updateBookHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/books/:id", h.deleteBookHandler)

	router.HandlerFunc(http.MethodGet, "/v1/borrows", h.requireAuthenticatedUser(h.listBorrowsHandler))
	router.HandlerFunc(http.MethodPost, "/v1/borrows", h.requireAuthenticatedUser(h.createBorrowHandler))
	router.HandlerFunc(http.MethodGet, "/v1/borrows/:id", h.requireAuthenticatedUser(h.showBorrowHandler))
	router.HandlerFunc(http.MethodPost, "/v1/borrows/:id/return", h.requireAuthenticatedUser(h.returnBorrowHandler))

	router.HandlerFunc(http.MethodPost, "/v1/users", h.registerUserHandler)
	router.HandlerFunc(http.MethodGet, "/v1/users/me", h.requireAuthenticatedUser(h.showCurrentUserHandler))

	router.HandlerFunc(http.MethodPost, "/v1/tokens/authentication", h.createAuthenticationTokenHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/tokens/authentication", h.requireAuthenticatedUser(h.deleteAuthenticationTokenHandler))

	router.HandlerFunc(http.MethodGet, "/debug/vars", h.basicAuth(expvar.Handler().ServeHTTP))

	return h.metrics(h.recoverPanic(h.requestID(h.enableCORS(h.rateLimit(h.authenticate(router))))))
}
