// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package api implements the embedded HTTP control surface: subscription
// CRUD plus a read-only task status endpoint. It is a local, unauthenticated
// surface; every internal error maps to HTTP 500 with the error's string
// representation as a JSON body.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
	"github.com/bangumi-sync/bangumi-sync/internal/store"
)

// SubscriptionStore is the subset of store.SubscriptionStore the API needs.
type SubscriptionStore interface {
	List(ctx context.Context) ([]domain.Subscription, error)
	Get(ctx context.Context, id int64) (domain.Subscription, error)
	Insert(ctx context.Context, sub domain.Subscription) (int64, error)
	Update(ctx context.Context, id int64, sub domain.Subscription) error
	Delete(ctx context.Context, id int64) error
}

// TaskReader is the subset of store.TaskStore the read-only status
// endpoint needs.
type TaskReader interface {
	GetTask(ctx context.Context, hash string) (domain.DownloadTask, bool, error)
}

// Handler builds the chi router serving subscription CRUD and task status.
type Handler struct {
	log   zerolog.Logger
	subs  SubscriptionStore
	tasks TaskReader
}

// New builds a Handler.
func New(log zerolog.Logger, subs SubscriptionStore, tasks TaskReader) *Handler {
	return &Handler{log: log, subs: subs, tasks: tasks}
}

// Router assembles the chi.Mux the daemon's API server listens with.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Route("/api/subscriptions", func(r chi.Router) {
		r.Get("/", h.listSubscriptions)
		r.Post("/", h.createSubscription)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSubscription)
			r.Put("/", h.updateSubscription)
			r.Delete("/", h.deleteSubscription)
		})
	})

	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/{hash}", h.getTask)
	})

	return r
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subs.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) createSubscription(w http.ResponseWriter, r *http.Request) {
	var sub domain.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, err)
		return
	}
	id, err := h.subs.Insert(r.Context(), sub)
	if err != nil {
		writeError(w, err)
		return
	}
	sub.ID = id
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.subs.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var sub domain.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, err)
		return
	}
	if err := h.subs.Update(r.Context(), id, sub); err != nil {
		writeError(w, err)
		return
	}
	sub.ID = id
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.subs.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	task, found, err := h.tasks.GetTask(r.Context(), hash)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON shape every mapped error renders as.
type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(errorBody{Error: err.Error()})
}
