package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperkettle/storefront/pkg/audit"
	"github.com/copperkettle/storefront/pkg/observability"
)

type fakeAuditSearch struct {
	called bool
	filter audit.SearchFilter
	events []*audit.Event
}

func (f *fakeAuditSearch) Search(_ context.Context, filter audit.SearchFilter) ([]*audit.Event, error) {
	f.called = true
	f.filter = filter
	return f.events, nil
}

func newAuditRouter(search AuditSearcher) *mux.Router {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	h := NewAdminHandlers(nil, nil, search, logger)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func TestListAuditEvents_MapsQueryToFilter(t *testing.T) {
	search := &fakeAuditSearch{events: []*audit.Event{
		{ID: 3, EventType: audit.EventTypeRoleChange, Status: audit.EventStatusSuccess, ActorID: "boss-1"},
	}}
	router := newAuditRouter(search)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/superadmin/audit?actor_id=boss-1&type=admin.role_change&type=admin.user_tombstone"+
			"&status=success&limit=10&offset=5&since=2026-08-01T00:00:00Z", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "boss-1", search.filter.ActorID)
	assert.Equal(t, []audit.EventType{audit.EventTypeRoleChange, audit.EventTypeUserTombstone},
		search.filter.EventTypes)
	require.NotNil(t, search.filter.Status)
	assert.Equal(t, audit.EventStatusSuccess, *search.filter.Status)
	assert.Equal(t, 10, search.filter.Limit)
	assert.Equal(t, 5, search.filter.Offset)
	require.NotNil(t, search.filter.StartTime)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), search.filter.StartTime.UTC())

	var events []*audit.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventTypeRoleChange, events[0].EventType)
}

func TestListAuditEvents_RejectsBadTimestamp(t *testing.T) {
	search := &fakeAuditSearch{}
	router := newAuditRouter(search)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/superadmin/audit?since=yesterday", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, search.called)
}

func TestListAuditEvents_NotMountedWithoutSearcher(t *testing.T) {
	router := newAuditRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/superadmin/audit", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
