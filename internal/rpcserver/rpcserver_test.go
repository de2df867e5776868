package rpcserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/nebulet/internal/graphd"
)

type fakeEngine struct {
	gotAddVertices *graphd.AddVerticesRequest
	neighborsResp  *graphd.GetNeighborsResponse
	err            error
}

func (f *fakeEngine) GetNeighbors(req *graphd.GetNeighborsRequest) (*graphd.GetNeighborsResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.neighborsResp, nil
}
func (f *fakeEngine) GetProps(req *graphd.GetPropsRequest) (*graphd.GetPropsResponse, error) {
	return &graphd.GetPropsResponse{}, f.err
}
func (f *fakeEngine) AddVertices(req *graphd.AddVerticesRequest) (*graphd.MutateResponse, error) {
	f.gotAddVertices = req
	if f.err != nil {
		return nil, f.err
	}
	return &graphd.MutateResponse{}, nil
}
func (f *fakeEngine) AddEdges(req *graphd.AddEdgesRequest) (*graphd.MutateResponse, error) {
	return &graphd.MutateResponse{}, f.err
}
func (f *fakeEngine) UpdateVertex(req *graphd.UpdateVertexRequest) (*graphd.MutateResponse, error) {
	return &graphd.MutateResponse{}, f.err
}
func (f *fakeEngine) UpdateEdge(req *graphd.UpdateEdgeRequest) (*graphd.MutateResponse, error) {
	return &graphd.MutateResponse{}, f.err
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAddVerticesRouteDecodesAndCallsEngine(t *testing.T) {
	fe := &fakeEngine{}
	s := New(fe, nil)
	req := &graphd.AddVerticesRequest{
		Space: "sp",
		Vertices: []graphd.NewVertex{
			{VID: []byte("v1"), Tags: []graphd.NewTag{{Name: "person", Values: map[string]interface{}{"name": "alice"}}}},
		},
	}
	rec := post(t, s.Router(), "/storage/addVertices", req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fe.gotAddVertices)
	assert.Equal(t, "sp", fe.gotAddVertices.Space)
	assert.Equal(t, "v1", string(fe.gotAddVertices.Vertices[0].VID))
}

func TestGetNeighborsRouteEncodesEngineResponse(t *testing.T) {
	fe := &fakeEngine{neighborsResp: &graphd.GetNeighborsResponse{
		ColNames: []string{"_src", "_dst"},
		Rows:     [][]interface{}{{"v1", "v2"}},
	}}
	s := New(fe, nil)
	rec := post(t, s.Router(), "/storage/getNeighbors", &graphd.GetNeighborsRequest{Space: "sp"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp graphd.GetNeighborsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"_src", "_dst"}, resp.ColNames)
	require.Len(t, resp.Rows, 1)
}

func TestRouteReturnsBadRequestOnEngineError(t *testing.T) {
	fe := &fakeEngine{err: assert.AnError}
	s := New(fe, nil)
	rec := post(t, s.Router(), "/storage/addEdges", &graphd.AddEdgesRequest{Space: "sp"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownMethodIsRejected(t *testing.T) {
	fe := &fakeEngine{}
	s := New(fe, nil)
	req := httptest.NewRequest(http.MethodGet, "/storage/addVertices", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
