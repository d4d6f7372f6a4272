package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	proposalengine "fangov/contexts/governance/proposal-engine"
	httptransport "fangov/contexts/governance/proposal-engine/transport/http"
)

var (
	testSecret = []byte("test-secret")
	baseTime   = time.Date(2026, time.June, 10, 9, 0, 0, 0, time.UTC)
)

type testServer struct {
	engine *gin.Engine
	module proposalengine.Module
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	module := proposalengine.NewInMemoryModule(nil)
	module.Store.SetClock(func() time.Time { return baseTime })
	engine := gin.New()
	module.Handler.Register(engine.Group("/v1"), testSecret)
	return testServer{engine: engine, module: module}
}

func token(t *testing.T, userID string, caps ...string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"caps": caps,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func (s testServer) do(t *testing.T, method string, path string, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	s.engine.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// openProposal drives a proposal to Open over HTTP and returns it with its
// option ids in creation order.
func (s testServer) openProposal(t *testing.T, managerToken string) (httptransport.ProposalResponse, []string) {
	t.Helper()
	start := baseTime.Add(-time.Hour)
	end := baseTime.Add(time.Hour)
	rr := s.do(t, http.MethodPost, "/v1/proposals", managerToken, httptransport.CreateProposalRequest{
		OrganizationID: "org-1",
		Title:          "Adopt <b>budget</b>",
		ContentHash:    strings.Repeat("cd", 32),
		StartAt:        &start,
		EndAt:          &end,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	proposal := decode[httptransport.ProposalResponse](t, rr)
	assert.Equal(t, "Adopt budget", proposal.Title)
	assert.Equal(t, "draft", proposal.Status)

	var optionIDs []string
	for _, text := range []string{"Yes", "No"} {
		rr = s.do(t, http.MethodPost, "/v1/proposals/"+proposal.ProposalID+"/options", managerToken,
			httptransport.AddOptionRequest{Text: text})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		optionIDs = append(optionIDs, decode[httptransport.OptionResponse](t, rr).OptionID)
	}

	rr = s.do(t, http.MethodPost, "/v1/proposals/"+proposal.ProposalID+"/open", managerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[httptransport.ProposalResponse](t, rr), optionIDs
}

func TestRoutesRequireBearerToken(t *testing.T) {
	server := newTestServer(t)

	rr := server.do(t, http.MethodGet, "/v1/proposals/p-1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = server.do(t, http.MethodGet, "/v1/proposals/p-1", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestVoteLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)
	server.module.Store.IssueShares("org-1", "alice", decimal.NewFromInt(7), baseTime.Add(-48*time.Hour))
	server.module.Store.IssueShares("org-1", "bob", decimal.NewFromInt(3), baseTime.Add(-48*time.Hour))
	managerToken := token(t, "manager-1", "proposal:create", "proposal:manage")
	aliceToken := token(t, "alice", "vote:cast")

	proposal, options := server.openProposal(t, managerToken)
	require.NotNil(t, proposal.EligibleVotingPower)
	assert.Equal(t, "10", *proposal.EligibleVotingPower)

	votePath := "/v1/proposals/" + proposal.ProposalID + "/votes"
	rr := server.do(t, http.MethodPost, votePath, aliceToken, httptransport.CastVoteRequest{OptionID: options[0]})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	vote := decode[httptransport.VoteResponse](t, rr)
	assert.Equal(t, "7", vote.VotingPower)

	rr = server.do(t, http.MethodPost, votePath, aliceToken, httptransport.CastVoteRequest{OptionID: options[1]})
	require.Equal(t, http.StatusConflict, rr.Code)
	failure := decode[httptransport.ErrorResponse](t, rr)
	assert.Equal(t, "duplicate_vote", failure.Code)
	assert.Equal(t, "you have already voted", failure.Message)

	rr = server.do(t, http.MethodGet, votePath+"/me", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, options[0], decode[httptransport.VoteResponse](t, rr).OptionID)

	rr = server.do(t, http.MethodGet, votePath+"/me", token(t, "bob", "vote:cast"), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = server.do(t, http.MethodGet, "/v1/proposals/"+proposal.ProposalID+"/results", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	live := decode[httptransport.ResultSnapshotResponse](t, rr)
	require.NotNil(t, live.WinningOptionID)
	assert.Equal(t, options[0], *live.WinningOptionID)
	assert.True(t, live.QuorumMet)
	assert.False(t, live.Frozen)

	rr = server.do(t, http.MethodPost, "/v1/proposals/"+proposal.ProposalID+"/close", managerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = server.do(t, http.MethodPost, "/v1/proposals/"+proposal.ProposalID+"/finalize", managerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	frozen := decode[httptransport.ResultSnapshotResponse](t, rr)
	assert.True(t, frozen.Frozen)
	assert.Equal(t, live.ResultsHash, frozen.ResultsHash)
}

func TestDomainErrorsMapToStatusCodes(t *testing.T) {
	server := newTestServer(t)
	managerToken := token(t, "manager-1", "proposal:create", "proposal:manage")
	proposal, options := server.openProposal(t, managerToken)
	base := "/v1/proposals/" + proposal.ProposalID

	rr := server.do(t, http.MethodPost, base+"/open", managerToken, nil)
	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)

	rr = server.do(t, http.MethodPost, base+"/finalize", managerToken, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "invalid_state", decode[httptransport.ErrorResponse](t, rr).Code)

	rr = server.do(t, http.MethodPost, base+"/votes", token(t, "mallory"), httptransport.CastVoteRequest{OptionID: options[0]})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = server.do(t, http.MethodGet, "/v1/proposals/missing", managerToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = server.do(t, http.MethodPost, "/v1/proposals", managerToken, httptransport.CreateProposalRequest{
		OrganizationID: "org-1",
		Title:          "   ",
		ContentHash:    strings.Repeat("cd", 32),
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = server.do(t, http.MethodGet, "/v1/proposals?organization_id=org-1&limit=abc", managerToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListProposalsFiltersByStatus(t *testing.T) {
	server := newTestServer(t)
	managerToken := token(t, "manager-1", "proposal:create", "proposal:manage")
	opened, _ := server.openProposal(t, managerToken)

	rr := server.do(t, http.MethodPost, "/v1/proposals", managerToken, httptransport.CreateProposalRequest{
		OrganizationID: "org-1",
		Title:          "Second",
		ContentHash:    strings.Repeat("ef", 32),
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = server.do(t, http.MethodGet, "/v1/proposals?organization_id=org-1&status=open", managerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[httptransport.ListProposalsResponse](t, rr)
	require.Len(t, list.Items, 1)
	assert.Equal(t, opened.ProposalID, list.Items[0].ProposalID)

	rr = server.do(t, http.MethodGet, "/v1/proposals?organization_id=org-1", managerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[httptransport.ListProposalsResponse](t, rr).Items, 2)
}
