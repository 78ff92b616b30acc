// Package httpapi exposes the protocol operations as a JSON HTTP API under
// /v1. Every handler resolves the acting identity from the verified bearer
// token and delegates to the service layer.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kunal-drall/halo/internal/auction"
	"github.com/kunal-drall/halo/internal/auth"
	"github.com/kunal-drall/halo/internal/circle"
	"github.com/kunal-drall/halo/internal/governance"
	"github.com/kunal-drall/halo/internal/halo"
	"github.com/kunal-drall/halo/internal/middleware"
	"github.com/kunal-drall/halo/internal/revenue"
	"github.com/kunal-drall/halo/internal/trust"
)

// Handler bundles the protocol services behind the JSON API.
type Handler struct {
	circles    *circle.Service
	trust      *trust.Service
	governance *governance.Service
	auctions   *auction.Service
	revenue    *revenue.Service

	jwt        *auth.JWTManager
	credential *auth.CredentialVerifier
}

// New creates the API handler.
func New(circles *circle.Service, trustSvc *trust.Service, gov *governance.Service, auctions *auction.Service, rev *revenue.Service, jwt *auth.JWTManager, credential *auth.CredentialVerifier) *Handler {
	return &Handler{
		circles:    circles,
		trust:      trustSvc,
		governance: gov,
		auctions:   auctions,
		revenue:    rev,
		jwt:        jwt,
		credential: credential,
	}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("POST /v1/auth/token", h.handleToken)

	mux.HandleFunc("POST /v1/trust/scores", h.handleInitTrustScore)
	mux.HandleFunc("GET /v1/trust/scores/{identity}", h.handleGetTrustScore)
	mux.HandleFunc("POST /v1/trust/proofs", h.handleAddProof)
	mux.HandleFunc("POST /v1/trust/proofs/verify", h.handleVerifyProof)
	mux.HandleFunc("PUT /v1/trust/activity", h.handleUpdateActivity)

	mux.HandleFunc("POST /v1/circles", h.handleCreateCircle)
	mux.HandleFunc("GET /v1/circles/{id}", h.handleGetCircle)
	mux.HandleFunc("GET /v1/circles/{id}/members/{identity}", h.handleGetMember)
	mux.HandleFunc("POST /v1/circles/{id}/join", h.handleJoin)
	mux.HandleFunc("POST /v1/circles/{id}/contribute", h.handleContribute)
	mux.HandleFunc("POST /v1/circles/{id}/distribute", h.handleDistribute)
	mux.HandleFunc("POST /v1/circles/{id}/leave", h.handleLeave)
	mux.HandleFunc("POST /v1/circles/{id}/default", h.handleMarkDefault)
	mux.HandleFunc("POST /v1/circles/{id}/penalty", h.handleClaimPenalty)
	mux.HandleFunc("POST /v1/circles/{id}/completion-credit", h.handleCompletionCredit)
	mux.HandleFunc("POST /v1/circles/{id}/collect-fees", h.handleCollectFees)

	mux.HandleFunc("POST /v1/proposals", h.handleCreateProposal)
	mux.HandleFunc("GET /v1/proposals/{id}", h.handleGetProposal)
	mux.HandleFunc("POST /v1/proposals/{id}/votes", h.handleCastVote)
	mux.HandleFunc("POST /v1/proposals/{id}/execute", h.handleExecuteProposal)

	mux.HandleFunc("POST /v1/auctions", h.handleCreateAuction)
	mux.HandleFunc("GET /v1/auctions/{id}", h.handleGetAuction)
	mux.HandleFunc("POST /v1/auctions/{id}/bids", h.handlePlaceBid)
	mux.HandleFunc("POST /v1/auctions/{id}/settle", h.handleSettleAuction)

	mux.HandleFunc("POST /v1/treasury", h.handleInitTreasury)
	mux.HandleFunc("GET /v1/treasury", h.handleGetTreasury)
	mux.HandleFunc("POST /v1/revenue/params", h.handleInitRevenueParams)
	mux.HandleFunc("PUT /v1/revenue/params", h.handleUpdateRevenueParams)

	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identity   string `json:"identity"`
		Credential string `json:"credential"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Identity == "" {
		writeError(w, http.StatusBadRequest, errors.New("identity required"))
		return
	}
	if halo.ReservedIdentity(req.Identity) {
		writeError(w, http.StatusForbidden, errors.New("identity is reserved"))
		return
	}
	if err := h.credential.Verify(req.Credential); err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	token, err := h.jwt.Generate(req.Identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) handleInitTrustScore(w http.ResponseWriter, r *http.Request) {
	record, err := h.trust.InitializeTrustScore(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleGetTrustScore(w http.ResponseWriter, r *http.Request) {
	record, err := h.trust.GetTrustScore(r.Context(), r.PathValue("identity"))
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) handleAddProof(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProofType  string `json:"proof_type"`
		Identifier string `json:"identifier"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record, err := h.trust.AddSocialProof(r.Context(), middleware.GetIdentity(r.Context()), req.ProofType, req.Identifier)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleVerifyProof(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identity   string `json:"identity"`
		ProofType  string `json:"proof_type"`
		Identifier string `json:"identifier"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record, err := h.trust.VerifySocialProof(r.Context(), req.Identity, req.ProofType, req.Identifier)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Score int `json:"score"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record, err := h.trust.UpdateExternalActivityScore(r.Context(), middleware.GetIdentity(r.Context()), req.Score)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) handleCreateCircle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContributionAmount uint64 `json:"contribution_amount"`
		DurationMonths     int    `json:"duration_months"`
		MaxMembers         int    `json:"max_members"`
		PenaltyRate        int    `json:"penalty_rate"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := h.circles.InitializeCircle(r.Context(), middleware.GetIdentity(r.Context()),
		req.ContributionAmount, req.DurationMonths, req.MaxMembers, req.PenaltyRate)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGetCircle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := h.circles.GetCircle(r.Context(), id)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m, err := h.circles.GetMember(r.Context(), id, r.PathValue("identity"))
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		StakeAmount uint64 `json:"stake_amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m, err := h.circles.JoinCircle(r.Context(), id, middleware.GetIdentity(r.Context()), req.StakeAmount)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) handleContribute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.circles.Contribute(r.Context(), id, middleware.GetIdentity(r.Context()), req.Amount); err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (h *Handler) handleDistribute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Recipient string `json:"recipient"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.circles.DistributePot(r.Context(), id, req.Recipient); err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "distributed"})
}

func (h *Handler) handleLeave(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.circles.LeaveCircle(r.Context(), id, middleware.GetIdentity(r.Context())); err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

func (h *Handler) handleMarkDefault(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Identity string `json:"identity"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.circles.MarkDefault(r.Context(), id, req.Identity); err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "defaulted"})
}

func (h *Handler) handleClaimPenalty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Defaulted string `json:"defaulted"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := h.circles.ClaimPenalty(r.Context(), id, middleware.GetIdentity(r.Context()), req.Defaulted)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"amount": amount})
}

func (h *Handler) handleCompletionCredit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// Permissionless sweep: the body may name any roster member, defaulting
	// to the caller.
	var req struct {
		Identity string `json:"identity"`
	}
	if err := decode(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	identity := req.Identity
	if identity == "" {
		identity = middleware.GetIdentity(r.Context())
	}
	if err := h.circles.ClaimCompletionCredit(r.Context(), id, identity); err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "credited"})
}

func (h *Handler) handleCollectFees(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fee, err := h.revenue.CollectManagementFees(r.Context(), id)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"fee": fee})
}

func (h *Handler) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CircleID           uint64 `json:"circle_id"`
		Title              string `json:"title"`
		Description        string `json:"description"`
		Type               string `json:"type"`
		VotingHours        int    `json:"voting_hours"`
		ExecutionThreshold uint64 `json:"execution_threshold"`
		NewInterestRate    *int   `json:"new_interest_rate"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.governance.CreateProposal(r.Context(), governance.CreateProposalParams{
		CircleID:           req.CircleID,
		Proposer:           middleware.GetIdentity(r.Context()),
		Title:              req.Title,
		Description:        req.Description,
		Type:               halo.ProposalType(req.Type),
		VotingDuration:     time.Duration(req.VotingHours) * time.Hour,
		ExecutionThreshold: req.ExecutionThreshold,
		NewInterestRate:    req.NewInterestRate,
	})
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.governance.GetProposal(r.Context(), id)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCastVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		VotingPower uint64 `json:"voting_power"`
		Support     bool   `json:"support"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	v, err := h.governance.CastVote(r.Context(), id, middleware.GetIdentity(r.Context()), req.VotingPower, req.Support)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleExecuteProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.governance.ExecuteProposal(r.Context(), id); err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "executed"})
}

func (h *Handler) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CircleID    uint64 `json:"circle_id"`
		PotAmount   uint64 `json:"pot_amount"`
		StartingBid uint64 `json:"starting_bid"`
		DurationHrs int    `json:"duration_hours"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, err := h.auctions.CreateAuction(r.Context(), req.CircleID, middleware.GetIdentity(r.Context()),
		req.PotAmount, req.StartingBid, time.Duration(req.DurationHrs)*time.Hour)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, err := h.auctions.GetAuction(r.Context(), id)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	b, err := h.auctions.PlaceBid(r.Context(), id, middleware.GetIdentity(r.Context()), req.Amount)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) handleSettleAuction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, err := h.auctions.SettleAuction(r.Context(), id)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleInitTreasury(w http.ResponseWriter, r *http.Request) {
	t, err := h.revenue.InitializeTreasury(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleGetTreasury(w http.ResponseWriter, r *http.Request) {
	t, err := h.revenue.GetTreasury(r.Context())
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleInitRevenueParams(w http.ResponseWriter, r *http.Request) {
	p, err := h.revenue.InitializeRevenueParams(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleUpdateRevenueParams(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DistributionFeeRate int `json:"distribution_fee_rate"`
		YieldFeeRate        int `json:"yield_fee_rate"`
		ManagementFeeRate   int `json:"management_fee_rate"`
		IntervalHours       int `json:"interval_hours"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.revenue.UpdateRevenueParams(r.Context(), middleware.GetIdentity(r.Context()),
		req.DistributionFeeRate, req.YieldFeeRate, req.ManagementFeeRate,
		time.Duration(req.IntervalHours)*time.Hour)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

var errEmptyBody = errors.New("empty request body")

func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return err
}

func pathID(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(r.PathValue(name), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// writeProtocolError maps a protocol error to an HTTP status and a stable
// error code in the body.
func writeProtocolError(w http.ResponseWriter, err error) {
	var perr *halo.Error
	if !errors.As(err, &perr) {
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(perr))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":  perr.Code,
		"error": perr.Message,
	})
}

func statusFor(err *halo.Error) int {
	switch err {
	case halo.ErrCircleNotFound, halo.ErrMemberNotFound, halo.ErrTrustScoreNotFound,
		halo.ErrProposalNotFound, halo.ErrAuctionNotFound, halo.ErrAccountNotFound,
		halo.ErrTreasuryNotInitialized:
		return http.StatusNotFound
	case halo.ErrUnauthorized, halo.ErrUnauthorizedRevenue, halo.ErrCannotBidOwnAuction:
		return http.StatusForbidden
	case halo.ErrInvalidContributionAmount, halo.ErrInvalidDuration, halo.ErrInvalidMaxMembers,
		halo.ErrInvalidPenaltyRate, halo.ErrInvalidSocialProof, halo.ErrInvalidProposalType,
		halo.ErrProposalTitleTooLong, halo.ErrDescriptionTooLong, halo.ErrInvalidVotingPeriod,
		halo.ErrInvalidAuctionDuration, halo.ErrInvalidFeeRate, halo.ErrSelfTransfer:
		return http.StatusBadRequest
	case halo.ErrArithmeticOverflow:
		return http.StatusUnprocessableEntity
	case halo.ErrInsufficientStake, halo.ErrInsufficientStakeBid, halo.ErrBidTooLow,
		halo.ErrInsufficientVotes, halo.ErrInsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		// Duplicates and state-precondition failures.
		return http.StatusConflict
	}
}
