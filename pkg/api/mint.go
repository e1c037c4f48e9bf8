package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/holiman/uint256"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/mint"
)

// MintRequest names a recipient and an amount in base units.
type MintRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (m MintRequest) parse() (contracts.Address, *uint256.Int, error) {
	to, err := contracts.ParseAddress(m.To)
	if err != nil {
		return "", nil, err
	}
	amount, err := contracts.ParseAmount(m.Amount)
	if err != nil {
		return "", nil, err
	}
	return to, amount, nil
}

// TierView is one tier of the mint summary.
type TierView struct {
	Tier          string `json:"tier"`
	Threshold     string `json:"threshold"`
	Limit         string `json:"limit"`
	Pool          string `json:"pool"`
	Ratifications int    `json:"ratifications"`
	Delay         string `json:"delay"`
}

// MintSummary is the pipeline's configuration and pause state.
type MintSummary struct {
	Tiers     []TierView        `json:"tiers"`
	Paused    bool              `json:"paused"`
	Watermark *time.Time        `json:"invalidated_before,omitempty"`
	MintKey   contracts.Address `json:"mint_key,omitempty"`
	PauseKey  contracts.Address `json:"pause_key,omitempty"`
}

func (s *Server) handleMintSummary(w http.ResponseWriter, _ *http.Request) {
	thresholds, limits, pools, rules := s.mints.Thresholds(), s.mints.Limits(), s.mints.Pools(), s.mints.Rules()
	sum := MintSummary{Paused: s.mints.Paused()}
	for _, t := range mint.Tiers {
		sum.Tiers = append(sum.Tiers, TierView{
			Tier:          t.String(),
			Threshold:     contracts.Dec(thresholds[t]),
			Limit:         contracts.Dec(limits[t]),
			Pool:          contracts.Dec(pools[t]),
			Ratifications: rules[t].Ratifications,
			Delay:         rules[t].Delay.String(),
		})
	}
	if wm := s.mints.Watermark(); !wm.IsZero() {
		sum.Watermark = &wm
	}
	if s.keys != nil {
		sum.MintKey, sum.PauseKey = s.keys.MintKey(), s.keys.PauseKey()
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	ops := s.mints.Operations()
	if ops == nil {
		ops = []mint.Operation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"operations": ops})
}

func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	op, err := s.mints.Operation(idx)
	if err != nil {
		WriteGovernanceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (s *Server) handleRequestMint(w http.ResponseWriter, r *http.Request, caller contracts.Address) {
	var req MintRequest
	if !decode(w, r, &req) {
		return
	}
	to, amount, err := req.parse()
	if err != nil {
		s.fail(w, r, caller, err)
		return
	}
	idx, err := s.mints.RequestMint(r.Context(), caller, to, amount)
	if err != nil {
		s.fail(w, r, caller, err)
		return
	}
	op, err := s.mints.Operation(idx)
	if err != nil {
		WriteInternal(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/mint/operations/%d", idx))
	writeJSON(w, http.StatusCreated, op)
}

func (s *Server) handleInstantMint(w http.ResponseWriter, r *http.Request, caller contracts.Address) {
	var req MintRequest
	if !decode(w, r, &req) {
		return
	}
	to, amount, err := req.parse()
	if err != nil {
		s.fail(w, r, caller, err)
		return
	}
	if err := s.mints.InstantMint(r.Context(), caller, to, amount); err != nil {
		s.fail(w, r, caller, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"to": string(to), "amount": amount.Dec()})
}

// handleRatify requires the ratifier to restate recipient and amount.
func (s *Server) handleRatify(w http.ResponseWriter, r *http.Request, caller contracts.Address) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var req MintRequest
	if !decode(w, r, &req) {
		return
	}
	to, amount, err := req.parse()
	if err != nil {
		s.fail(w, r, caller, err)
		return
	}
	finalized, err := s.mints.RatifyMint(r.Context(), caller, idx, to, amount)
	if err != nil {
		s.fail(w, r, caller, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"finalized": finalized})
}

func (s *Server) handleOperationVerb(w http.ResponseWriter, r *http.Request, caller contracts.Address) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var err error
	switch verb := r.PathValue("verb"); verb {
	case "finalize":
		err = s.mints.FinalizeMint(r.Context(), caller, idx)
	case "revoke":
		err = s.mints.RevokeMint(r.Context(), caller, idx)
	case "pause":
		err = s.mints.PauseMint(r.Context(), caller, idx)
	case "unpause":
		err = s.mints.UnpauseMint(r.Context(), caller, idx)
	default:
		WriteNotFound(w, "Unknown mint operation "+verb)
		return
	}
	if err != nil {
		s.fail(w, r, caller, err)
		return
	}
	op, err := s.mints.Operation(idx)
	if err != nil {
		WriteInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (s *Server) handleRefill(w http.ResponseWriter, r *http.Request, caller contracts.Address) {
	tier, err := mint.ParseTier(r.PathValue("tier"))
	if err != nil {
		s.fail(w, r, caller, err)
		return
	}
	refilled := true
	switch tier {
	case mint.TierInstant:
		err = s.mints.RefillInstantPool(r.Context(), caller)
	case mint.TierRatified:
		refilled, err = s.mints.RefillRatifiedPool(r.Context(), caller)
	case mint.TierJumbo:
		err = s.mints.RefillJumboPool(r.Context(), caller)
	}
	if err != nil {
		s.fail(w, r, caller, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tier":     tier.String(),
		"refilled": refilled,
		"pool":     contracts.Dec(s.mints.Pools()[tier]),
	})
}

// handlePauseMints lets a pause-key holder or checker stop all minting.
// Unpausing is owner-only and goes through the quorum.
func (s *Server) handlePauseMints(w http.ResponseWriter, r *http.Request, caller contracts.Address) {
	if err := s.mints.PauseMints(r.Context(), caller); err != nil {
		s.fail(w, r, caller, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}
