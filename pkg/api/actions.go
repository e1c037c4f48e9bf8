package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/multisig"
)

// ActionRequest proposes or co-signs an action. Target defaults to the
// engine for engine kinds and to the controller otherwise.
type ActionRequest struct {
	Target contracts.Address `json:"target,omitempty"`
	Kind   multisig.Kind     `json:"kind"`
	Args   json.RawMessage   `json:"args,omitempty"`
}

// OutcomeResponse reports what an approval or veto did.
type OutcomeResponse struct {
	Outcome multisig.Outcome        `json:"outcome"`
	Pending *multisig.PendingAction `json:"pending,omitempty"`
}

func (s *Server) handleSigners(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"engine":         s.engine.Address(),
		"controller":     s.engine.Controller(),
		"signers":        s.engine.Roster(),
		"threshold":      s.engine.Threshold(),
		"veto_threshold": s.engine.VetoThreshold(),
	})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	p, ok := s.engine.Pending()
	if !ok {
		WriteGovernanceError(w, r, contracts.ErrNoActionPending)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleKinds(w http.ResponseWriter, _ *http.Request) {
	kinds := multisig.Kinds()
	slices.Sort(kinds)
	writeJSON(w, http.StatusOK, map[string]any{"kinds": kinds})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request, caller contracts.Address) {
	var req ActionRequest
	if !decode(w, r, &req) {
		return
	}
	payload, err := multisig.DecodePayload(req.Kind, req.Args)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	target := req.Target
	if target.IsZero() {
		target = s.engine.Controller()
		if multisig.TargetsEngine(req.Kind) {
			target = s.engine.Address()
		}
	}

	outcome, err := s.engine.ProposeOrCosign(r.Context(), caller, multisig.Action{Target: target, Payload: payload})
	if err != nil {
		s.fail(w, r, caller, err)
		return
	}
	s.respondOutcome(w, outcome)
}

func (s *Server) handleVeto(w http.ResponseWriter, r *http.Request, caller contracts.Address) {
	outcome, err := s.engine.Veto(r.Context(), caller)
	if err != nil {
		s.fail(w, r, caller, err)
		return
	}
	s.respondOutcome(w, outcome)
}

func (s *Server) respondOutcome(w http.ResponseWriter, outcome multisig.Outcome) {
	resp := OutcomeResponse{Outcome: outcome}
	if p, ok := s.engine.Pending(); ok {
		resp.Pending = &p
	}
	status := http.StatusOK
	if outcome == multisig.OutcomeProposed {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}
