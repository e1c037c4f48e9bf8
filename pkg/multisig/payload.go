package multisig

import (
	"github.com/holiman/uint256"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Kind names an operation the engine can authorise.
type Kind string

// Payload is the typed argument set of one operation kind. The set of
// payloads is closed: every implementation is registered in catalog.
type Payload interface {
	Kind() Kind
}

// Engine-targeted operations.
type (
	UpdateOwner struct {
		Old contracts.Address `json:"old"`
		New contracts.Address `json:"new"`
	}
	SetController struct {
		Controller contracts.Address `json:"controller"`
	}
	ClaimContract struct {
		Contract contracts.Address `json:"contract"`
	}
	ReclaimContract struct {
		Contract contracts.Address `json:"contract"`
		NewOwner contracts.Address `json:"new_owner"`
	}
	ReclaimEther struct {
		To contracts.Address `json:"to"`
	}
	ReclaimToken struct {
		Token contracts.Address `json:"token"`
		To    contracts.Address `json:"to"`
	}
)

// Controller-targeted operations: ownership and custody.
type (
	TransferOwnership struct {
		NewOwner contracts.Address `json:"new_owner"`
	}
	TransferChild struct {
		Child    contracts.Address `json:"child"`
		NewOwner contracts.Address `json:"new_owner"`
	}
	IssueClaimOwnership struct {
		Contract contracts.Address `json:"contract"`
	}
	RequestReclaimContract struct {
		Contract contracts.Address `json:"contract"`
	}
	RequestReclaimEther   struct{}
	RequestReclaimToken   struct {
		Token contracts.Address `json:"token"`
	}
	ControllerReclaimEther struct {
		To contracts.Address `json:"to"`
	}
	ControllerReclaimToken struct {
		Token contracts.Address `json:"token"`
		To    contracts.Address `json:"to"`
	}
)

// Controller-targeted operations: mint pipeline.
type (
	SetMintThresholds struct {
		Instant  *uint256.Int `json:"instant"`
		Ratified *uint256.Int `json:"ratified"`
		Jumbo    *uint256.Int `json:"jumbo"`
	}
	SetMintLimits struct {
		Instant  *uint256.Int `json:"instant"`
		Ratified *uint256.Int `json:"ratified"`
		Jumbo    *uint256.Int `json:"jumbo"`
	}
	SetTierRule struct {
		Tier          string `json:"tier"`
		Ratifications uint64 `json:"ratifications"`
		DelaySeconds  uint64 `json:"delay_seconds"`
	}
	RefillInstantMintPool     struct{}
	RefillRatifiedMintPool    struct{}
	RefillJumboMintPool       struct{}
	PauseMints                struct{}
	UnpauseMints              struct{}
	InvalidateAllPendingMints struct{}
	PauseMint                 struct {
		Index uint64 `json:"index"`
	}
	UnpauseMint struct {
		Index uint64 `json:"index"`
	}
	RevokeMint struct {
		Index uint64 `json:"index"`
	}
	FinalizeMint struct {
		Index uint64 `json:"index"`
	}
	RequestMint struct {
		To     contracts.Address `json:"to"`
		Amount *uint256.Int      `json:"amount"`
	}
	InstantMint struct {
		To     contracts.Address `json:"to"`
		Amount *uint256.Int      `json:"amount"`
	}
	RatifyMint struct {
		Index  uint64            `json:"index"`
		To     contracts.Address `json:"to"`
		Amount *uint256.Int      `json:"amount"`
	}
	TransferMintKey struct {
		NewKey contracts.Address `json:"new_key"`
	}
	TransferPauseKey struct {
		NewKey contracts.Address `json:"new_key"`
	}
)

// Controller-targeted operations: token administration.
type (
	SetToken struct {
		Token contracts.Address `json:"token"`
	}
	SetRegistry struct {
		Registry contracts.Address `json:"registry"`
	}
	SetTokenRegistry struct {
		Registry contracts.Address `json:"registry"`
	}
	ChangeTokenName struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	}
	SetGlobalPause struct {
		Pauser contracts.Address `json:"pauser"`
	}
	SetFastPause struct {
		Key contracts.Address `json:"key"`
	}
	PauseToken      struct{}
	UnpauseToken    struct{}
	WipeBlacklisted struct {
		Account contracts.Address `json:"account"`
	}
	SetBurnBounds struct {
		Min *uint256.Int `json:"min"`
		Max *uint256.Int `json:"max"`
	}
	ChangeStakingFees struct {
		Fees contracts.StakingFees `json:"fees"`
	}
	ChangeStaker struct {
		Staker contracts.Address `json:"staker"`
	}
)

func (UpdateOwner) Kind() Kind     { return "updateOwner" }
func (SetController) Kind() Kind   { return "setController" }
func (ClaimContract) Kind() Kind   { return "claimContract" }
func (ReclaimContract) Kind() Kind { return "reclaimContract" }
func (ReclaimEther) Kind() Kind    { return "reclaimEther" }
func (ReclaimToken) Kind() Kind    { return "reclaimToken" }

func (TransferOwnership) Kind() Kind      { return "transferOwnership" }
func (TransferChild) Kind() Kind          { return "transferChild" }
func (IssueClaimOwnership) Kind() Kind    { return "issueClaimOwnership" }
func (RequestReclaimContract) Kind() Kind { return "requestReclaimContract" }
func (RequestReclaimEther) Kind() Kind    { return "requestReclaimEther" }
func (RequestReclaimToken) Kind() Kind    { return "requestReclaimToken" }
func (ControllerReclaimEther) Kind() Kind { return "controllerReclaimEther" }
func (ControllerReclaimToken) Kind() Kind { return "controllerReclaimToken" }

func (SetMintThresholds) Kind() Kind         { return "setMintThresholds" }
func (SetMintLimits) Kind() Kind             { return "setMintLimits" }
func (SetTierRule) Kind() Kind               { return "setTierRule" }
func (RefillInstantMintPool) Kind() Kind     { return "refillInstantMintPool" }
func (RefillRatifiedMintPool) Kind() Kind    { return "refillRatifiedMintPool" }
func (RefillJumboMintPool) Kind() Kind       { return "refillJumboMintPool" }
func (PauseMints) Kind() Kind                { return "pauseMints" }
func (UnpauseMints) Kind() Kind              { return "unpauseMints" }
func (InvalidateAllPendingMints) Kind() Kind { return "invalidateAllPendingMints" }
func (PauseMint) Kind() Kind                 { return "pauseMint" }
func (UnpauseMint) Kind() Kind               { return "unpauseMint" }
func (RevokeMint) Kind() Kind                { return "revokeMint" }
func (FinalizeMint) Kind() Kind              { return "finalizeMint" }
func (RequestMint) Kind() Kind               { return "requestMint" }
func (InstantMint) Kind() Kind               { return "instantMint" }
func (RatifyMint) Kind() Kind                { return "ratifyMint" }
func (TransferMintKey) Kind() Kind           { return "transferMintKey" }
func (TransferPauseKey) Kind() Kind          { return "transferPauseKey" }

func (SetToken) Kind() Kind          { return "setToken" }
func (SetRegistry) Kind() Kind       { return "setRegistry" }
func (SetTokenRegistry) Kind() Kind  { return "setTokenRegistry" }
func (ChangeTokenName) Kind() Kind   { return "changeTokenName" }
func (SetGlobalPause) Kind() Kind    { return "setGlobalPause" }
func (SetFastPause) Kind() Kind      { return "setFastPause" }
func (PauseToken) Kind() Kind        { return "pauseToken" }
func (UnpauseToken) Kind() Kind      { return "unpauseToken" }
func (WipeBlacklisted) Kind() Kind   { return "wipeBlacklisted" }
func (SetBurnBounds) Kind() Kind     { return "setBurnBounds" }
func (ChangeStakingFees) Kind() Kind { return "changeStakingFees" }
func (ChangeStaker) Kind() Kind      { return "changeStaker" }

type entry struct {
	signature string
	self      bool
	zero      func() Payload
}

// catalog maps each kind to its method signature, whether the engine
// executes it on itself, and a constructor used when decoding.
var catalog = map[Kind]entry{
	"updateOwner":     {"updateOwner(address,address)", true, func() Payload { return &UpdateOwner{} }},
	"setController":   {"setController(address)", true, func() Payload { return &SetController{} }},
	"claimContract":   {"claimContract(address)", true, func() Payload { return &ClaimContract{} }},
	"reclaimContract": {"reclaimContract(address,address)", true, func() Payload { return &ReclaimContract{} }},
	"reclaimEther":    {"reclaimEther(address)", true, func() Payload { return &ReclaimEther{} }},
	"reclaimToken":    {"reclaimToken(address,address)", true, func() Payload { return &ReclaimToken{} }},

	"transferOwnership":      {"transferOwnership(address)", false, func() Payload { return &TransferOwnership{} }},
	"transferChild":          {"transferChild(address,address)", false, func() Payload { return &TransferChild{} }},
	"issueClaimOwnership":    {"issueClaimOwnership(address)", false, func() Payload { return &IssueClaimOwnership{} }},
	"requestReclaimContract": {"requestReclaimContract(address)", false, func() Payload { return &RequestReclaimContract{} }},
	"requestReclaimEther":    {"requestReclaimEther()", false, func() Payload { return &RequestReclaimEther{} }},
	"requestReclaimToken":    {"requestReclaimToken(address)", false, func() Payload { return &RequestReclaimToken{} }},
	"controllerReclaimEther": {"reclaimEther(address)", false, func() Payload { return &ControllerReclaimEther{} }},
	"controllerReclaimToken": {"reclaimToken(address,address)", false, func() Payload { return &ControllerReclaimToken{} }},

	"setMintThresholds":         {"setMintThresholds(uint256,uint256,uint256)", false, func() Payload { return &SetMintThresholds{} }},
	"setMintLimits":             {"setMintLimits(uint256,uint256,uint256)", false, func() Payload { return &SetMintLimits{} }},
	"setTierRule":               {"setTierRule(string,uint256,uint256)", false, func() Payload { return &SetTierRule{} }},
	"refillInstantMintPool":     {"refillInstantMintPool()", false, func() Payload { return &RefillInstantMintPool{} }},
	"refillRatifiedMintPool":    {"refillRatifiedMintPool()", false, func() Payload { return &RefillRatifiedMintPool{} }},
	"refillJumboMintPool":       {"refillJumboMintPool()", false, func() Payload { return &RefillJumboMintPool{} }},
	"pauseMints":                {"pauseMints()", false, func() Payload { return &PauseMints{} }},
	"unpauseMints":              {"unpauseMints()", false, func() Payload { return &UnpauseMints{} }},
	"invalidateAllPendingMints": {"invalidateAllPendingMints()", false, func() Payload { return &InvalidateAllPendingMints{} }},
	"pauseMint":                 {"pauseMint(uint256)", false, func() Payload { return &PauseMint{} }},
	"unpauseMint":               {"unpauseMint(uint256)", false, func() Payload { return &UnpauseMint{} }},
	"revokeMint":                {"revokeMint(uint256)", false, func() Payload { return &RevokeMint{} }},
	"finalizeMint":              {"finalizeMint(uint256)", false, func() Payload { return &FinalizeMint{} }},
	"requestMint":               {"requestMint(address,uint256)", false, func() Payload { return &RequestMint{} }},
	"instantMint":               {"instantMint(address,uint256)", false, func() Payload { return &InstantMint{} }},
	"ratifyMint":                {"ratifyMint(uint256,address,uint256)", false, func() Payload { return &RatifyMint{} }},
	"transferMintKey":           {"transferMintKey(address)", false, func() Payload { return &TransferMintKey{} }},
	"transferPauseKey":          {"transferPauseKey(address)", false, func() Payload { return &TransferPauseKey{} }},

	"setToken":          {"setTrueUSD(address)", false, func() Payload { return &SetToken{} }},
	"setRegistry":       {"setRegistry(address)", false, func() Payload { return &SetRegistry{} }},
	"setTokenRegistry":  {"setTusdRegistry(address)", false, func() Payload { return &SetTokenRegistry{} }},
	"changeTokenName":   {"changeTokenName(string,string)", false, func() Payload { return &ChangeTokenName{} }},
	"setGlobalPause":    {"setGlobalPause(address)", false, func() Payload { return &SetGlobalPause{} }},
	"setFastPause":      {"setTrueUsdFastPause(address)", false, func() Payload { return &SetFastPause{} }},
	"pauseToken":        {"pauseTrueUSD()", false, func() Payload { return &PauseToken{} }},
	"unpauseToken":      {"unpauseTrueUSD()", false, func() Payload { return &UnpauseToken{} }},
	"wipeBlacklisted":   {"wipeBlackListedTrueUSD(address)", false, func() Payload { return &WipeBlacklisted{} }},
	"setBurnBounds":     {"setBurnBounds(uint256,uint256)", false, func() Payload { return &SetBurnBounds{} }},
	"changeStakingFees": {"changeStakingFees(uint256,uint256,uint256,uint256,uint256,uint256,uint256,uint256)", false, func() Payload { return &ChangeStakingFees{} }},
	"changeStaker":      {"changeStaker(address)", false, func() Payload { return &ChangeStaker{} }},
}
